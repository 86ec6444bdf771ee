// Package timelock implements the client side of a compound style timelock: computing the
// identifier and eligibility time of a delayed call, queuing it, verifying the timelock reports it
// as pending and, in a separate later phase, executing it.
//
// Queuing and execution are deliberately separate operations. Nothing in this package waits for
// an ETA to pass.
package timelock
