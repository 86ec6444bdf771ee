// Package deployment drives a Gravita protocol deployment.
//
// A run loads the deployment state, checks that the configured deployer signs transactions, then
// executes one of two mutually exclusive pipelines selected by Mode:
//
//   - ModeFull loads the core contracts, registers every configured collateral and queues its
//     price oracle on the short timelock, initializes the AdminContract and DebtToken, and
//     optionally hands contract ownership to the admin and treasury wallets.
//   - ModeGRVTOnly deploys the GRVT token and LockedGRVT, creates a vesting entry per beneficiary
//     and hands LockedGRVT and the deployer's GRVT to the treasury.
//
// Every step is an operations.Operation gated by an on-chain check, so running the same
// configuration again converges instead of repeating work. New facts are persisted to the
// state.Store as soon as the step producing them is confirmed.
//
// Timelocked calls are only queued by Run. ExecuteQueued executes one of them in a later,
// explicit invocation once its ETA has passed.
package deployment
