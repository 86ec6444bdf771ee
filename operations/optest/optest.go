// Package optest provides bundles for testing operations outside a deployment run.
package optest

import (
	"testing"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gravita-protocol/gravita-deployments/operations"
	"github.com/gravita-protocol/gravita-deployments/pkg/logger"
)

// NewBundle returns a bundle bound to the test context together with the reporter it records
// into.
func NewBundle(t *testing.T) (operations.Bundle, *operations.MemoryReporter) {
	t.Helper()

	reporter := operations.NewMemoryReporter()

	return operations.NewBundle(t.Context, logger.Test(t), reporter), reporter
}

// NewObservedBundle is like NewBundle but captures log entries at lvl and above, so a test can
// assert the warnings an operation emits.
func NewObservedBundle(t *testing.T, lvl zapcore.Level) (operations.Bundle, *observer.ObservedLogs) {
	t.Helper()

	lggr, logs := logger.TestObserved(t, lvl)

	return operations.NewBundle(t.Context, lggr, operations.NewMemoryReporter()), logs
}
