/*
Package operations provides the step executor used by the deployment orchestrator.

Every state-changing unit of work in a deployment is an Operation. An operation may carry a
Precondition which asks "is the effect of this operation already in place?" before anything is
sent on-chain. When the precondition holds the operation is skipped and reported as such, so
re-running a whole deployment converges instead of repeating work.

# Core Components

Operation:
  - A single step with typed input, dependencies and output
  - Versioned via a semver Definition
  - Optionally gated by a Precondition

Sequence:
  - Groups operations executed together and links their reports

Reporter:
  - Records one Report per executed or skipped operation
  - Summarize counts executed, skipped and failed steps

Registry:
  - Indexes the definitions of the steps a pipeline can run by ID

Failures returned by a handler are propagated to the caller unchanged. The executor never
retries; re-invoking the orchestrator is the recovery path.

# Basic Usage

	op := operations.NewOperation("add-collateral", semver.MustParse("1.0.0"),
		"Registers a collateral type", handler,
	).WithPrecondition(collateralExists)

	bundle := operations.NewBundle(func() context.Context { return ctx }, lggr, operations.NewMemoryReporter())
	report, err := operations.ExecuteOperation(bundle, op, deps, input)
*/
package operations
