package deployment

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"

	"github.com/gravita-protocol/gravita-deployments/operations"
	"github.com/gravita-protocol/gravita-deployments/pkg/logger"
	"github.com/gravita-protocol/gravita-deployments/state"
	"github.com/gravita-protocol/gravita-deployments/timelock"
)

// Context is the state of one deployment run. It is built once by NewContext and handed to every
// step, so two runs in one process share nothing.
type Context struct {
	Config Config
	// State is the deployment state as of the last persist.
	State state.DeploymentState

	lggr      logger.Logger
	chain     Chain
	store     state.Store
	deployer  CoreDeployer
	scheduler *timelock.Scheduler
	bundle    operations.Bundle

	lastBalance *big.Int
}

// NewContext validates env and loads the deployment state.
func NewContext(ctx context.Context, env Environment, cfg Config) (*Context, error) {
	if env.Chain == nil {
		return nil, errors.New("environment has no chain")
	}
	if env.Store == nil {
		return nil, errors.New("environment has no state store")
	}
	if env.Deployer == nil {
		return nil, errors.New("environment has no core contracts deployer")
	}

	lggr := env.Logger
	if lggr == nil {
		lggr = logger.Nop()
	}
	reporter := env.Reporter
	if reporter == nil {
		reporter = operations.NewMemoryReporter()
	}

	st, err := env.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load deployment state: %w", err)
	}

	lggr = lggr.Named("deployment")

	return &Context{
		Config:    cfg,
		State:     st,
		lggr:      lggr,
		chain:     env.Chain,
		store:     env.Store,
		deployer:  env.Deployer,
		scheduler: timelock.NewScheduler(lggr, env.Chain),
		bundle: operations.NewBundle(
			func() context.Context { return ctx }, lggr.Named("operations"), reporter,
		),
	}, nil
}

// Logger returns the logger of the run.
func (c *Context) Logger() logger.Logger {
	return c.lggr
}

// Reports returns every operation report recorded during the run.
func (c *Context) Reports() ([]operations.Report[any, any], error) {
	return c.bundle.Reporter().GetReports()
}

// Record merges rec into the state under key and persists the state if anything changed.
func (c *Context) Record(ctx context.Context, key string, rec state.Record) error {
	if !c.State.Merge(key, rec) {
		return nil
	}

	return c.Persist(ctx)
}

// Persist saves the full state.
func (c *Context) Persist(ctx context.Context) error {
	if err := c.store.Save(ctx, c.State); err != nil {
		return fmt.Errorf("failed to save deployment state: %w", err)
	}

	return nil
}

func (c *Context) recordAddresses(ctx context.Context, addrs map[string]common.Address) error {
	changed := false
	for name, addr := range addrs {
		if c.State.Merge(name, state.Record{Address: addr.Hex()}) {
			changed = true
		}
	}
	if !changed {
		return nil
	}

	return c.Persist(ctx)
}

// checkIdentity asserts that transactions are signed by the configured deployer wallet.
func (c *Context) checkIdentity() error {
	want := c.Config.Wallets.Deployer
	got := c.chain.Deployer()
	if want != got {
		return fmt.Errorf("%w: signing as %s, configured %s", ErrDeployerMismatch, got.Hex(), want.Hex())
	}

	return nil
}

// reportBalance logs the deployer balance and, after the first call, what the run has spent
// since the previous call.
func (c *Context) reportBalance(ctx context.Context) error {
	deployer := c.chain.Deployer()
	balance, err := c.chain.Balance(ctx, deployer)
	if err != nil {
		return err
	}

	kv := []any{"deployer", deployer.Hex(), "balance", w3.FromWei(balance, 18)}
	if c.lastBalance != nil {
		cost := new(big.Int).Sub(c.lastBalance, balance)
		kv = append(kv, "deploymentCost", w3.FromWei(cost, 18))
	}
	c.lastBalance = balance

	c.lggr.Infow("Deployer balance", kv...)

	return nil
}

// roleOf names the well-known wallet addr belongs to, or returns "".
func (c *Context) roleOf(addr common.Address) string {
	switch addr {
	case c.Config.Wallets.Treasury:
		return "Treasury"
	case c.Config.Wallets.Admin:
		return "Admin"
	default:
		return ""
	}
}

func (c *Context) logSummary() {
	reports, err := c.Reports()
	if err != nil {
		c.lggr.Warnw("Failed to read operation reports", "error", err)
		return
	}

	s := operations.Summarize(reports)
	c.lggr.Infow("Deployment steps", "executed", s.Executed, "skipped", s.Skipped, "failed", s.Failed)
}
