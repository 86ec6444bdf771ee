package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/gravita-protocol/gravita-deployments/config"
	"github.com/gravita-protocol/gravita-deployments/deployment"
	"github.com/gravita-protocol/gravita-deployments/pkg/logger"
	"github.com/gravita-protocol/gravita-deployments/state"
)

// ConfigLoaderFunc loads the deployment configuration from a file.
type ConfigLoaderFunc func(path string) (*config.Config, error)

// StoreOpenerFunc opens the deployment state store named by the configuration. The closer is
// called when the command returns.
type StoreOpenerFunc func(ctx context.Context, cfg *config.Config) (state.Store, io.Closer, error)

// EnvironmentLoaderFunc connects to the chain and builds the environment of a deployment run.
type EnvironmentLoaderFunc func(
	ctx context.Context, lggr logger.Logger, cfg *config.Config, store state.Store,
) (deployment.Environment, error)

// Deps holds the injectable dependencies of the commands.
// All fields are optional; nil values will use production defaults.
type Deps struct {
	// ConfigLoader loads the configuration.
	// Default: config.Load
	ConfigLoader ConfigLoaderFunc

	// StoreOpener opens the state store.
	// Default: (*config.Config).OpenStore
	StoreOpener StoreOpenerFunc

	// EnvironmentLoader builds the deployment environment.
	// Default: an RPC chain with a state backed core deployer
	EnvironmentLoader EnvironmentLoaderFunc
}

// applyDefaults fills in nil dependencies with production defaults.
func (d *Deps) applyDefaults() {
	if d.ConfigLoader == nil {
		d.ConfigLoader = config.Load
	}
	if d.StoreOpener == nil {
		d.StoreOpener = defaultStoreOpener
	}
	if d.EnvironmentLoader == nil {
		d.EnvironmentLoader = defaultEnvironmentLoader
	}
}

func defaultStoreOpener(ctx context.Context, cfg *config.Config) (state.Store, io.Closer, error) {
	return cfg.OpenStore(ctx)
}

// defaultEnvironmentLoader is the production implementation that loads an environment.
func defaultEnvironmentLoader(
	ctx context.Context, lggr logger.Logger, cfg *config.Config, store state.Store,
) (deployment.Environment, error) {
	p, err := cfg.ChainProvider(lggr)
	if err != nil {
		return deployment.Environment{}, err
	}

	chain, err := p.Initialize(ctx)
	if err != nil {
		return deployment.Environment{}, fmt.Errorf("failed to initialize %s: %w", p.Name(), err)
	}

	return deployment.Environment{
		Logger:   lggr,
		Chain:    chain,
		Store:    store,
		Deployer: deployment.NewStateBackedDeployer(lggr, chain, cfg.ContractAddresses()),
	}, nil
}

// session is a loaded configuration with its open state store.
type session struct {
	cfg   *config.Config
	lggr  logger.Logger
	store state.Store
	close func()
}

// open loads and validates the configuration and opens the state store.
func (c *Commands) open(ctx context.Context, path string) (*session, error) {
	cfg, err := c.deps.ConfigLoader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	lggr := c.lggr
	if cfg.Log.Level != "" {
		if lggr, err = cfg.Logger(); err != nil {
			return nil, err
		}
	}

	store, closer, err := c.deps.StoreOpener(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	return &session{
		cfg:   cfg,
		lggr:  lggr,
		store: store,
		close: func() {
			if closer == nil {
				return
			}
			if cerr := closer.Close(); cerr != nil {
				lggr.Warnw("Failed to close state store", "err", cerr)
			}
		},
	}, nil
}

// environment builds the deployment environment of the session.
func (c *Commands) environment(ctx context.Context, s *session) (deployment.Environment, deployment.Config, error) {
	dcfg, err := s.cfg.Deployment()
	if err != nil {
		return deployment.Environment{}, deployment.Config{}, err
	}

	env, err := c.deps.EnvironmentLoader(ctx, s.lggr, s.cfg, s.store)
	if err != nil {
		return deployment.Environment{}, deployment.Config{}, fmt.Errorf("failed to load environment: %w", err)
	}

	return env, dcfg, nil
}
