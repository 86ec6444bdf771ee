package config

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap/zapcore"

	"github.com/gravita-protocol/gravita-deployments/chain/evm/provider"
	"github.com/gravita-protocol/gravita-deployments/pkg/logger"
	"github.com/gravita-protocol/gravita-deployments/state"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenStore opens the configured deployment state store. The returned closer releases the
// database connection of the postgres backend.
func (c *Config) OpenStore(ctx context.Context) (state.Store, io.Closer, error) {
	switch c.State.Backend {
	case BackendFile:
		return state.NewFileStore(c.State.Path), nopCloser{}, nil
	case BackendPostgres:
		store, err := state.OpenPostgres(ctx, c.State.DSN)
		if err != nil {
			return nil, nil, err
		}

		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown state backend %q", c.State.Backend)
	}
}

// ChainProvider returns the provider of the configured network, signing with the deployer key
// from the environment.
func (c *Config) ChainProvider(lggr logger.Logger) (provider.ChainProvider, error) {
	if c.Onchain.DeployerKey == "" {
		return nil, errors.New("deployer key is not set: export ONCHAIN_EVM_DEPLOYER_KEY or DEPLOYER_PRIVATEKEY")
	}
	if c.Network.RPCURL == "" {
		return nil, errors.New("network.rpc_url is required to connect to the chain")
	}

	selector, err := c.ChainSelector()
	if err != nil {
		return nil, err
	}

	var opts []provider.GeneratorOption
	if c.Network.GasLimit > 0 {
		opts = append(opts, provider.WithGasLimit(c.Network.GasLimit))
	}

	return provider.NewRPCChainProvider(selector, provider.RPCChainProviderConfig{
		DeployerTransactorGen: provider.TransactorFromRaw(c.Onchain.DeployerKey, opts...),
		RPCURL:                c.Network.RPCURL,
		ConfirmFunctor:        provider.ConfirmFuncGeth(c.Network.ConfirmTimeout),
		Logger:                lggr,
	}), nil
}

// Logger builds the logger configured for the CLI.
func (c *Config) Logger() (logger.Logger, error) {
	lvl, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log.level: %w", err)
	}

	return (&logger.Config{Level: lvl, Encoding: c.Log.Encoding}).New()
}
