package provider

import (
	"context"

	"github.com/gravita-protocol/gravita-deployments/chain/evm"
)

// ChainProvider initializes the EVM chain a deployment runs against.
type ChainProvider interface {
	Initialize(ctx context.Context) (evm.Chain, error)
	Name() string
	ChainSelector() uint64
}

var (
	_ ChainProvider = (*RPCChainProvider)(nil)
	_ ChainProvider = (*SimChainProvider)(nil)
)
