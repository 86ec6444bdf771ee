package provider

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/stretchr/testify/require"
)

// SimClient wraps a simulated backend. It implements evm.OnchainClient and also exposes the
// backend controls tests need.
type SimClient struct {
	mu sync.Mutex

	simulated.Client
	sim *simulated.Backend
}

// NewSimClient creates a new SimClient from a simulated backend.
func NewSimClient(t *testing.T, sim *simulated.Backend) *SimClient {
	t.Helper()

	require.NotNil(t, sim, "simulated backend must not be nil")

	return &SimClient{
		sim:    sim,
		Client: sim.Client(),
	}
}

// Commit mines a new block containing all pending transactions.
func (b *SimClient) Commit() common.Hash {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.sim.Commit()
}

// AdjustTime moves the timestamp of the next block forward by d and mines it. Used to move past
// a timelock delay.
func (b *SimClient) AdjustTime(d time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.sim.AdjustTime(d); err != nil {
		return err
	}
	b.sim.Commit()

	return nil
}

// AdvancePast mines blocks until the chain timestamp is strictly after ts, e.g. the ETA of a
// queued timelock call.
func (b *SimClient) AdvancePast(ctx context.Context, ts uint64) error {
	head, err := b.HeaderByNumber(ctx, nil)
	if err != nil {
		return err
	}
	if head.Time > ts {
		return nil
	}

	return b.AdjustTime(time.Duration(ts-head.Time+1) * time.Second)
}
