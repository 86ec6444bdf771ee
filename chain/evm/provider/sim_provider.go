package provider

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/require"

	"github.com/gravita-protocol/gravita-deployments/chain/evm"
)

var (
	// simChainID is the chain ID for the simulated EVM chain. This is always set to 1337 across
	// all instances of EVM Simulated Chains.
	simChainID = params.AllDevChainProtocolChanges.ChainID
	// prefundAmountWei is the amount of wei every generated account is funded with (1,000,000 ETH).
	prefundAmountWei = new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(params.Ether))
)

// SimChainProviderConfig holds the configuration to initialize the SimChainProvider.
type SimChainProviderConfig struct {
	// Optional: NumAdditionalAccounts is the number of additional prefunded accounts to generate,
	// e.g. to act as admin or treasury wallets.
	NumAdditionalAccounts uint
	// Optional: BlockTime configures the time between blocks being committed. By default, this is
	// set to 0s, meaning that blocks are only mined when a transaction is confirmed or when
	// Commit is called on the client.
	BlockTime time.Duration
}

// SimChainProvider manages a simulated EVM chain backed by go-ethereum's in memory simulated
// backend. It is intended for tests only.
type SimChainProvider struct {
	t        *testing.T
	selector uint64
	config   SimChainProviderConfig

	chain *evm.Chain
	users []*bind.TransactOpts
}

// NewSimChainProvider creates a new SimChainProvider with the given selector and configuration.
func NewSimChainProvider(
	t *testing.T, selector uint64, config SimChainProviderConfig,
) *SimChainProvider {
	t.Helper()

	return &SimChainProvider{
		t:        t,
		selector: selector,
		config:   config,
	}
}

// Initialize sets up the simulated chain with a prefunded deployer account and any additional
// accounts requested in the configuration.
func (p *SimChainProvider) Initialize(_ context.Context) (evm.Chain, error) {
	if p.chain != nil {
		return *p.chain, nil // Already initialized
	}

	key, err := crypto.GenerateKey()
	require.NoError(p.t, err, "failed to generate deployer key")

	deployer, err := bind.NewKeyedTransactorWithChainID(key, simChainID)
	require.NoError(p.t, err)

	genesis := types.GenesisAlloc{
		deployer.From: {Balance: prefundAmountWei},
	}

	users := make([]*bind.TransactOpts, 0, p.config.NumAdditionalAccounts)
	for range p.config.NumAdditionalAccounts {
		ukey, uerr := crypto.GenerateKey()
		require.NoError(p.t, uerr)

		transactor, uerr := bind.NewKeyedTransactorWithChainID(ukey, simChainID)
		require.NoError(p.t, uerr)

		users = append(users, transactor)
		genesis[transactor.From] = types.Account{Balance: prefundAmountWei}
	}

	backend := simulated.NewBackend(genesis, simulated.WithBlockGasLimit(50000000))
	backend.Commit() // Commit the genesis block
	p.t.Cleanup(func() { _ = backend.Close() })

	if p.config.BlockTime > 0 {
		startAutoMine(p.t, backend, p.config.BlockTime)
	}

	client := NewSimClient(p.t, backend)

	p.users = users
	p.chain = &evm.Chain{
		Selector:    p.selector,
		Client:      client,
		DeployerKey: deployer,
		Confirm: func(tx *types.Transaction) (*types.Receipt, error) {
			if tx == nil {
				return nil, fmt.Errorf("tx was nil, nothing to confirm for selector: %d", p.selector)
			}

			// Ensure the transaction is mined by committing a new block
			client.Commit()

			ctx, cancel := context.WithTimeout(p.t.Context(), 1*time.Minute)
			defer cancel()

			receipt, err := bind.WaitMined(ctx, client, tx)
			if err != nil {
				return nil, fmt.Errorf("tx %s failed to confirm for selector %d: %w",
					tx.Hash().Hex(), p.selector, err,
				)
			}

			if receipt.Status == types.ReceiptStatusFailed {
				return nil, revertError(ctx, client, deployer.From, p.selector, tx, receipt)
			}

			return receipt, nil
		},
	}

	return *p.chain, nil
}

// Name returns the name of the SimChainProvider.
func (*SimChainProvider) Name() string {
	return "Simulated EVM Chain Provider"
}

// ChainSelector returns the chain selector of the simulated chain managed by this provider.
func (p *SimChainProvider) ChainSelector() uint64 {
	return p.selector
}

// Users returns the additional prefunded accounts. Initialize must be called first.
func (p *SimChainProvider) Users() []*bind.TransactOpts {
	return p.users
}

// startAutoMine triggers the simulated backend to create a new block at intervals defined by
// `blockTime`. After the test is done, it stops the mining goroutine.
func startAutoMine(t *testing.T, backend *simulated.Backend, blockTime time.Duration) {
	t.Helper()

	ctx := t.Context()
	ticker := time.NewTicker(blockTime)
	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				backend.Commit()
			case <-ctx.Done():
				return
			}
		}
	}()
}
