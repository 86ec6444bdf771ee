package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/gravita-protocol/gravita-deployments/chain/evm"
)

// ConfirmFunctor is an interface for creating a confirmation function for transactions on the
// EVM chain.
type ConfirmFunctor interface {
	// Generate returns a function that confirms transactions on the EVM chain.
	Generate(
		ctx context.Context, selector uint64, client evm.OnchainClient, from common.Address,
	) (evm.ConfirmFunc, error)
}

// ConfirmFuncGeth returns a ConfirmFunctor that polls the Geth client for receipts.
func ConfirmFuncGeth(waitMinedTimeout time.Duration, opts ...func(*confirmFuncGeth)) ConfirmFunctor {
	cf := &confirmFuncGeth{
		tickInterval:     1 * time.Second, // the same value we have in bind.WaitMined hardcoded in "go-ethereum"
		waitMinedTimeout: waitMinedTimeout,
	}
	for _, o := range opts {
		o(cf)
	}

	return cf
}

func WithTickInterval(interval time.Duration) func(*confirmFuncGeth) {
	return func(o *confirmFuncGeth) {
		o.tickInterval = interval
	}
}

type confirmFuncGeth struct {
	tickInterval     time.Duration
	waitMinedTimeout time.Duration
}

// Generate returns a function that confirms transactions using the Geth client.
func (g *confirmFuncGeth) Generate(
	ctx context.Context, selector uint64, client evm.OnchainClient, from common.Address,
) (evm.ConfirmFunc, error) {
	if g.waitMinedTimeout <= 0 {
		return nil, errors.New("wait mined timeout must be positive")
	}

	return func(tx *types.Transaction) (*types.Receipt, error) {
		if tx == nil {
			return nil, fmt.Errorf("tx was nil, nothing to confirm for selector: %d", selector)
		}

		ctxTimeout, cancel := context.WithTimeout(ctx, g.waitMinedTimeout)
		defer cancel()

		receipt, err := WaitMinedWithInterval(ctxTimeout, g.tickInterval, client, tx.Hash())
		if err != nil {
			return nil, fmt.Errorf("tx %s failed to confirm for selector %d: %w",
				tx.Hash().Hex(), selector, err,
			)
		}
		if receipt == nil {
			return nil, fmt.Errorf("receipt was nil for tx %s for selector %d",
				tx.Hash().Hex(), selector,
			)
		}

		if receipt.Status == types.ReceiptStatusFailed {
			return nil, revertError(ctxTimeout, client, from, selector, tx, receipt)
		}

		return receipt, nil
	}, nil
}

// WaitMinedWithInterval polls for the receipt of txHash every tick until it is found or ctx is
// done. It allows getting receipts faster for networks with instant blocks.
func WaitMinedWithInterval(
	ctx context.Context, tick time.Duration, b bind.DeployBackend, txHash common.Hash,
) (*types.Receipt, error) {
	receipt, err := retry.DoWithData(
		func() (*types.Receipt, error) {
			return b.TransactionReceipt(ctx, txHash)
		},
		retry.Context(ctx),
		retry.Attempts(0), // until the context is done
		retry.Delay(tick),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, err
	}

	return receipt, nil
}
