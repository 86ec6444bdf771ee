package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/gravita-protocol/gravita-deployments/chain/utils"
)

// ConfirmFunc takes a submitted transaction, blocks until it is mined and returns its receipt.
// A reverted transaction is reported as an error.
type ConfirmFunc func(tx *types.Transaction) (*types.Receipt, error)

// OnchainClient is an EVM chain client.
// For EVM specifically we can use existing geth interface to abstract chain clients.
type OnchainClient interface {
	bind.ContractBackend
	bind.DeployBackend

	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
}

// Chain represents the EVM chain the deployment runs against, together with the single deployer
// identity that signs every transaction.
type Chain struct {
	Selector uint64

	Client OnchainClient
	// Note the Sign function can be abstract supporting a variety of key storage mechanisms.
	DeployerKey *bind.TransactOpts
	Confirm     ConfirmFunc
}

// ChainSelector returns the chain selector of the chain
func (c Chain) ChainSelector() uint64 {
	return c.Selector
}

// String returns chain name and selector "<name> (<selector>)"
func (c Chain) String() string {
	name, ok := utils.ChainName(c.Selector)
	if !ok {
		name = "unknown"
	}

	return fmt.Sprintf("%s (%d)", name, c.Selector)
}

// Deployer returns the address of the deployer identity.
func (c Chain) Deployer() common.Address {
	if c.DeployerKey == nil {
		return common.Address{}
	}

	return c.DeployerKey.From
}

// CallContract performs a read-only call against the latest block.
func (c Chain) CallContract(ctx context.Context, to common.Address, calldata []byte) ([]byte, error) {
	out, err := c.Client.CallContract(ctx, ethereum.CallMsg{
		From: c.Deployer(),
		To:   &to,
		Data: calldata,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("call to %s failed: %w", to.Hex(), err)
	}

	return out, nil
}

// Transact signs calldata with the deployer key, submits it to `to` and blocks until the
// transaction is confirmed. `to` may be an account without code, in which case the transaction
// is a plain value transfer. Failures to submit or confirm are returned unchanged apart from
// added context.
func (c Chain) Transact(
	ctx context.Context, to common.Address, value *big.Int, calldata []byte,
) (*types.Receipt, error) {
	if c.DeployerKey == nil {
		return nil, errors.New("chain has no deployer key")
	}
	if c.Confirm == nil {
		return nil, errors.New("chain has no confirm function")
	}

	opts := *c.DeployerKey
	opts.Context = ctx
	opts.Value = value

	// The bound contract refuses to estimate gas for a target without code.
	if opts.GasLimit == 0 {
		code, err := c.Client.CodeAt(ctx, to, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch code of %s: %w", to.Hex(), err)
		}
		if len(code) == 0 {
			gas, err := c.Client.EstimateGas(ctx, ethereum.CallMsg{
				From:  opts.From,
				To:    &to,
				Value: value,
				Data:  calldata,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to estimate gas for transfer to %s: %w", to.Hex(), err)
			}
			opts.GasLimit = gas
		}
	}

	bound := bind.NewBoundContract(to, abi.ABI{}, c.Client, c.Client, c.Client)
	tx, err := bound.RawTransact(&opts, calldata)
	if err != nil {
		return nil, fmt.Errorf("failed to submit transaction to %s: %w", to.Hex(), err)
	}

	receipt, err := c.Confirm(tx)
	if err != nil {
		return nil, err
	}

	return receipt, nil
}

// BlockTimestamp returns the timestamp of the latest block in seconds.
func (c Chain) BlockTimestamp(ctx context.Context) (uint64, error) {
	header, err := c.Client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch latest block header: %w", err)
	}

	return header.Time, nil
}

// Balance returns the native currency balance of account at the latest block.
func (c Chain) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	balance, err := c.Client.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch balance of %s: %w", account.Hex(), err)
	}

	return balance, nil
}
