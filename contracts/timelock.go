package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/lmittmann/w3"

	"github.com/gravita-protocol/gravita-deployments/timelock"
)

var (
	funcDelay              = w3.MustNewFunc("delay()", "uint256")
	funcGracePeriod        = w3.MustNewFunc("GRACE_PERIOD()", "uint256")
	funcQueuedTransactions = w3.MustNewFunc("queuedTransactions(bytes32)", "bool")
	funcQueueTransaction   = w3.MustNewFunc(
		"queueTransaction(address,uint256,string,bytes,uint256)", "bytes32",
	)
	funcExecuteTransaction = w3.MustNewFunc(
		"executeTransaction(address,uint256,string,bytes,uint256)", "bytes",
	)
)

// Timelock is a compound-style timelock. The short and long Gravita timelocks share this ABI.
type Timelock struct {
	bound
}

var _ timelock.Contract = Timelock{}

// NewTimelock binds the timelock at address.
func NewTimelock(address common.Address, backend Backend) Timelock {
	return Timelock{bound{address: address, backend: backend}}
}

func (t Timelock) Delay(ctx context.Context) (*big.Int, error) {
	return t.callBig(ctx, funcDelay)
}

func (t Timelock) GracePeriod(ctx context.Context) (*big.Int, error) {
	return t.callBig(ctx, funcGracePeriod)
}

func (t Timelock) QueuedTransactions(ctx context.Context, id common.Hash) (bool, error) {
	return t.callBool(ctx, funcQueuedTransactions, id)
}

func (t Timelock) QueueTransaction(
	ctx context.Context, target common.Address, value *big.Int, signature string, data []byte, eta *big.Int,
) (*types.Receipt, error) {
	return t.send(ctx, funcQueueTransaction, nil, target, value, signature, data, eta)
}

// ExecuteTransaction forwards value with the call, as the timelock requires msg.value to match.
func (t Timelock) ExecuteTransaction(
	ctx context.Context, target common.Address, value *big.Int, signature string, data []byte, eta *big.Int,
) (*types.Receipt, error) {
	return t.send(ctx, funcExecuteTransaction, value, target, value, signature, data, eta)
}
