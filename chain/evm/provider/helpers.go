package provider

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrReverted matches every RevertError.
var ErrReverted = errors.New("transaction reverted")

// RevertError is returned for a transaction that was mined with a failed status.
type RevertError struct {
	TxHash   common.Hash
	Selector uint64
	// Reason is the decoded revert reason. Empty when it could not be recovered.
	Reason string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("tx %s reverted, could not decode error reason for selector %d",
			e.TxHash.Hex(), e.Selector)
	}

	return fmt.Sprintf("tx %s reverted for selector %d: %s", e.TxHash.Hex(), e.Selector, e.Reason)
}

func (e *RevertError) Unwrap() error { return ErrReverted }

// ContractCaller is the subset of the go-ethereum client used to replay reverted transactions.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// revertError builds the error of a reverted transaction. The reason is recovered by replaying
// the call at the block it was mined in.
func revertError(
	ctx context.Context,
	caller ContractCaller,
	from common.Address,
	selector uint64,
	tx *types.Transaction,
	receipt *types.Receipt,
) error {
	reason, _ := getErrorReasonFromTx(ctx, caller, from, tx, receipt)

	return &RevertError{TxHash: tx.Hash(), Selector: selector, Reason: reason}
}

// getErrorReasonFromTx replays tx as a call. A replay that succeeds means the revert depended on
// state that has changed since, and yields no reason.
func getErrorReasonFromTx(
	ctx context.Context,
	caller ContractCaller,
	from common.Address,
	tx *types.Transaction,
	receipt *types.Receipt,
) (string, error) {
	_, callErr := caller.CallContract(ctx, ethereum.CallMsg{
		From:     from,
		To:       tx.To(),
		Data:     tx.Data(),
		Value:    tx.Value(),
		Gas:      tx.Gas(),
		GasPrice: tx.GasPrice(),
	}, receipt.BlockNumber)
	if callErr == nil {
		return "", fmt.Errorf("tx %s reverted with no reason", tx.Hash().Hex())
	}

	if reason, err := getJSONErrorData(callErr); err == nil {
		return reason, nil
	}

	// Plain errors, e.g. from the simulated backend, carry the reason in the message.
	return callErr.Error(), nil
}

// rpcDataError matches the private json error type of the go-ethereum rpc client.
type rpcDataError interface {
	error
	ErrorCode() int
	ErrorData() any
}

// getJSONErrorData returns the data attached to an RPC error, decoded when it is an
// Error(string) revert.
func getJSONErrorData(err error) (string, error) {
	if err == nil {
		return "", errors.New("cannot parse nil error")
	}

	var rerr rpcDataError
	if !errors.As(err, &rerr) {
		return "", fmt.Errorf("error must be of type jsonError: %w", err)
	}

	data := fmt.Sprintf("%s", rerr.ErrorData())
	if data == "" && strings.Contains(rerr.Error(), "missing trie node") {
		return "", errors.New("missing trie node, likely due to not using an archive node")
	}

	return decodeRevertData(data), nil
}

// decodeRevertData turns hex encoded Error(string) revert data into its message. Anything else
// is returned as is.
func decodeRevertData(data string) string {
	raw, err := hexutil.Decode(data)
	if err != nil {
		return data
	}

	reason, err := abi.UnpackRevert(raw)
	if err != nil {
		return data
	}

	return reason
}
