// Package contracts holds minimal bindings for the Gravita contracts the deployment touches.
//
// Bindings encode calls with w3 function descriptors and submit them through a Backend, which is
// satisfied by evm.Chain. Only the methods the deployment reads or writes are bound.
package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/lmittmann/w3"

	"github.com/gravita-protocol/gravita-deployments/chain/evm"
)

// Backend reads from and transacts against contracts on a single chain.
type Backend interface {
	CallContract(ctx context.Context, to common.Address, calldata []byte) ([]byte, error)
	Transact(ctx context.Context, to common.Address, value *big.Int, calldata []byte) (*types.Receipt, error)
}

var _ Backend = evm.Chain{}

var (
	funcName              = w3.MustNewFunc("NAME()", "string")
	funcOwner             = w3.MustNewFunc("owner()", "address")
	funcTransferOwnership = w3.MustNewFunc("transferOwnership(address)", "")
	funcIsInitialized     = w3.MustNewFunc("isInitialized()", "bool")
	funcSetInitialized    = w3.MustNewFunc("setInitialized()", "")
)

// bound is a contract address paired with the backend used to reach it.
type bound struct {
	address common.Address
	backend Backend
}

func (b bound) Address() common.Address {
	return b.address
}

func (b bound) call(ctx context.Context, fn *w3.Func, returns []any, args ...any) error {
	input, err := fn.EncodeArgs(args...)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", fn.Signature, err)
	}

	out, err := b.backend.CallContract(ctx, b.address, input)
	if err != nil {
		return fmt.Errorf("%s on %s: %w", fn.Signature, b.address.Hex(), err)
	}

	if err = fn.DecodeReturns(out, returns...); err != nil {
		return fmt.Errorf("failed to decode %s from %s: %w", fn.Signature, b.address.Hex(), err)
	}

	return nil
}

func (b bound) send(ctx context.Context, fn *w3.Func, value *big.Int, args ...any) (*types.Receipt, error) {
	input, err := fn.EncodeArgs(args...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", fn.Signature, err)
	}

	receipt, err := b.backend.Transact(ctx, b.address, value, input)
	if err != nil {
		return nil, fmt.Errorf("%s on %s: %w", fn.Signature, b.address.Hex(), err)
	}

	return receipt, nil
}

func (b bound) callBig(ctx context.Context, fn *w3.Func, args ...any) (*big.Int, error) {
	var v big.Int
	if err := b.call(ctx, fn, []any{&v}, args...); err != nil {
		return nil, err
	}

	return &v, nil
}

func (b bound) callBool(ctx context.Context, fn *w3.Func, args ...any) (bool, error) {
	var v bool
	if err := b.call(ctx, fn, []any{&v}, args...); err != nil {
		return false, err
	}

	return v, nil
}

// Named is embedded by contracts exposing a NAME() accessor.
type Named struct {
	bound
}

// Name returns the NAME() of the contract. The lookup is optional metadata: ok is false when the
// contract does not expose the accessor or the read fails.
func (n Named) Name(ctx context.Context) (name string, ok bool) {
	if err := n.call(ctx, funcName, []any{&name}); err != nil {
		return "", false
	}

	return name, true
}

// Ownable is a contract with a single transferable owner.
type Ownable struct {
	Named
}

// NewOwnable binds an Ownable contract at address.
func NewOwnable(address common.Address, backend Backend) Ownable {
	return Ownable{Named{bound{address: address, backend: backend}}}
}

// Owner returns the current owner.
func (o Ownable) Owner(ctx context.Context) (common.Address, error) {
	var owner common.Address
	if err := o.call(ctx, funcOwner, []any{&owner}); err != nil {
		return common.Address{}, err
	}

	return owner, nil
}

// TransferOwnership hands the contract over to newOwner.
func (o Ownable) TransferOwnership(ctx context.Context, newOwner common.Address) (*types.Receipt, error) {
	return o.send(ctx, funcTransferOwnership, nil, newOwner)
}

// Initializable is an Ownable contract with a one-way initialization flag.
type Initializable struct {
	Ownable
}

// NewInitializable binds an Initializable contract at address.
func NewInitializable(address common.Address, backend Backend) Initializable {
	return Initializable{NewOwnable(address, backend)}
}

// IsInitialized reports whether setInitialized has been called.
func (i Initializable) IsInitialized(ctx context.Context) (bool, error) {
	return i.callBool(ctx, funcIsInitialized)
}

// SetInitialized sets the initialization flag.
func (i Initializable) SetInitialized(ctx context.Context) (*types.Receipt, error) {
	return i.send(ctx, funcSetInitialized, nil)
}
