package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/lmittmann/w3"
)

var (
	funcAllowance = w3.MustNewFunc("allowance(address,address)", "uint256")
	funcApprove   = w3.MustNewFunc("approve(address,uint256)", "bool")
	funcBalanceOf = w3.MustNewFunc("balanceOf(address)", "uint256")
	funcTransfer  = w3.MustNewFunc("transfer(address,uint256)", "bool")
)

// ERC20 is a fungible token. The GRVT token is bound with it.
type ERC20 struct {
	Ownable
}

// NewERC20 binds the token at address.
func NewERC20(address common.Address, backend Backend) ERC20 {
	return ERC20{NewOwnable(address, backend)}
}

func (e ERC20) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	return e.callBig(ctx, funcAllowance, owner, spender)
}

func (e ERC20) Approve(ctx context.Context, spender common.Address, amount *big.Int) (*types.Receipt, error) {
	return e.send(ctx, funcApprove, nil, spender, amount)
}

func (e ERC20) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return e.callBig(ctx, funcBalanceOf, account)
}

func (e ERC20) Transfer(ctx context.Context, to common.Address, amount *big.Int) (*types.Receipt, error) {
	return e.send(ctx, funcTransfer, nil, to, amount)
}
