package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/lmittmann/w3"
)

var (
	funcIsEntityExits    = w3.MustNewFunc("isEntityExits(address)", "bool")
	funcAddEntityVesting = w3.MustNewFunc("addEntityVesting(address,uint256)", "")
)

// LockedGRVT holds vesting entries for GRVT beneficiaries.
type LockedGRVT struct {
	Ownable
}

// NewLockedGRVT binds the LockedGRVT contract at address.
func NewLockedGRVT(address common.Address, backend Backend) LockedGRVT {
	return LockedGRVT{NewOwnable(address, backend)}
}

// IsEntityExists reports whether beneficiary already has a vesting entry.
func (l LockedGRVT) IsEntityExists(ctx context.Context, beneficiary common.Address) (bool, error) {
	return l.callBool(ctx, funcIsEntityExits, beneficiary)
}

// AddEntityVesting creates a vesting entry of amount (in wei) for beneficiary.
func (l LockedGRVT) AddEntityVesting(
	ctx context.Context, beneficiary common.Address, amount *big.Int,
) (*types.Receipt, error) {
	return l.send(ctx, funcAddEntityVesting, nil, beneficiary, amount)
}
