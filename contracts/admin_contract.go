package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/lmittmann/w3"
)

var (
	funcGetDecimals      = w3.MustNewFunc("getDecimals(address)", "uint256")
	funcAddNewCollateral = w3.MustNewFunc("addNewCollateral(address,uint256,uint256,bool)", "")
)

// AdminContract is the Gravita collateral registry.
type AdminContract struct {
	Initializable
}

// NewAdminContract binds the AdminContract at address.
func NewAdminContract(address common.Address, backend Backend) AdminContract {
	return AdminContract{NewInitializable(address, backend)}
}

// GetDecimals returns the decimals registered for collateral. Zero means the collateral is not
// registered.
func (a AdminContract) GetDecimals(ctx context.Context, collateral common.Address) (*big.Int, error) {
	return a.callBig(ctx, funcGetDecimals, collateral)
}

// AddNewCollateral registers collateral with its gas compensation and decimals.
func (a AdminContract) AddNewCollateral(
	ctx context.Context, collateral common.Address, gasCompensation *big.Int, decimals uint64, isWrapped bool,
) (*types.Receipt, error) {
	return a.send(ctx, funcAddNewCollateral, nil, collateral, gasCompensation, new(big.Int).SetUint64(decimals), isWrapped)
}
