package deployment

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/gravita-protocol/gravita-deployments/operations"
	"github.com/gravita-protocol/gravita-deployments/state"
)

const localhostNetwork = "localhost"

// OwnershipTransfer is one entry of an ownership plan.
type OwnershipTransfer struct {
	Name     string
	Contract Ownable
	NewOwner common.Address
}

// OwnershipPlan returns the contracts handed over at the end of a full deployment. The admin wallet
// receives the protocol contracts, the treasury receives the GRVT distribution contracts. The
// price feed is left alone on localhost, where a non-Ownable test feed is deployed. Entries of
// unknown contracts have a nil Contract.
func OwnershipPlan(cfg Config, core CoreContracts, grvt GRVTContracts) []OwnershipTransfer {
	admin, treasury := cfg.Wallets.Admin, cfg.Wallets.Treasury

	plan := []OwnershipTransfer{
		{NameAdminContract, core.AdminContract, admin},
		{NameDebtToken, core.DebtToken, admin},
		{NameFeeCollector, core.FeeCollector, admin},
		{NameGRVTStaking, grvt.GRVTStaking, admin},
	}
	if cfg.TargetNetwork != localhostNetwork {
		plan = append(plan, OwnershipTransfer{NamePriceFeed, core.PriceFeed, admin})
	}
	plan = append(plan,
		OwnershipTransfer{NameLockedGRVT, core.LockedGRVT, treasury},
		OwnershipTransfer{NameCommunityIssuance, grvt.CommunityIssuance, treasury},
	)

	return plan
}

func transferContractsOwnerships(ctx context.Context, dc *Context, core CoreContracts, grvt GRVTContracts) error {
	for _, t := range OwnershipPlan(dc.Config, core, grvt) {
		if t.Contract == nil {
			dc.lggr.Warnw("Contract is unknown and keeps its current owner", "contract", t.Name)
			continue
		}
		if err := transferOwnership(ctx, dc, t.Name, t.Contract, t.NewOwner); err != nil {
			return err
		}
	}

	return nil
}

// transferOwnership hands contract to newOwner unless it already owns it.
func transferOwnership(ctx context.Context, dc *Context, name string, contract Ownable, newOwner common.Address) error {
	display, ok := contract.Name(ctx)
	if !ok {
		display = name
	}

	report, err := operations.ExecuteOperation(dc.bundle, OpTransferOwnership,
		ownableDeps{Contract: contract},
		TransferOwnershipInput{
			Contract: contract.Address(),
			Name:     display,
			NewOwner: newOwner,
			Role:     dc.roleOf(newOwner),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to transfer ownership of %s: %w", name, err)
	}
	if report.Skipped {
		return nil
	}

	return dc.Record(ctx, name, state.Record{
		Address: contract.Address().Hex(),
		Metadata: map[string]string{
			"owner":           newOwner.Hex(),
			"ownershipTxHash": report.Output.TxHash,
		},
	})
}
