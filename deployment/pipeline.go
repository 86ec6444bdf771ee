package deployment

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"

	"github.com/gravita-protocol/gravita-deployments/operations"
	"github.com/gravita-protocol/gravita-deployments/state"
)

// Run executes one deployment. Every step first checks whether its effect is already on chain,
// so a failed run can simply be started again: it resumes from the last persisted state.
//
// The first failing step aborts the run and its error is returned. The deployment state is left
// as of the last step that succeeded.
func Run(ctx context.Context, env Environment, cfg Config) (err error) {
	defer func() { err = withRevertData(err) }()

	dc, err := NewContext(ctx, env, cfg)
	if err != nil {
		return err
	}
	if err = dc.checkIdentity(); err != nil {
		return err
	}
	if err = dc.reportBalance(ctx); err != nil {
		return err
	}

	dc.lggr.Infow("Starting deployment", "mode", cfg.Mode.String(), "network", cfg.TargetNetwork)

	switch cfg.Mode {
	case ModeFull:
		err = runFull(ctx, dc)
	case ModeGRVTOnly:
		err = runGRVTOnly(ctx, dc)
	default:
		err = fmt.Errorf("unknown deployment mode %d", cfg.Mode)
	}
	dc.logSummary()
	if err != nil {
		return err
	}

	return dc.reportBalance(ctx)
}

// runFull connects the core contracts, registers collateral, initializes the protocol and
// optionally hands the contracts over to the admin and treasury wallets.
func runFull(ctx context.Context, dc *Context) error {
	core, err := dc.deployer.LoadOrDeploy(ctx, dc.State.Clone())
	if err != nil {
		return fmt.Errorf("failed to load core contracts: %w", err)
	}
	if err = core.validate(); err != nil {
		return err
	}
	if err = dc.recordAddresses(ctx, core.Addresses()); err != nil {
		return err
	}

	grvt, err := loadGRVT(ctx, dc)
	if err != nil {
		return err
	}

	treasury := dc.Config.Wallets.Treasury
	if err = dc.deployer.Connect(ctx, core, grvt, treasury); err != nil {
		return fmt.Errorf("failed to connect core contracts: %w", err)
	}

	if err = addCollaterals(dc, core); err != nil {
		return err
	}

	if grvt.GRVTToken != nil && grvt.CommunityIssuance != nil {
		if err = approveMax(dc, grvt.GRVTToken, grvt.CommunityIssuance.Address()); err != nil {
			return fmt.Errorf("failed to approve GRVT allowance for community issuance: %w", err)
		}
	}

	if err = initialize(ctx, dc, NameAdminContract, core.AdminContract); err != nil {
		return err
	}
	if err = initialize(ctx, dc, NameDebtToken, core.DebtToken); err != nil {
		return err
	}

	if err = dc.Persist(ctx); err != nil {
		return err
	}

	if !dc.Config.TransferOwnership {
		return nil
	}

	return transferContractsOwnerships(ctx, dc, core, grvt)
}

// loadGRVT returns the GRVT contracts of an earlier GRVT deployment, or none when the deployer
// cannot provide them.
func loadGRVT(ctx context.Context, dc *Context) (GRVTContracts, error) {
	loader, ok := dc.deployer.(GRVTLoader)
	if !ok {
		return GRVTContracts{}, nil
	}

	grvt, err := loader.LoadGRVT(ctx, dc.State.Clone())
	if errors.Is(err, ErrContractMissing) {
		dc.lggr.Infow("GRVT contracts are not deployed. Continuing without them", "reason", err.Error())
		return GRVTContracts{}, nil
	}
	if err != nil {
		return GRVTContracts{}, fmt.Errorf("failed to load GRVT contracts: %w", err)
	}
	if err = dc.recordAddresses(ctx, grvt.Addresses()); err != nil {
		return GRVTContracts{}, err
	}

	return grvt, nil
}

// runGRVTOnly deploys the GRVT token and LockedGRVT, vests every beneficiary, then hands
// LockedGRVT and the remaining GRVT balance to the treasury.
func runGRVTOnly(ctx context.Context, dc *Context) error {
	treasury := dc.Config.Wallets.Treasury
	deployer := dc.chain.Deployer()

	grvt, err := dc.deployer.DeployPartially(ctx, treasury, dc.State.Clone())
	if err != nil {
		return fmt.Errorf("failed to deploy GRVT contracts: %w", err)
	}
	if grvt.GRVTToken == nil {
		return missing(NameGRVTToken)
	}
	if grvt.LockedGRVT == nil {
		return missing(NameLockedGRVT)
	}
	if err = dc.recordAddresses(ctx, grvt.Addresses()); err != nil {
		return err
	}

	if err = approveMax(dc, grvt.GRVTToken, grvt.LockedGRVT.Address()); err != nil {
		return fmt.Errorf("failed to approve GRVT allowance for LockedGRVT: %w", err)
	}

	if err = vestBeneficiaries(ctx, dc, grvt.LockedGRVT); err != nil {
		return err
	}

	if err = transferOwnership(ctx, dc, NameLockedGRVT, grvt.LockedGRVT, treasury); err != nil {
		return err
	}

	_, err = operations.ExecuteOperation(dc.bundle, OpSweepToken,
		tokenDeps{Token: grvt.GRVTToken},
		SweepInput{Token: grvt.GRVTToken.Address(), From: deployer, To: treasury},
	)
	if err != nil {
		return fmt.Errorf("failed to send GRVT balance to treasury: %w", err)
	}

	return nil
}

// vestBeneficiaries creates a vesting entry for every beneficiary with a nonzero amount, in
// address order. Each entry is persisted under the beneficiary address once confirmed.
func vestBeneficiaries(ctx context.Context, dc *Context, ledger VestingLedger) error {
	wallets := make([]common.Address, 0, len(dc.Config.Beneficiaries))
	for w := range dc.Config.Beneficiaries {
		wallets = append(wallets, w)
	}
	slices.SortFunc(wallets, func(a, b common.Address) int { return a.Cmp(b) })

	for _, wallet := range wallets {
		amount := dc.Config.Beneficiaries[wallet]
		if amount == 0 {
			continue
		}

		report, err := operations.ExecuteOperation(dc.bundle, OpAddVesting,
			vestingDeps{Ledger: ledger},
			VestingInput{Beneficiary: wallet, Amount: amount},
		)
		if err != nil {
			return fmt.Errorf("failed to add vesting for %s: %w", wallet.Hex(), err)
		}
		if report.Skipped {
			continue
		}

		if err = dc.Record(ctx, wallet.Hex(), state.Record{
			TxHash:   report.Output.TxHash,
			Metadata: map[string]string{"amount": fmt.Sprint(amount)},
		}); err != nil {
			return err
		}
	}

	return nil
}

func initialize(ctx context.Context, dc *Context, name string, contract Initializable) error {
	report, err := operations.ExecuteOperation(dc.bundle, OpInitialize,
		initializableDeps{Contract: contract},
		InitializeInput{Contract: name, Address: contract.Address()},
	)
	if err != nil {
		return fmt.Errorf("failed to initialize %s: %w", name, err)
	}
	if report.Skipped {
		return nil
	}

	return dc.Record(ctx, name, state.Record{Metadata: map[string]string{
		"initialized":       "true",
		"initializedTxHash": report.Output.TxHash,
	}})
}

// approveMax approves the maximum GRVT allowance of the deployer for spender unless any
// allowance exists.
func approveMax(dc *Context, token Token, spender common.Address) error {
	_, err := operations.ExecuteOperation(dc.bundle, OpApproveMax,
		tokenDeps{Token: token},
		ApproveInput{Token: token.Address(), Owner: dc.chain.Deployer(), Spender: spender},
	)

	return err
}
