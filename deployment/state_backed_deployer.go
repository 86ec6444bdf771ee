package deployment

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/gravita-protocol/gravita-deployments/chain/evm"
	"github.com/gravita-protocol/gravita-deployments/contracts"
	"github.com/gravita-protocol/gravita-deployments/pkg/logger"
	"github.com/gravita-protocol/gravita-deployments/state"
)

var (
	_ CollateralRegistry = contracts.AdminContract{}
	_ Initializable      = contracts.Initializable{}
	_ Ownable            = contracts.Ownable{}
	_ Token              = contracts.ERC20{}
	_ VestingLedger      = contracts.LockedGRVT{}
	_ Chain              = evm.Chain{}

	_ CoreDeployer = (*StateBackedDeployer)(nil)
	_ GRVTLoader   = (*StateBackedDeployer)(nil)
)

// StateBackedDeployer is a CoreDeployer for contracts that are already deployed. It binds every
// contract at the address recorded in the deployment state, falling back to the configured
// address. It never deploys bytecode: a contract with no known address is ErrContractMissing.
type StateBackedDeployer struct {
	lggr      logger.Logger
	backend   contracts.Backend
	addresses map[string]common.Address
}

// NewStateBackedDeployer returns a deployer binding contracts through backend. addresses maps
// logical contract names to configured addresses.
func NewStateBackedDeployer(
	lggr logger.Logger, backend contracts.Backend, addresses map[string]common.Address,
) *StateBackedDeployer {
	return &StateBackedDeployer{
		lggr:      lggr.Named("core_deployer"),
		backend:   backend,
		addresses: addresses,
	}
}

// resolve returns the address of the named contract. ok is false when it is unknown.
func (d *StateBackedDeployer) resolve(prior state.DeploymentState, name string) (common.Address, bool, error) {
	configured, hasConfigured := d.addresses[name]
	hasConfigured = hasConfigured && configured != (common.Address{})

	rec, ok := prior.Get(name)
	if !ok || rec.Address == "" {
		return configured, hasConfigured, nil
	}
	if !common.IsHexAddress(rec.Address) {
		return common.Address{}, false, fmt.Errorf("%w: %s has invalid address %q",
			state.ErrCorruptState, name, rec.Address)
	}

	recorded := common.HexToAddress(rec.Address)
	if hasConfigured && configured != recorded {
		d.lggr.Warnw("Configured address differs from the recorded deployment. Using the recorded address",
			"contract", name, "configured", configured.Hex(), "recorded", recorded.Hex())
	}

	return recorded, true, nil
}

func (d *StateBackedDeployer) require(prior state.DeploymentState, name string) (common.Address, error) {
	addr, ok, err := d.resolve(prior, name)
	if err != nil {
		return common.Address{}, err
	}
	if !ok {
		return common.Address{}, missing(name)
	}

	return addr, nil
}

func (d *StateBackedDeployer) LoadOrDeploy(ctx context.Context, prior state.DeploymentState) (CoreContracts, error) {
	var core CoreContracts

	for _, name := range []string{NameAdminContract, NameDebtToken, NamePriceFeed, NameShortTimelock} {
		addr, err := d.require(prior, name)
		if err != nil {
			return CoreContracts{}, err
		}

		switch name {
		case NameAdminContract:
			core.AdminContract = contracts.NewAdminContract(addr, d.backend)
		case NameDebtToken:
			core.DebtToken = contracts.NewInitializable(addr, d.backend)
		case NamePriceFeed:
			core.PriceFeed = contracts.NewOwnable(addr, d.backend)
		case NameShortTimelock:
			core.ShortTimelock = contracts.NewTimelock(addr, d.backend)
		}
	}

	for _, name := range []string{NameFeeCollector, NameLockedGRVT, NameLongTimelock} {
		addr, ok, err := d.resolve(prior, name)
		if err != nil {
			return CoreContracts{}, err
		}
		if !ok {
			d.lggr.Debugw("Optional core contract is unknown", "contract", name)
			continue
		}

		switch name {
		case NameFeeCollector:
			core.FeeCollector = contracts.NewOwnable(addr, d.backend)
		case NameLockedGRVT:
			core.LockedGRVT = contracts.NewLockedGRVT(addr, d.backend)
		case NameLongTimelock:
			core.LongTimelock = contracts.NewTimelock(addr, d.backend)
		}
	}

	d.lggr.Infow("Loaded core contracts", "count", len(core.Addresses()))

	return core, nil
}

// Connect only reports what it was given. Contracts loaded from an earlier deployment were wired
// by the deployment that created them.
func (d *StateBackedDeployer) Connect(_ context.Context, core CoreContracts, grvt GRVTContracts, treasury common.Address) error {
	d.lggr.Infow("Core contracts are already connected",
		"core", len(core.Addresses()), "grvt", len(grvt.Addresses()), "treasury", treasury.Hex())

	return nil
}

func (d *StateBackedDeployer) LoadGRVT(_ context.Context, prior state.DeploymentState) (GRVTContracts, error) {
	var grvt GRVTContracts
	for _, name := range []string{NameGRVTToken, NameLockedGRVT, NameGRVTStaking, NameCommunityIssuance} {
		addr, err := d.require(prior, name)
		if err != nil {
			return GRVTContracts{}, err
		}

		switch name {
		case NameGRVTToken:
			grvt.GRVTToken = contracts.NewERC20(addr, d.backend)
		case NameLockedGRVT:
			grvt.LockedGRVT = contracts.NewLockedGRVT(addr, d.backend)
		case NameGRVTStaking:
			grvt.GRVTStaking = contracts.NewOwnable(addr, d.backend)
		case NameCommunityIssuance:
			grvt.CommunityIssuance = contracts.NewOwnable(addr, d.backend)
		}
	}

	return grvt, nil
}

func (d *StateBackedDeployer) DeployPartially(
	_ context.Context, treasury common.Address, prior state.DeploymentState,
) (GRVTContracts, error) {
	token, err := d.require(prior, NameGRVTToken)
	if err != nil {
		return GRVTContracts{}, err
	}
	locked, err := d.require(prior, NameLockedGRVT)
	if err != nil {
		return GRVTContracts{}, err
	}

	d.lggr.Infow("Loaded GRVT contracts", "token", token.Hex(), "lockedGrvt", locked.Hex(), "treasury", treasury.Hex())

	return GRVTContracts{
		GRVTToken:  contracts.NewERC20(token, d.backend),
		LockedGRVT: contracts.NewLockedGRVT(locked, d.backend),
	}, nil
}
