package deployment

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/gravita-protocol/gravita-deployments/operations"
	"github.com/gravita-protocol/gravita-deployments/pkg/logger"
	"github.com/gravita-protocol/gravita-deployments/state"
	"github.com/gravita-protocol/gravita-deployments/timelock"
)

// Mode selects the pipeline a run executes. The pipelines are mutually exclusive.
type Mode int

const (
	// ModeFull connects the core contracts, registers collateral and initializes the protocol.
	ModeFull Mode = iota
	// ModeGRVTOnly deploys the GRVT token contracts and vests the beneficiaries.
	ModeGRVTOnly
)

func (m Mode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeGRVTOnly:
		return "grvt-only"
	default:
		return "unknown"
	}
}

// Wallets are the well-known accounts of a deployment.
type Wallets struct {
	Deployer common.Address
	Admin    common.Address
	Treasury common.Address
}

// CollateralConfig is a collateral type to register. An empty token or oracle address means the
// collateral is not part of this deployment.
type CollateralConfig struct {
	Name   string
	Token  string
	Oracle string
}

// Config is the input of a deployment run.
type Config struct {
	// TargetNetwork is the network name. "localhost" disables steps that test networks cannot run.
	TargetNetwork string
	Wallets       Wallets
	Collaterals   []CollateralConfig
	// Beneficiaries maps a wallet to its vested GRVT amount in whole tokens.
	Beneficiaries     map[common.Address]uint64
	Mode              Mode
	TransferOwnership bool
}

// Ownable is a contract with a transferable owner.
type Ownable interface {
	Address() common.Address
	// Name returns the NAME() of the contract, and false when it cannot be read.
	Name(ctx context.Context) (string, bool)
	Owner(ctx context.Context) (common.Address, error)
	TransferOwnership(ctx context.Context, newOwner common.Address) (*types.Receipt, error)
}

// Initializable is a contract with a one-way initialization flag.
type Initializable interface {
	Ownable
	IsInitialized(ctx context.Context) (bool, error)
	SetInitialized(ctx context.Context) (*types.Receipt, error)
}

// CollateralRegistry registers collateral types.
type CollateralRegistry interface {
	Initializable
	GetDecimals(ctx context.Context, collateral common.Address) (*big.Int, error)
	AddNewCollateral(
		ctx context.Context, collateral common.Address, gasCompensation *big.Int, decimals uint64, isWrapped bool,
	) (*types.Receipt, error)
}

// Token is an ERC20 token.
type Token interface {
	Ownable
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
	Approve(ctx context.Context, spender common.Address, amount *big.Int) (*types.Receipt, error)
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
	Transfer(ctx context.Context, to common.Address, amount *big.Int) (*types.Receipt, error)
}

// VestingLedger holds vesting entries for beneficiaries.
type VestingLedger interface {
	Ownable
	IsEntityExists(ctx context.Context, beneficiary common.Address) (bool, error)
	AddEntityVesting(ctx context.Context, beneficiary common.Address, amount *big.Int) (*types.Receipt, error)
}

// Logical contract names. They are the state keys contract addresses are recorded under.
const (
	NameAdminContract     = "adminContract"
	NameDebtToken         = "debtToken"
	NameFeeCollector      = "feeCollector"
	NamePriceFeed         = "priceFeed"
	NameLockedGRVT        = "lockedGrvt"
	NameShortTimelock     = "shortTimelock"
	NameLongTimelock      = "longTimelock"
	NameGRVTToken         = "GRVTToken"
	NameGRVTStaking       = "GRVTStaking"
	NameCommunityIssuance = "communityIssuance"
)

// CoreContracts are the protocol contracts. Optional contracts may be nil.
type CoreContracts struct {
	AdminContract CollateralRegistry
	DebtToken     Initializable
	PriceFeed     Ownable
	ShortTimelock timelock.Contract

	FeeCollector Ownable
	LockedGRVT   Ownable
	LongTimelock timelock.Contract
}

// Addresses returns the address of every known contract keyed by logical name.
func (c CoreContracts) Addresses() map[string]common.Address {
	out := map[string]common.Address{}
	for name, has := range map[string]interface{ Address() common.Address }{
		NameAdminContract: c.AdminContract,
		NameDebtToken:     c.DebtToken,
		NamePriceFeed:     c.PriceFeed,
		NameShortTimelock: c.ShortTimelock,
		NameFeeCollector:  c.FeeCollector,
		NameLockedGRVT:    c.LockedGRVT,
		NameLongTimelock:  c.LongTimelock,
	} {
		if has != nil {
			out[name] = has.Address()
		}
	}

	return out
}

// Timelock returns the timelock recorded under name.
func (c CoreContracts) Timelock(name string) (timelock.Contract, bool) {
	switch name {
	case NameShortTimelock:
		return c.ShortTimelock, c.ShortTimelock != nil
	case NameLongTimelock:
		return c.LongTimelock, c.LongTimelock != nil
	default:
		return nil, false
	}
}

func (c CoreContracts) validate() error {
	switch {
	case c.AdminContract == nil:
		return missing(NameAdminContract)
	case c.DebtToken == nil:
		return missing(NameDebtToken)
	case c.PriceFeed == nil:
		return missing(NamePriceFeed)
	case c.ShortTimelock == nil:
		return missing(NameShortTimelock)
	}

	return nil
}

// GRVTContracts are the GRVT token contracts. Contracts not deployed yet are nil.
type GRVTContracts struct {
	GRVTToken         Token
	LockedGRVT        VestingLedger
	GRVTStaking       Ownable
	CommunityIssuance Ownable
}

// Addresses returns the address of every known contract keyed by logical name.
func (g GRVTContracts) Addresses() map[string]common.Address {
	out := map[string]common.Address{}
	for name, has := range map[string]interface{ Address() common.Address }{
		NameGRVTToken:         g.GRVTToken,
		NameLockedGRVT:        g.LockedGRVT,
		NameGRVTStaking:       g.GRVTStaking,
		NameCommunityIssuance: g.CommunityIssuance,
	} {
		if has != nil {
			out[name] = has.Address()
		}
	}

	return out
}

// CoreDeployer loads or deploys the core contracts. Compiling artifacts and deploying bytecode
// happen behind this interface.
type CoreDeployer interface {
	// LoadOrDeploy returns the core contracts, deploying those the prior state does not know.
	LoadOrDeploy(ctx context.Context, prior state.DeploymentState) (CoreContracts, error)
	// Connect wires the core contracts to each other and to the GRVT contracts.
	Connect(ctx context.Context, core CoreContracts, grvt GRVTContracts, treasury common.Address) error
	// DeployPartially returns the GRVT token and LockedGRVT contracts for the GRVT-only pipeline.
	DeployPartially(ctx context.Context, treasury common.Address, prior state.DeploymentState) (GRVTContracts, error)
}

// GRVTLoader is implemented by a CoreDeployer that can also return the GRVT contracts of an
// earlier GRVT deployment. The full pipeline runs without them when it is not implemented.
type GRVTLoader interface {
	LoadGRVT(ctx context.Context, prior state.DeploymentState) (GRVTContracts, error)
}

// Chain is what the pipelines read directly from the chain.
type Chain interface {
	// Deployer returns the address that signs every transaction.
	Deployer() common.Address
	Balance(ctx context.Context, account common.Address) (*big.Int, error)
	BlockTimestamp(ctx context.Context) (uint64, error)
}

// Environment holds the collaborators of a deployment run.
type Environment struct {
	Logger   logger.Logger
	Chain    Chain
	Store    state.Store
	Deployer CoreDeployer
	// Reporter collects operation reports. Defaults to an in-memory reporter.
	Reporter operations.Reporter
}
