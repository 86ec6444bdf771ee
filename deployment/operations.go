package deployment

import (
	"bytes"
	"math/big"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"

	"github.com/gravita-protocol/gravita-deployments/operations"
	"github.com/gravita-protocol/gravita-deployments/state"
	"github.com/gravita-protocol/gravita-deployments/timelock"
)

var version1 = semver.MustParse("1.0.0")

// Collateral registration parameters.
const (
	collateralDecimals  = 18
	collateralIsWrapped = true
	oracleIsEthIndexed  = false
	setOracleSignature  = "setOracle(address,address,uint256,bool)"
)

var (
	collateralGasCompensation = new(big.Int).Mul(big.NewInt(30), big.NewInt(params.Ether))
	oracleMaxDeviation        = big.NewInt(params.Ether / 2)
	setOracleArgTypes         = []string{"address", "address", "uint256", "bool"}
)

// TxOutput is the output of a step that sends one transaction.
type TxOutput struct {
	TxHash string `json:"txHash,omitempty"`
}

func txOutput(r *types.Receipt) TxOutput {
	if r == nil {
		return TxOutput{}
	}

	return TxOutput{TxHash: r.TxHash.Hex()}
}

type AddCollateralInput struct {
	Name  string         `json:"name"`
	Token common.Address `json:"token"`
}

type collateralRegistryDeps struct {
	Registry CollateralRegistry
}

// OpAddCollateral registers a collateral type. It is skipped when the registry already reports
// decimals for the token.
var OpAddCollateral = operations.NewOperation(
	"add-collateral",
	version1,
	"Register a collateral type on the AdminContract",
	func(b operations.Bundle, deps collateralRegistryDeps, in AddCollateralInput) (TxOutput, error) {
		receipt, err := deps.Registry.AddNewCollateral(
			b.GetContext(), in.Token, collateralGasCompensation, collateralDecimals, collateralIsWrapped,
		)
		if err != nil {
			return TxOutput{}, err
		}
		b.Logger.Infow("Collateral added", "collateral", in.Name, "token", in.Token.Hex())

		return txOutput(receipt), nil
	},
).WithPrecondition(func(b operations.Bundle, deps collateralRegistryDeps, in AddCollateralInput) (bool, error) {
	decimals, err := deps.Registry.GetDecimals(b.GetContext(), in.Token)
	if err != nil {
		return false, err
	}
	if decimals.Sign() > 0 {
		b.Logger.Infow("NOTICE: collateral has already been added before", "collateral", in.Name)
		return true, nil
	}

	return false, nil
})

// QueueCallInput is a call to schedule on a timelock. Key is the state key the queued call is
// recorded under.
type QueueCallInput struct {
	Key       string         `json:"key"`
	Timelock  common.Address `json:"timelock"`
	Target    common.Address `json:"target"`
	Signature string         `json:"signature"`
	ArgTypes  []string       `json:"argTypes"`
	ArgValues []any          `json:"argValues"`
}

type timelockDeps struct {
	Timelock  timelock.Contract
	Scheduler *timelock.Scheduler
	State     state.DeploymentState
}

// OpQueueTimelockCall queues a call on a timelock. It is skipped when the state records the same
// call as executed, or as queued and the timelock still reports it pending.
var OpQueueTimelockCall = operations.NewOperation(
	"queue-timelock-call",
	version1,
	"Queue a privileged call on a timelock",
	func(b operations.Bundle, deps timelockDeps, in QueueCallInput) (timelock.QueueResult, error) {
		return deps.Scheduler.Queue(b.GetContext(), deps.Timelock, in.Target, in.Signature, in.ArgTypes, in.ArgValues)
	},
).WithPrecondition(func(b operations.Bundle, deps timelockDeps, in QueueCallInput) (bool, error) {
	rec, ok := deps.State.Get(in.Key)
	if !ok {
		return false, nil
	}

	recorded, err := QueuedCallFromRecord(in.Key, rec)
	if err != nil {
		return false, err
	}

	same, err := recorded.sameCall(in)
	if err != nil {
		return false, err
	}
	if !same {
		b.Logger.Warnw("Recorded timelock call has different parameters. Queueing the new call",
			"key", in.Key, "id", recorded.ID.Hex())
		return false, nil
	}
	if recorded.Executed {
		b.Logger.Infow("NOTICE: timelock call was already executed", "key", in.Key, "id", recorded.ID.Hex())
		return true, nil
	}

	pending, err := deps.Scheduler.Pending(b.GetContext(), deps.Timelock, recorded.Call)
	if err != nil {
		return false, err
	}
	if !pending {
		b.Logger.Warnw("Recorded timelock call is no longer pending. Queueing it again",
			"key", in.Key, "id", recorded.ID.Hex())
		return false, nil
	}
	b.Logger.Infow("NOTICE: timelock call is already queued", "key", in.Key, "id", recorded.ID.Hex(),
		"eta", recorded.Call.ETA.String())

	return true, nil
})

// sameCall reports whether in would queue the recorded call, ignoring its ETA.
func (q QueuedCall) sameCall(in QueueCallInput) (bool, error) {
	sig, err := timelock.CanonicalSignature(in.Signature)
	if err != nil {
		return false, err
	}
	data, err := timelock.EncodeArgs(sig, in.ArgTypes, in.ArgValues)
	if err != nil {
		return false, err
	}

	return q.Timelock == in.Timelock &&
		q.Call.Target == in.Target &&
		q.Call.Signature == sig &&
		bytes.Equal(q.Call.Data, data), nil
}

type ExecuteCallInput struct {
	Key  string        `json:"key"`
	Call timelock.Call `json:"call"`
}

// OpExecuteTimelockCall executes a queued call once its ETA has passed. It is skipped when the
// state already records the call as executed.
var OpExecuteTimelockCall = operations.NewOperation(
	"execute-timelock-call",
	version1,
	"Execute a queued timelock call",
	func(b operations.Bundle, deps timelockDeps, in ExecuteCallInput) (TxOutput, error) {
		receipt, err := deps.Scheduler.Execute(b.GetContext(), deps.Timelock, in.Call)
		if err != nil {
			return TxOutput{}, err
		}

		return txOutput(receipt), nil
	},
).WithPrecondition(func(b operations.Bundle, deps timelockDeps, in ExecuteCallInput) (bool, error) {
	rec, ok := deps.State.Get(in.Key)
	if !ok {
		return false, nil
	}
	if executed, _ := rec.Meta(metaExecuted); executed == "true" {
		b.Logger.Infow("NOTICE: timelock call was already executed", "key", in.Key)
		return true, nil
	}

	return false, nil
})

type InitializeInput struct {
	Contract string         `json:"contract"`
	Address  common.Address `json:"address"`
}

type initializableDeps struct {
	Contract Initializable
}

// OpInitialize sets the initialization flag of a contract unless it is already set.
var OpInitialize = operations.NewOperation(
	"set-initialized",
	version1,
	"Mark a contract initialized",
	func(b operations.Bundle, deps initializableDeps, in InitializeInput) (TxOutput, error) {
		receipt, err := deps.Contract.SetInitialized(b.GetContext())
		if err != nil {
			return TxOutput{}, err
		}
		b.Logger.Infow("Contract initialized", "contract", in.Contract, "address", in.Address.Hex())

		return txOutput(receipt), nil
	},
).WithPrecondition(func(b operations.Bundle, deps initializableDeps, in InitializeInput) (bool, error) {
	ctx := b.GetContext()
	initialized, err := deps.Contract.IsInitialized(ctx)
	if err != nil {
		return false, err
	}
	if initialized {
		name, ok := deps.Contract.Name(ctx)
		if !ok {
			name = in.Contract
		}
		b.Logger.Infow("NOTICE: contract is already initialized", "contract", name, "address", in.Address.Hex())
	}

	return initialized, nil
})

type ApproveInput struct {
	Token   common.Address `json:"token"`
	Owner   common.Address `json:"owner"`
	Spender common.Address `json:"spender"`
}

type tokenDeps struct {
	Token Token
}

// OpApproveMax approves the maximum allowance for a spender. Any nonzero allowance counts as
// already approved.
var OpApproveMax = operations.NewOperation(
	"approve-max-allowance",
	version1,
	"Approve the maximum token allowance for a spender",
	func(b operations.Bundle, deps tokenDeps, in ApproveInput) (TxOutput, error) {
		receipt, err := deps.Token.Approve(b.GetContext(), in.Spender, math.MaxBig256)
		if err != nil {
			return TxOutput{}, err
		}

		return txOutput(receipt), nil
	},
).WithPrecondition(func(b operations.Bundle, deps tokenDeps, in ApproveInput) (bool, error) {
	allowance, err := deps.Token.Allowance(b.GetContext(), in.Owner, in.Spender)
	if err != nil {
		return false, err
	}

	return allowance.Sign() != 0, nil
})

type VestingInput struct {
	Beneficiary common.Address `json:"beneficiary"`
	// Amount is in whole tokens.
	Amount uint64 `json:"amount"`
}

type vestingDeps struct {
	Ledger VestingLedger
}

// OpAddVesting creates a vesting entry for a beneficiary that has none.
var OpAddVesting = operations.NewOperation(
	"add-entity-vesting",
	version1,
	"Create a GRVT vesting entry for a beneficiary",
	func(b operations.Bundle, deps vestingDeps, in VestingInput) (TxOutput, error) {
		b.Logger.Infow("Adding beneficiary", "beneficiary", in.Beneficiary.Hex(), "amount", in.Amount)

		amount := new(big.Int).Mul(new(big.Int).SetUint64(in.Amount), big.NewInt(params.Ether))
		receipt, err := deps.Ledger.AddEntityVesting(b.GetContext(), in.Beneficiary, amount)
		if err != nil {
			return TxOutput{}, err
		}

		return txOutput(receipt), nil
	},
).WithPrecondition(func(b operations.Bundle, deps vestingDeps, in VestingInput) (bool, error) {
	return deps.Ledger.IsEntityExists(b.GetContext(), in.Beneficiary)
})

type TransferOwnershipInput struct {
	Contract common.Address `json:"contract"`
	Name     string         `json:"name"`
	NewOwner common.Address `json:"newOwner"`
	// Role names the well-known wallet NewOwner belongs to. Empty for any other address.
	Role string `json:"role,omitempty"`
}

type ownableDeps struct {
	Contract Ownable
}

// OpTransferOwnership hands a contract to a new owner unless it already owns it. A zero new owner
// fails the precondition.
var OpTransferOwnership = operations.NewOperation(
	"transfer-ownership",
	version1,
	"Transfer contract ownership",
	func(b operations.Bundle, deps ownableDeps, in TransferOwnershipInput) (TxOutput, error) {
		if in.Role == "" {
			b.Logger.Warnw("Transferring ownership to an address that is neither Admin nor Treasury",
				"contract", in.Name, "address", in.Contract.Hex(), "newOwner", in.NewOwner.Hex())
		} else {
			b.Logger.Infow("Transferring ownership",
				"contract", in.Name, "address", in.Contract.Hex(), "newOwner", in.NewOwner.Hex(), "role", in.Role)
		}

		receipt, err := deps.Contract.TransferOwnership(b.GetContext(), in.NewOwner)
		if err != nil {
			return TxOutput{}, err
		}

		return txOutput(receipt), nil
	},
).WithPrecondition(func(b operations.Bundle, deps ownableDeps, in TransferOwnershipInput) (bool, error) {
	if in.NewOwner == (common.Address{}) {
		return false, ErrZeroOwner
	}

	owner, err := deps.Contract.Owner(b.GetContext())
	if err != nil {
		return false, err
	}

	return owner == in.NewOwner, nil
})

type SweepInput struct {
	Token common.Address `json:"token"`
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
}

type SweepOutput struct {
	TxHash string `json:"txHash,omitempty"`
	Amount string `json:"amount"`
}

// OpSweepToken transfers the whole token balance of the deployer. It is skipped when there is
// nothing to transfer.
var OpSweepToken = operations.NewOperation(
	"sweep-token-balance",
	version1,
	"Transfer the deployer's token balance",
	func(b operations.Bundle, deps tokenDeps, in SweepInput) (SweepOutput, error) {
		ctx := b.GetContext()
		balance, err := deps.Token.BalanceOf(ctx, in.From)
		if err != nil {
			return SweepOutput{}, err
		}
		b.Logger.Infow("Sending token balance", "token", in.Token.Hex(), "amount", balance.String(), "to", in.To.Hex())

		receipt, err := deps.Token.Transfer(ctx, in.To, balance)
		if err != nil {
			return SweepOutput{}, err
		}

		return SweepOutput{TxHash: txOutput(receipt).TxHash, Amount: balance.String()}, nil
	},
).WithPrecondition(func(b operations.Bundle, deps tokenDeps, in SweepInput) (bool, error) {
	balance, err := deps.Token.BalanceOf(b.GetContext(), in.From)
	if err != nil {
		return false, err
	}

	return balance.Sign() == 0, nil
})

// Operations returns a registry of every step the pipelines run.
func Operations() *operations.Registry {
	return operations.NewRegistry().MustRegister(
		SeqRegisterCollateral,
		OpAddCollateral,
		OpQueueTimelockCall,
		OpExecuteTimelockCall,
		OpInitialize,
		OpApproveMax,
		OpAddVesting,
		OpTransferOwnership,
		OpSweepToken,
	)
}
