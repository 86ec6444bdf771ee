package timelock

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/gravita-protocol/gravita-deployments/pkg/logger"
)

var (
	ErrNotEligible        = errors.New("timelock call is not yet eligible for execution")
	ErrGracePeriodExpired = errors.New("timelock call grace period has expired")
	ErrNotQueued          = errors.New("timelock call is not queued")
)

// Contract is the on-chain timelock.
type Contract interface {
	Address() common.Address
	Delay(ctx context.Context) (*big.Int, error)
	GracePeriod(ctx context.Context) (*big.Int, error)
	QueuedTransactions(ctx context.Context, id common.Hash) (bool, error)
	QueueTransaction(
		ctx context.Context, target common.Address, value *big.Int, signature string, data []byte, eta *big.Int,
	) (*types.Receipt, error)
	ExecuteTransaction(
		ctx context.Context, target common.Address, value *big.Int, signature string, data []byte, eta *big.Int,
	) (*types.Receipt, error)
}

// Clock reads the timestamp of the latest block.
type Clock interface {
	BlockTimestamp(ctx context.Context) (uint64, error)
}

// QueueResult describes a queued call.
type QueueResult struct {
	Call Call `json:"call"`
	// ID is the identifier the timelock tracks the call under.
	ID common.Hash `json:"id"`
	// QueueTxHash is the hash of the transaction that queued the call.
	QueueTxHash common.Hash `json:"queueTxHash"`
	// Pending reports whether the timelock confirmed the call as queued after submission. When
	// false the call must not be assumed to be scheduled.
	Pending bool `json:"pending"`
}

// ETA returns the earliest execution time of the queued call.
func (r QueueResult) ETA() *big.Int {
	return r.Call.ETA
}

// Scheduler queues and executes calls on timelock contracts.
type Scheduler struct {
	lggr  logger.Logger
	clock Clock
}

// NewScheduler returns a Scheduler reading chain time from clock.
func NewScheduler(lggr logger.Logger, clock Clock) *Scheduler {
	return &Scheduler{
		lggr:  lggr.Named("timelock"),
		clock: clock,
	}
}

// Prepare builds the call that Queue would submit now, without submitting anything. The delay
// and the chain timestamp are read fresh on every call.
func (s *Scheduler) Prepare(
	ctx context.Context, tl Contract, target common.Address, signature string, argTypes []string, argValues []any,
) (Call, error) {
	canonicalSig, err := CanonicalSignature(signature)
	if err != nil {
		return Call{}, err
	}
	if canonicalSig != signature {
		s.lggr.Debugw("Normalized method signature", "given", signature, "canonical", canonicalSig)
	}

	data, err := EncodeArgs(canonicalSig, argTypes, argValues)
	if err != nil {
		return Call{}, err
	}

	delay, err := tl.Delay(ctx)
	if err != nil {
		return Call{}, fmt.Errorf("failed to read delay of timelock %s: %w", tl.Address().Hex(), err)
	}

	now, err := s.clock.BlockTimestamp(ctx)
	if err != nil {
		return Call{}, err
	}

	return Call{
		Target:    target,
		Value:     new(big.Int),
		Signature: canonicalSig,
		Data:      data,
		ETA:       ComputeETA(now, delay),
	}, nil
}

// Queue schedules a call of signature on target through the timelock tl.
//
// The ETA is the latest block timestamp plus the timelock delay, both read at the time of the
// call. After the queue transaction is confirmed the timelock is asked whether the computed ID is
// pending. A negative answer is logged and reported through QueueResult.Pending; it is not an
// error. Submission and read failures are returned unchanged.
//
// The signature is canonicalized before it is submitted and hashed, so a signature written with
// spaces queues a call whose ID differs from the one hashed over the raw string. The timelock
// derives the selector from the submitted string, which only resolves in canonical form.
func (s *Scheduler) Queue(
	ctx context.Context, tl Contract, target common.Address, signature string, argTypes []string, argValues []any,
) (QueueResult, error) {
	call, err := s.Prepare(ctx, tl, target, signature, argTypes, argValues)
	if err != nil {
		return QueueResult{}, err
	}

	id := call.ID()

	receipt, err := tl.QueueTransaction(ctx, call.Target, call.Value, call.Signature, call.Data, call.ETA)
	if err != nil {
		return QueueResult{}, fmt.Errorf("failed to queue %s on timelock %s: %w",
			call.Signature, tl.Address().Hex(), err)
	}

	pending, err := tl.QueuedTransactions(ctx, id)
	if err != nil {
		return QueueResult{}, fmt.Errorf("failed to verify queued call %s: %w", id.Hex(), err)
	}

	result := QueueResult{
		Call:    call,
		ID:      id,
		Pending: pending,
	}
	if receipt != nil {
		result.QueueTxHash = receipt.TxHash
	}

	if !pending {
		s.lggr.Warnw("Timelock does not report the queued call as pending",
			"timelock", tl.Address().Hex(),
			"signature", call.Signature,
			"id", id.Hex(),
		)

		return result, nil
	}

	s.lggr.Infow("Queued timelock call. Remember to execute it once the ETA has passed",
		"timelock", tl.Address().Hex(),
		"signature", call.Signature,
		"id", id.Hex(),
		"eta", call.ETA.String(),
		"etaTime", time.Unix(call.ETA.Int64(), 0).UTC().Format(time.RFC3339),
	)

	return result, nil
}

// Execute runs a previously queued call. The call must be pending, its ETA must have passed and
// its grace period must not have expired, judged by the latest block timestamp.
func (s *Scheduler) Execute(ctx context.Context, tl Contract, call Call) (*types.Receipt, error) {
	id := call.ID()
	eta := bigOrZero(call.ETA)

	nowTs, err := s.clock.BlockTimestamp(ctx)
	if err != nil {
		return nil, err
	}
	now := new(big.Int).SetUint64(nowTs)

	if now.Cmp(eta) < 0 {
		return nil, fmt.Errorf("%w: call %s has eta %s, chain time is %s", ErrNotEligible, id.Hex(), eta, now)
	}

	grace, err := tl.GracePeriod(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read grace period of timelock %s: %w", tl.Address().Hex(), err)
	}
	if now.Cmp(new(big.Int).Add(eta, bigOrZero(grace))) > 0 {
		return nil, fmt.Errorf("%w: call %s expired at %s", ErrGracePeriodExpired, id.Hex(),
			new(big.Int).Add(eta, bigOrZero(grace)))
	}

	pending, err := tl.QueuedTransactions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read queued state of call %s: %w", id.Hex(), err)
	}
	if !pending {
		return nil, fmt.Errorf("%w: %s", ErrNotQueued, id.Hex())
	}

	receipt, err := tl.ExecuteTransaction(ctx, call.Target, bigOrZero(call.Value), call.Signature, call.Data, eta)
	if err != nil {
		return nil, fmt.Errorf("failed to execute %s on timelock %s: %w",
			call.Signature, tl.Address().Hex(), err)
	}

	s.lggr.Infow("Executed timelock call",
		"timelock", tl.Address().Hex(),
		"signature", call.Signature,
		"id", id.Hex(),
	)

	return receipt, nil
}

// Pending reports whether the timelock currently has the call queued.
func (s *Scheduler) Pending(ctx context.Context, tl Contract, call Call) (bool, error) {
	pending, err := tl.QueuedTransactions(ctx, call.ID())
	if err != nil {
		return false, fmt.Errorf("failed to read queued state of call %s: %w", call.ID().Hex(), err)
	}

	return pending, nil
}
