package deployment

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/gravita-protocol/gravita-deployments/operations"
	"github.com/gravita-protocol/gravita-deployments/state"
	"github.com/gravita-protocol/gravita-deployments/timelock"
)

const timelockKeyPrefix = "timelock/"

// Metadata keys of a queued timelock call record.
const (
	metaID           = "id"
	metaETA          = "eta"
	metaTarget       = "target"
	metaValue        = "value"
	metaSignature    = "signature"
	metaData         = "data"
	metaTimelock     = "timelock"
	metaTimelockName = "timelockName"
	metaPending      = "pending"
	metaExecuted     = "executed"
	metaExecuteTx    = "executeTxHash"
)

// TimelockKey returns the state key of a call queued on the named timelock.
func TimelockKey(timelockName, label string) string {
	return timelockKeyPrefix + timelockName + "/" + label
}

// QueuedCall is a timelock call recorded in the deployment state.
type QueuedCall struct {
	Key          string         `json:"key" yaml:"key"`
	TimelockName string         `json:"timelockName" yaml:"timelockName"`
	Timelock     common.Address `json:"timelock" yaml:"timelock"`
	Call         timelock.Call  `json:"call" yaml:"call"`
	ID           common.Hash    `json:"id" yaml:"id"`
	QueueTxHash  string         `json:"queueTxHash,omitempty" yaml:"queueTxHash,omitempty"`
	Pending      bool           `json:"pending" yaml:"pending"`
	Executed     bool           `json:"executed" yaml:"executed"`
}

func queuedCallRecord(timelockName string, tl common.Address, res timelock.QueueResult) state.Record {
	rec := state.Record{
		Metadata: map[string]string{
			metaID:           res.ID.Hex(),
			metaETA:          res.Call.ETA.String(),
			metaTarget:       res.Call.Target.Hex(),
			metaValue:        res.Call.Value.String(),
			metaSignature:    res.Call.Signature,
			metaData:         res.Call.Data.String(),
			metaTimelock:     tl.Hex(),
			metaTimelockName: timelockName,
			metaPending:      fmt.Sprint(res.Pending),
			metaExecuted:     "false",
		},
	}
	if res.QueueTxHash != (common.Hash{}) {
		rec.TxHash = res.QueueTxHash.Hex()
	}

	return rec
}

// QueuedCallFromRecord rebuilds a queued call from its state record. The recorded identifier must
// match the one computed from the recorded fields.
func QueuedCallFromRecord(key string, rec state.Record) (QueuedCall, error) {
	corrupt := func(format string, args ...any) error {
		return fmt.Errorf("%w: timelock call %s: %s", state.ErrCorruptState, key, fmt.Sprintf(format, args...))
	}

	req := make(map[string]string, 7)
	for _, name := range []string{
		metaID, metaETA, metaTarget, metaSignature, metaData, metaTimelock, metaTimelockName,
	} {
		v, ok := rec.Meta(name)
		if !ok || v == "" {
			return QueuedCall{}, corrupt("missing %s", name)
		}
		req[name] = v
	}

	eta, ok := new(big.Int).SetString(req[metaETA], 10)
	if !ok {
		return QueuedCall{}, corrupt("invalid eta %q", req[metaETA])
	}
	value := new(big.Int)
	if v, set := rec.Meta(metaValue); set && v != "" {
		if _, ok = value.SetString(v, 10); !ok {
			return QueuedCall{}, corrupt("invalid value %q", v)
		}
	}
	data, err := hexutil.Decode(req[metaData])
	if err != nil {
		return QueuedCall{}, corrupt("invalid data: %v", err)
	}
	if !common.IsHexAddress(req[metaTarget]) || !common.IsHexAddress(req[metaTimelock]) {
		return QueuedCall{}, corrupt("invalid address")
	}

	call := timelock.Call{
		Target:    common.HexToAddress(req[metaTarget]),
		Value:     value,
		Signature: req[metaSignature],
		Data:      data,
		ETA:       eta,
	}
	if id := call.ID(); id != common.HexToHash(req[metaID]) {
		return QueuedCall{}, corrupt("recorded id %s does not match computed id %s", req[metaID], id.Hex())
	}

	pending, _ := rec.Meta(metaPending)
	executed, _ := rec.Meta(metaExecuted)

	return QueuedCall{
		Key:          key,
		TimelockName: req[metaTimelockName],
		Timelock:     common.HexToAddress(req[metaTimelock]),
		Call:         call,
		ID:           call.ID(),
		QueueTxHash:  rec.TxHash,
		Pending:      pending == "true",
		Executed:     executed == "true",
	}, nil
}

// ListQueued returns every timelock call recorded in st, ordered by key.
func ListQueued(st state.DeploymentState) ([]QueuedCall, error) {
	var out []QueuedCall
	for _, key := range st.Keys() {
		if !strings.HasPrefix(key, timelockKeyPrefix) {
			continue
		}

		qc, err := QueuedCallFromRecord(key, st[key])
		if err != nil {
			return nil, err
		}
		out = append(out, qc)
	}

	return out, nil
}

// ExecuteQueued executes the timelock call recorded under key and marks it executed. The call
// must be pending with its ETA passed and its grace period not expired.
func ExecuteQueued(ctx context.Context, env Environment, cfg Config, key string) (err error) {
	defer func() { err = withRevertData(err) }()

	dc, err := NewContext(ctx, env, cfg)
	if err != nil {
		return err
	}
	if err = dc.checkIdentity(); err != nil {
		return err
	}

	rec, ok := dc.State.Get(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrCallNotRecorded, key)
	}
	qc, err := QueuedCallFromRecord(key, rec)
	if err != nil {
		return err
	}

	core, err := dc.deployer.LoadOrDeploy(ctx, dc.State.Clone())
	if err != nil {
		return fmt.Errorf("failed to load core contracts: %w", err)
	}
	tl, ok := core.Timelock(qc.TimelockName)
	if !ok {
		return missing(qc.TimelockName)
	}
	if tl.Address() != qc.Timelock {
		return fmt.Errorf("%s is at %s but the call was queued on %s",
			qc.TimelockName, tl.Address().Hex(), qc.Timelock.Hex())
	}

	report, err := operations.ExecuteOperation(dc.bundle, OpExecuteTimelockCall,
		timelockDeps{Timelock: tl, Scheduler: dc.scheduler, State: dc.State},
		ExecuteCallInput{Key: key, Call: qc.Call},
	)
	if err != nil {
		return err
	}
	if report.Skipped {
		return nil
	}

	return dc.Record(ctx, key, state.Record{Metadata: map[string]string{
		metaExecuted:  "true",
		metaPending:   "false",
		metaExecuteTx: report.Output.TxHash,
	}})
}
