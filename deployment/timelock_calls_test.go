package deployment

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravita-protocol/gravita-deployments/state"
	"github.com/gravita-protocol/gravita-deployments/timelock"
)

func TestExecuteQueued(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)
	h.run(t)

	key := TimelockKey(NameShortTimelock, SetOracleLabel("wETH"))
	queued, err := QueuedCallFromRecord(key, h.state(t)[key])
	require.NoError(t, err)

	// before the ETA
	err = ExecuteQueued(ctx, h.env, h.cfg, key)
	require.ErrorIs(t, err, timelock.ErrNotEligible)

	h.net.now = queued.Call.ETA.Uint64()
	before := len(h.net.Sends())
	require.NoError(t, ExecuteQueued(ctx, h.env, h.cfg, key))

	assert.Equal(t, []string{"executeTransaction:" + setOracleSignature}, h.net.Sends()[before:])
	assert.False(t, h.proto.shortTimelock.queued[queued.ID])

	rec := h.state(t)[key]
	assert.Equal(t, "true", rec.Metadata[metaExecuted])
	assert.NotEmpty(t, rec.Metadata[metaExecuteTx])
	assert.Equal(t, queued.QueueTxHash, rec.TxHash, "queue transaction hash is kept")

	// executing again is a no-op
	require.NoError(t, ExecuteQueued(ctx, h.env, h.cfg, key))
	assert.Len(t, h.net.Sends(), before+1)

	// and a later deployment run does not queue the executed call again
	h.run(t)
	assert.Len(t, h.net.Sends(), before+1)
}

func TestExecuteQueued_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)
	h.run(t)

	key := TimelockKey(NameShortTimelock, SetOracleLabel("wETH"))
	queued, err := QueuedCallFromRecord(key, h.state(t)[key])
	require.NoError(t, err)

	err = ExecuteQueued(ctx, h.env, h.cfg, "timelock/shortTimelock/unknown")
	require.ErrorIs(t, err, ErrCallNotRecorded)

	h.net.now = queued.Call.ETA.Uint64() + uint64(h.proto.shortTimelock.grace) + 1
	err = ExecuteQueued(ctx, h.env, h.cfg, key)
	require.ErrorIs(t, err, timelock.ErrGracePeriodExpired)

	h.net.now = queued.Call.ETA.Uint64()
	delete(h.proto.shortTimelock.queued, queued.ID)
	err = ExecuteQueued(ctx, h.env, h.cfg, key)
	require.ErrorIs(t, err, timelock.ErrNotQueued)
}

func TestQueuedCallFromRecord(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.run(t)

	key := TimelockKey(NameShortTimelock, SetOracleLabel("rETH"))
	good := h.state(t)[key]

	tests := []struct {
		name    string
		mutate  func(m map[string]string)
		wantErr string
	}{
		{name: "valid", mutate: func(map[string]string) {}},
		{name: "missing id", mutate: func(m map[string]string) { delete(m, metaID) }, wantErr: "missing id"},
		{name: "bad eta", mutate: func(m map[string]string) { m[metaETA] = "soon" }, wantErr: `invalid eta "soon"`},
		{name: "bad data", mutate: func(m map[string]string) { m[metaData] = "zz" }, wantErr: "invalid data"},
		{
			name:    "tampered eta",
			mutate:  func(m map[string]string) { m[metaETA] = "1" },
			wantErr: "does not match computed id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := state.DeploymentState{key: good}.Clone()[key]
			tt.mutate(rec.Metadata)

			qc, err := QueuedCallFromRecord(key, rec)
			if tt.wantErr != "" {
				require.ErrorIs(t, err, state.ErrCorruptState)
				assert.ErrorContains(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, key, qc.Key)
			assert.Equal(t, NameShortTimelock, qc.TimelockName)
			assert.Equal(t, setOracleSignature, qc.Call.Signature)
			assert.Equal(t, rethAddr, common.BytesToAddress(qc.Call.Data[12:32]))
		})
	}
}

func TestOperations(t *testing.T) {
	t.Parallel()

	ids := make([]string, 0, 8)
	for _, def := range Operations().Definitions() {
		ids = append(ids, def.ID)
		assert.Equal(t, "1.0.0", def.Version.String())
	}

	assert.Equal(t, []string{
		"register-collateral",
		"add-collateral",
		"queue-timelock-call",
		"execute-timelock-call",
		"set-initialized",
		"approve-max-allowance",
		"add-entity-vesting",
		"transfer-ownership",
		"sweep-token-balance",
	}, ids)
}
