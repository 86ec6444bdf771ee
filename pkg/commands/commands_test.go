package commands

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravita-protocol/gravita-deployments/config"
	"github.com/gravita-protocol/gravita-deployments/deployment"
	"github.com/gravita-protocol/gravita-deployments/pkg/logger"
	"github.com/gravita-protocol/gravita-deployments/state"
	"github.com/gravita-protocol/gravita-deployments/timelock"
)

var (
	deployerAddr = common.HexToAddress("0x1000000000000000000000000000000000000001")
	otherAddr    = common.HexToAddress("0x9999999999999999999999999999999999999999")
	timelockAddr = common.HexToAddress("0x9000000000000000000000000000000000000009")
	feedAddr     = common.HexToAddress("0x8000000000000000000000000000000000000008")
)

func testConfig() *config.Config {
	return &config.Config{
		Network: config.NetworkConfig{
			Name:           "mainnet",
			ChainID:        1,
			ConfirmTimeout: 1,
		},
		Wallets: config.WalletsConfig{
			Deployer: deployerAddr.Hex(),
			Admin:    "0x2000000000000000000000000000000000000002",
			Treasury: "0x3000000000000000000000000000000000000003",
		},
		State: config.StateConfig{Backend: config.BackendFile, Path: "unused.json"},
	}
}

// stubChain reports a fixed deployer identity and balance.
type stubChain struct {
	deployer common.Address
}

func (c stubChain) Deployer() common.Address { return c.deployer }

func (stubChain) Balance(context.Context, common.Address) (*big.Int, error) {
	return big.NewInt(1e18), nil
}

func (stubChain) BlockTimestamp(context.Context) (uint64, error) { return 1_700_000_000, nil }

// missingDeployer knows no contract.
type missingDeployer struct{}

func (missingDeployer) LoadOrDeploy(context.Context, state.DeploymentState) (deployment.CoreContracts, error) {
	return deployment.CoreContracts{}, deployment.ErrContractMissing
}

func (missingDeployer) Connect(context.Context, deployment.CoreContracts, deployment.GRVTContracts, common.Address) error {
	return nil
}

func (missingDeployer) DeployPartially(context.Context, common.Address, state.DeploymentState) (deployment.GRVTContracts, error) {
	return deployment.GRVTContracts{}, deployment.ErrContractMissing
}

// queuedRecord is the state record of a setOracle call queued on the short timelock.
func queuedRecord(t *testing.T) state.Record {
	t.Helper()

	data, err := timelock.EncodeArgs("setOracle(address,address,uint256,bool)",
		[]string{"address", "address", "uint256", "bool"},
		[]any{common.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"), feedAddr, big.NewInt(5e17), false},
	)
	require.NoError(t, err)

	call := timelock.Call{
		Target:    feedAddr,
		Value:     big.NewInt(0),
		Signature: "setOracle(address,address,uint256,bool)",
		Data:      data,
		ETA:       big.NewInt(1_700_172_800),
	}

	return state.Record{
		TxHash: "0xabc",
		Metadata: map[string]string{
			"id":           call.ID().Hex(),
			"eta":          call.ETA.String(),
			"target":       call.Target.Hex(),
			"value":        "0",
			"signature":    call.Signature,
			"data":         hexutil.Encode(data),
			"timelock":     timelockAddr.Hex(),
			"timelockName": deployment.NameShortTimelock,
			"pending":      "true",
			"executed":     "false",
		},
	}
}

type harness struct {
	store     *state.MemoryStore
	cfg       *config.Config
	chain     stubChain
	loadCalls int
	cmds      *Commands
}

func newHarness(t *testing.T, initial state.DeploymentState) *harness {
	t.Helper()

	h := &harness{
		store: state.NewMemoryStore(initial),
		cfg:   testConfig(),
		chain: stubChain{deployer: deployerAddr},
	}
	h.cmds = NewWithDeps(logger.Test(t), Deps{
		ConfigLoader: func(string) (*config.Config, error) { return h.cfg, nil },
		StoreOpener: func(context.Context, *config.Config) (state.Store, io.Closer, error) {
			return h.store, nil, nil
		},
		EnvironmentLoader: func(
			_ context.Context, lggr logger.Logger, _ *config.Config, store state.Store,
		) (deployment.Environment, error) {
			h.loadCalls++

			return deployment.Environment{
				Logger:   lggr,
				Chain:    h.chain,
				Store:    store,
				Deployer: missingDeployer{},
			}, nil
		},
	})

	return h
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())

	return out.String(), err
}

func TestNew(t *testing.T) {
	t.Parallel()

	lggr := logger.Nop()
	cmds := New(lggr)

	require.NotNil(t, cmds)
	assert.Equal(t, lggr, cmds.lggr)
	assert.NotNil(t, cmds.deps.ConfigLoader)
	assert.NotNil(t, cmds.deps.StoreOpener)
	assert.NotNil(t, cmds.deps.EnvironmentLoader)
}

func TestCommands_Structure(t *testing.T) {
	t.Parallel()

	cmds := New(logger.Nop())

	tests := []struct {
		name        string
		cmd         *cobra.Command
		wantUse     string
		wantSubs    []string
		wantConfig  bool
		wantFlagFor map[string]string // subcommand -> local flag
	}{
		{
			name:       "deploy",
			cmd:        cmds.Deploy(),
			wantUse:    "deploy",
			wantConfig: true,
		},
		{
			name:        "timelock",
			cmd:         cmds.Timelock(),
			wantUse:     "timelock",
			wantSubs:    []string{"execute", "list"},
			wantConfig:  true,
			wantFlagFor: map[string]string{"execute": "key", "list": "format"},
		},
		{
			name:        "state",
			cmd:         cmds.State(),
			wantUse:     "state",
			wantSubs:    []string{"show"},
			wantConfig:  true,
			wantFlagFor: map[string]string{"show": "format"},
		},
		{
			name:        "operations",
			cmd:         cmds.Operations(),
			wantUse:     "operations",
			wantSubs:    []string{"list"},
			wantFlagFor: map[string]string{"list": "format"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.wantUse, tt.cmd.Use)

			cfgFlag := tt.cmd.PersistentFlags().Lookup(configFlag)
			if tt.wantConfig {
				require.NotNil(t, cfgFlag)
				assert.Equal(t, "c", cfgFlag.Shorthand)
			} else {
				assert.Nil(t, cfgFlag)
			}

			var subs []string
			for _, sub := range tt.cmd.Commands() {
				subs = append(subs, sub.Use)
				if flag, ok := tt.wantFlagFor[sub.Use]; ok {
					assert.NotNil(t, sub.Flags().Lookup(flag), "%s should have flag %s", sub.Use, flag)
				}
			}
			assert.Equal(t, tt.wantSubs, subs)
		})
	}
}

func TestStateShow(t *testing.T) {
	t.Parallel()

	initial := state.DeploymentState{
		deployment.NameAdminContract: {Address: "0x6000000000000000000000000000000000000006"},
		"collateral/wETH":            {Address: "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", TxHash: "0x01"},
	}

	tests := []struct {
		name         string
		args         []string
		wantContains []string
		wantErr      string
	}{
		{
			name: "json",
			args: []string{"show", "-c", "config.yml"},
			wantContains: []string{
				`"adminContract": {`,
				`"address": "0x6000000000000000000000000000000000000006"`,
				`"txHash": "0x01"`,
			},
		},
		{
			name: "yaml",
			args: []string{"show", "-c", "config.yml", "--format", "yaml"},
			wantContains: []string{
				"adminContract:",
				"address: 0x6000000000000000000000000000000000000006",
				"collateral/wETH:",
			},
		},
		{
			name:    "unsupported format",
			args:    []string{"show", "-c", "config.yml", "--format", "xml"},
			wantErr: `unsupported output format "xml"`,
		},
		{
			name:    "config flag is required",
			args:    []string{"show"},
			wantErr: `required flag(s) "config" not set`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, initial)
			out, err := execute(t, h.cmds.State(), tt.args...)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			for _, want := range tt.wantContains {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestTimelockList(t *testing.T) {
	t.Parallel()

	key := deployment.TimelockKey(deployment.NameShortTimelock, "setOracle/wETH")

	tests := []struct {
		name         string
		initial      func(t *testing.T) state.DeploymentState
		args         []string
		wantContains []string
		wantErr      string
	}{
		{
			name:         "empty state",
			initial:      func(*testing.T) state.DeploymentState { return state.New() },
			args:         []string{"list", "-c", "config.yml"},
			wantContains: []string{"No timelock calls recorded"},
		},
		{
			name: "table",
			initial: func(t *testing.T) state.DeploymentState {
				t.Helper()
				return state.DeploymentState{key: queuedRecord(t)}
			},
			args: []string{"list", "-c", "config.yml"},
			wantContains: []string{
				key,
				"setOracle(address,address,uint256,bool)",
				feedAddr.Hex(),
				"2023-11-16T22:13:20Z",
				"pending",
			},
		},
		{
			name: "json",
			initial: func(t *testing.T) state.DeploymentState {
				t.Helper()
				return state.DeploymentState{key: queuedRecord(t)}
			},
			args: []string{"list", "-c", "config.yml", "-f", "json"},
			wantContains: []string{
				`"key": "` + key + `"`,
				`"timelockName": "shortTimelock"`,
				`"pending": true`,
				`"queueTxHash": "0xabc"`,
			},
		},
		{
			name: "corrupt record",
			initial: func(t *testing.T) state.DeploymentState {
				t.Helper()
				rec := queuedRecord(t)
				rec.Metadata["eta"] = "1"
				return state.DeploymentState{key: rec}
			},
			args:    []string{"list", "-c", "config.yml"},
			wantErr: "does not match computed id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, tt.initial(t))
			out, err := execute(t, h.cmds.Timelock(), tt.args...)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				assert.ErrorIs(t, err, state.ErrCorruptState)
				return
			}

			require.NoError(t, err)
			for _, want := range tt.wantContains {
				assert.Contains(t, out, want)
			}
			assert.Zero(t, h.loadCalls, "listing must not connect to the chain")
		})
	}
}

func TestTimelockExecute_NotRecorded(t *testing.T) {
	t.Parallel()

	h := newHarness(t, state.New())
	_, err := execute(t, h.cmds.Timelock(), "execute", "-c", "config.yml", "--key", "timelock/shortTimelock/missing")

	require.ErrorIs(t, err, deployment.ErrCallNotRecorded)
	assert.Equal(t, 1, h.loadCalls)
}

func TestOperationsList(t *testing.T) {
	t.Parallel()

	h := newHarness(t, state.New())

	out, err := execute(t, h.cmds.Operations(), "list")
	require.NoError(t, err)
	for _, def := range deployment.Operations().Definitions() {
		assert.Contains(t, out, def.ID)
	}

	out, err = execute(t, h.cmds.Operations(), "list", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "add-collateral"`)
	assert.Contains(t, out, `"version": "1.0.0"`)
}

func TestDeploy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		setup     func(h *harness)
		wantErr   error
		wantMsg   string
		wantLoads int
	}{
		{
			name:      "missing core contracts",
			wantErr:   deployment.ErrContractMissing,
			wantMsg:   "deployment failed",
			wantLoads: 1,
		},
		{
			name:      "deployer mismatch",
			setup:     func(h *harness) { h.chain.deployer = otherAddr },
			wantErr:   deployment.ErrDeployerMismatch,
			wantMsg:   "deployment failed",
			wantLoads: 1,
		},
		{
			name:    "invalid config",
			setup:   func(h *harness) { h.cfg.Wallets.Admin = "" },
			wantMsg: "invalid config config.yml: wallets.admin is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, state.New())
			if tt.setup != nil {
				tt.setup(h)
			}

			out, err := execute(t, h.cmds.Deploy(), "-c", "config.yml")
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.wantMsg)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, out, "Deployment aborted: 0 executed, 0 skipped, 0 failed")
			}
			assert.Equal(t, tt.wantLoads, h.loadCalls)
		})
	}
}

func TestDeploy_WritesReports(t *testing.T) {
	t.Parallel()

	h := newHarness(t, state.New())
	reportPath := filepath.Join(t.TempDir(), "reports.json")

	_, err := execute(t, h.cmds.Deploy(), "-c", "config.yml", "--report", reportPath)
	require.ErrorIs(t, err, deployment.ErrContractMissing)

	_, statErr := os.Stat(reportPath)
	require.NoError(t, statErr)
}

func TestDeploy_ConfigLoaderError(t *testing.T) {
	t.Parallel()

	cmds := NewWithDeps(logger.Nop(), Deps{
		ConfigLoader: func(string) (*config.Config, error) { return nil, errors.New("boom") },
	})

	_, err := execute(t, cmds.Deploy(), "-c", "config.yml")
	require.EqualError(t, err, "failed to load config: boom")
}
