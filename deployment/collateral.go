package deployment

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/gravita-protocol/gravita-deployments/operations"
	"github.com/gravita-protocol/gravita-deployments/state"
)

// CollateralKey returns the state key a registered collateral is recorded under.
func CollateralKey(name string) string {
	return "collateral/" + name
}

// SetOracleLabel is the label of the setOracle call queued for a collateral.
func SetOracleLabel(name string) string {
	return "setOracle/" + name
}

type CollateralInput struct {
	Name   string         `json:"name"`
	Token  common.Address `json:"token"`
	Oracle common.Address `json:"oracle"`
}

type CollateralOutput struct {
	Added   bool   `json:"added"`
	QueueID string `json:"queueId,omitempty"`
	ETA     string `json:"eta,omitempty"`
	Pending bool   `json:"pending"`
}

type collateralDeps struct {
	run  *Context
	core CoreContracts
}

// SeqRegisterCollateral registers a collateral type and queues its price oracle on the short
// timelock. Each step is recorded in the deployment state as soon as it is confirmed.
var SeqRegisterCollateral = operations.NewSequence(
	"register-collateral",
	version1,
	"Register a collateral type and queue its price oracle",
	func(b operations.Bundle, deps collateralDeps, in CollateralInput) (CollateralOutput, error) {
		ctx := b.GetContext()
		dc := deps.run
		key := CollateralKey(in.Name)

		added, err := operations.ExecuteOperation(b, OpAddCollateral,
			collateralRegistryDeps{Registry: deps.core.AdminContract},
			AddCollateralInput{Name: in.Name, Token: in.Token},
		)
		if err != nil {
			return CollateralOutput{}, fmt.Errorf("failed to add collateral %s: %w", in.Name, err)
		}
		if err = dc.Record(ctx, key, state.Record{
			Address: in.Token.Hex(),
			TxHash:  added.Output.TxHash,
			Metadata: map[string]string{
				"oracle": in.Oracle.Hex(),
			},
		}); err != nil {
			return CollateralOutput{}, err
		}

		tlKey := TimelockKey(NameShortTimelock, SetOracleLabel(in.Name))
		queued, err := operations.ExecuteOperation(b, OpQueueTimelockCall,
			timelockDeps{Timelock: deps.core.ShortTimelock, Scheduler: dc.scheduler, State: dc.State},
			QueueCallInput{
				Key:       tlKey,
				Timelock:  deps.core.ShortTimelock.Address(),
				Target:    deps.core.PriceFeed.Address(),
				Signature: setOracleSignature,
				ArgTypes:  setOracleArgTypes,
				ArgValues: []any{in.Token, in.Oracle, oracleMaxDeviation, oracleIsEthIndexed},
			},
		)
		if err != nil {
			return CollateralOutput{}, fmt.Errorf("failed to queue price feed of collateral %s: %w", in.Name, err)
		}

		out := CollateralOutput{Added: !added.Skipped}
		if queued.Skipped {
			if qc, qerr := QueuedCallFromRecord(tlKey, dc.State[tlKey]); qerr == nil {
				out.QueueID, out.ETA, out.Pending = qc.ID.Hex(), qc.Call.ETA.String(), true
			}

			return out, nil
		}

		res := queued.Output
		if err = dc.Record(ctx, tlKey, queuedCallRecord(NameShortTimelock, deps.core.ShortTimelock.Address(), res)); err != nil {
			return CollateralOutput{}, err
		}
		b.Logger.Infow("Price feed queued",
			"collateral", in.Name, "txHash", res.QueueTxHash.Hex(), "eta", res.ETA().String(), "feed", in.Oracle.Hex())

		out.QueueID, out.ETA, out.Pending = res.ID.Hex(), res.ETA().String(), res.Pending

		return out, nil
	},
)

// addCollaterals registers every configured collateral. Entries without a token or oracle address
// are skipped with a warning.
func addCollaterals(dc *Context, core CoreContracts) error {
	dc.lggr.Info("Adding collaterals")

	for _, c := range dc.Config.Collaterals {
		if c.Token == "" {
			dc.lggr.Warnw("WARNING: no address found for collateral", "collateral", c.Name)
			continue
		}
		if c.Oracle == "" {
			dc.lggr.Warnw("WARNING: no price feed address found for collateral", "collateral", c.Name)
			continue
		}
		if !common.IsHexAddress(c.Token) || !common.IsHexAddress(c.Oracle) {
			return fmt.Errorf("collateral %s has an invalid token or oracle address", c.Name)
		}

		_, err := operations.ExecuteSequence(dc.bundle, SeqRegisterCollateral,
			collateralDeps{run: dc, core: core},
			CollateralInput{Name: c.Name, Token: common.HexToAddress(c.Token), Oracle: common.HexToAddress(c.Oracle)},
		)
		if err != nil {
			return err
		}
	}

	return nil
}
