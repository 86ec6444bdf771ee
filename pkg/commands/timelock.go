package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/gravita-protocol/gravita-deployments/deployment"
)

// Timelock creates the "timelock" command group for calls queued on the protocol timelocks.
func (c *Commands) Timelock() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timelock",
		Short: "Timelock commands",
	}

	cmd.AddCommand(c.newTimelockListCmd(), c.newTimelockExecuteCmd())

	// The config flag is persistent because all subcommands read the deployment state.
	addConfigFlag(cmd)

	return cmd
}

func (c *Commands) newTimelockListCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the timelock calls recorded in the deployment state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runTimelockList(cmd, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "Output format: table, json or yaml")

	return cmd
}

func (c *Commands) runTimelockList(cmd *cobra.Command, format string) error {
	path, _ := cmd.Flags().GetString(configFlag)

	s, err := c.open(cmd.Context(), path)
	if err != nil {
		return err
	}
	defer s.close()

	st, err := s.store.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load deployment state: %w", err)
	}

	calls, err := deployment.ListQueued(st)
	if err != nil {
		return err
	}

	if format != formatTable {
		return render(cmd, format, calls)
	}

	if len(calls) == 0 {
		cmd.Println("No timelock calls recorded")
		return nil
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Key", "Timelock", "Signature", "Target", "ETA", "Status"})
	table.SetAutoWrapText(false)
	for _, qc := range calls {
		table.Append([]string{
			qc.Key,
			qc.TimelockName,
			qc.Call.Signature,
			qc.Call.Target.Hex(),
			time.Unix(qc.Call.ETA.Int64(), 0).UTC().Format(time.RFC3339),
			status(qc),
		})
	}
	table.Render()

	return nil
}

func status(qc deployment.QueuedCall) string {
	switch {
	case qc.Executed:
		return successStyle.Sprint("executed")
	case qc.Pending:
		return pendingStyle.Sprint("pending")
	default:
		return failureStyle.Sprint("not queued")
	}
}

func (c *Commands) newTimelockExecuteCmd() *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Execute a queued timelock call once its ETA has passed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runTimelockExecute(cmd, key)
		},
	}

	cmd.Flags().StringVarP(&key, "key", "k", "", "State key of the queued call, e.g. timelock/shortTimelock/setOracle/wETH (required)")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

func (c *Commands) runTimelockExecute(cmd *cobra.Command, key string) error {
	if key == "" {
		return errors.New("key is required")
	}
	path, _ := cmd.Flags().GetString(configFlag)

	s, err := c.open(cmd.Context(), path)
	if err != nil {
		return err
	}
	defer s.close()

	env, dcfg, err := c.environment(cmd.Context(), s)
	if err != nil {
		return err
	}

	if err = deployment.ExecuteQueued(cmd.Context(), env, dcfg, key); err != nil {
		return fmt.Errorf("failed to execute %s: %w", key, err)
	}

	successStyle.Fprintf(cmd.OutOrStderr(), "Executed %s\n", key)

	return nil
}
