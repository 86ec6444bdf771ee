package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gravita-protocol/gravita-deployments/deployment"
	"github.com/gravita-protocol/gravita-deployments/operations"
)

// Deploy creates the "deploy" command which runs the deployment pipeline selected by the
// configuration.
func (c *Commands) Deploy() *cobra.Command {
	var reportPath string

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Run the deployment",
		Long: `Run the deployment pipeline selected by the configuration.

The deployment is resumable: steps that are already satisfied on chain or recorded in the
deployment state are skipped, so an interrupted run can be restarted with the same command.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runDeploy(cmd, reportPath)
		},
	}

	addConfigFlag(cmd)
	cmd.Flags().StringVarP(&reportPath, "report", "r", "", "Write the operation reports of the run to this file as JSON")

	return cmd
}

// runDeploy executes the deploy command logic.
func (c *Commands) runDeploy(cmd *cobra.Command, reportPath string) error {
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
	reporter := operations.NewMemoryReporter()
	env.Reporter = reporter

	cmd.Printf("Deploying to %s (%s mode)\n", dcfg.TargetNetwork, dcfg.Mode)

	runErr := deployment.Run(cmd.Context(), env, dcfg)
	_ = s.lggr.Sync()

	reports, err := reporter.GetReports()
	if err != nil {
		return fmt.Errorf("failed to read operation reports: %w", err)
	}
	if reportPath != "" {
		if err = writeReports(reportPath, reports); err != nil {
			s.lggr.Errorw("Failed to write operation reports", "path", reportPath, "err", err)
		}
	}

	summary := operations.Summarize(reports)
	if runErr != nil {
		failureStyle.Fprintf(cmd.OutOrStderr(), "Deployment aborted: %d executed, %d skipped, %d failed\n",
			summary.Executed, summary.Skipped, summary.Failed)

		return fmt.Errorf("deployment failed: %w", runErr)
	}

	successStyle.Fprintf(cmd.OutOrStderr(), "Deployment finished: %d executed, %d skipped\n",
		summary.Executed, summary.Skipped)

	return nil
}

func writeReports(path string, reports []operations.Report[any, any]) error {
	b, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to marshal reports: %w", err)
	}

	return os.WriteFile(path, b, 0o600)
}
