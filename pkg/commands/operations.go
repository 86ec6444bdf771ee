package commands

import (
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/gravita-protocol/gravita-deployments/deployment"
)

// Operations creates the "operations" command group describing the deployment steps.
func (c *Commands) Operations() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "operations",
		Short: "Operation commands",
	}

	cmd.AddCommand(c.newOperationsListCmd())

	return cmd
}

func (c *Commands) newOperationsListCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the operations a deployment can run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			defs := deployment.Operations().Definitions()
			if format != formatTable {
				return render(cmd, format, defs)
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"ID", "Version", "Description"})
			table.SetAutoWrapText(false)
			for _, def := range defs {
				table.Append([]string{def.ID, def.Version.String(), def.Description})
			}
			table.Render()

			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "Output format: table, json or yaml")

	return cmd
}
