package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// State creates the "state" command group for inspecting the deployment state.
func (c *Commands) State() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "State commands",
	}

	cmd.AddCommand(c.newStateShowCmd())

	// The config flag is persistent because all subcommands need the state store it names.
	addConfigFlag(cmd)

	return cmd
}

func (c *Commands) newStateShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the deployment state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runStateShow(cmd, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatJSON, "Output format: json or yaml")

	return cmd
}

func (c *Commands) runStateShow(cmd *cobra.Command, format string) error {
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

	return render(cmd, format, st)
}
