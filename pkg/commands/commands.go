// Package commands provides the CLI commands of the deployment tool.
//
// Commands are created through the Commands factory, which shares the logger and the injectable
// dependencies across every command:
//
//	cmds := commands.New(lggr)
//	rootCmd.AddCommand(
//	    cmds.Deploy(),
//	    cmds.Timelock(),
//	    cmds.State(),
//	    cmds.Operations(),
//	)
//
// Tests replace the configuration, state store and environment loaders with NewWithDeps.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/gravita-protocol/gravita-deployments/pkg/logger"
)

// configFlag names the flag every command that reads the deployment configuration takes.
const configFlag = "config"

// Commands provides a factory for creating CLI commands with shared configuration.
type Commands struct {
	lggr logger.Logger
	deps Deps
}

// New creates a new Commands factory with the given logger and production dependencies.
func New(lggr logger.Logger) *Commands {
	return NewWithDeps(lggr, Deps{})
}

// NewWithDeps creates a new Commands factory with the given dependencies. Nil dependencies use
// the production defaults.
func NewWithDeps(lggr logger.Logger, deps Deps) *Commands {
	deps.applyDefaults()

	return &Commands{lggr: lggr, deps: deps}
}

// addConfigFlag adds the persistent, required config flag to cmd.
func addConfigFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringP(configFlag, "c", "", "Path to the deployment configuration file (required)")
	_ = cmd.MarkPersistentFlagRequired(configFlag)
}
