package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gravita-protocol/gravita-deployments/pkg/commands"
	"github.com/gravita-protocol/gravita-deployments/pkg/logger"
)

func main() {
	lggr, err := logger.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = newRootCmd(commands.New(lggr)).ExecuteContext(ctx)
	stop()
	_ = lggr.Sync()

	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cmds *commands.Commands) *cobra.Command {
	root := &cobra.Command{
		Use:   "gravita-deploy",
		Short: "Resumable deployment of the Gravita protocol contracts",
		Long: `gravita-deploy registers collateral, queues timelock calls, initializes and hands over
ownership of the Gravita protocol contracts. Progress is recorded in the deployment state so an
interrupted deployment can be resumed by running the same command again.`,
		SilenceUsage: true,
	}

	root.AddGroup(
		&cobra.Group{ID: "main", Title: "Main Commands"},
		&cobra.Group{ID: "inspect", Title: "Inspection Commands"},
	)

	deploy := cmds.Deploy()
	deploy.GroupID = "main"
	timelock := cmds.Timelock()
	timelock.GroupID = "main"
	state := cmds.State()
	state.GroupID = "inspect"
	ops := cmds.Operations()
	ops.GroupID = "inspect"

	root.AddCommand(deploy, timelock, state, ops)

	return root
}
