package main

import (
	"os"

	"github.com/spf13/cobra"

	"account-service/internal/utils"
)

func newRootCommand() *cobra.Command {
	var debug bool

	root := &cobra.Command{
		Use:           "account-service",
		Short:         "User accounts with a balance ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			utils.SetDebug(debug)
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug and DB logging")

	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newAdminCommand(),
	)
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		utils.LogError("Main", "Command failed", err)
		os.Exit(1)
	}
}
