package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"account-service/internal/config"
	"account-service/internal/utils"
)

type serveOptions struct {
	InMemory bool
}

func newServeCommand() *cobra.Command {
	var (
		addr     string
		inMemory bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}
			if inMemory {
				utils.LogWarning("Main", "Using the in-memory store, data is lost on exit")
			}

			app := fx.New(
				fx.Supply(cfg, serveOptions{InMemory: inMemory}),
				fx.NopLogger,
				appModule,
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides HTTP_ADDR")
	cmd.Flags().BoolVar(&inMemory, "in-memory", false, "keep accounts in process memory instead of PostgreSQL")
	return cmd
}
