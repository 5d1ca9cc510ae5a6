package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"account-service/internal/config"
	"account-service/internal/database"
	"account-service/internal/models"
	"account-service/internal/repository"
	"account-service/internal/utils"
)

func withAccounts(ctx context.Context, fn func(repo *repository.AccountRepository) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	pool, err := database.NewPool(ctx, cfg.Database.URL, 2)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(repository.NewAccountRepository(pool))
}

func newAdminCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Account administration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "role <username> <user|admin>",
		Short: "Set an account's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := models.Role(args[1])
			if role != models.RoleUser && role != models.RoleAdmin {
				return fmt.Errorf("unknown role %q", args[1])
			}
			return withAccounts(cmd.Context(), func(repo *repository.AccountRepository) error {
				account, err := repo.GetByUsername(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := repo.SetRole(cmd.Context(), account.ID, role); err != nil {
					return err
				}
				utils.LogSuccess("Admin", "%s is now %s", account.Username, role)
				return nil
			})
		},
	})

	var unban bool
	ban := &cobra.Command{
		Use:   "ban <username>",
		Short: "Ban or unban an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAccounts(cmd.Context(), func(repo *repository.AccountRepository) error {
				account, err := repo.GetByUsername(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := repo.SetBanned(cmd.Context(), account.ID, !unban); err != nil {
					return err
				}
				utils.LogSuccess("Admin", "%s banned=%t", account.Username, !unban)
				return nil
			})
		},
	}
	ban.Flags().BoolVar(&unban, "unban", false, "lift the ban instead")
	cmd.AddCommand(ban)

	return cmd
}
