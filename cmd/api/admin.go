package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/persistence"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/internal/service"
)

var grantAdminEmail string

// grantAdminCmd bootstraps the first administrator; no HTTP route grants ADMIN.
var grantAdminCmd = &cobra.Command{
	Use:   "grant-admin",
	Short: "Promote an existing user to ADMIN",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck
		if cfg.Postgres.DSN == "" {
			return errors.New("POSTGRES_DSN is required")
		}

		pg, err := persistence.NewPostgres(cmd.Context(), cfg.Postgres, logger)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()

		repos := repository.NewRepositories(pg.PoolHandle())
		authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{UserRepo: repos.Users})
		user, err := authService.GrantAdmin(cmd.Context(), grantAdminEmail)
		if err != nil {
			return err
		}
		logger.Info("granted admin role", zap.Int64("user_id", user.ID), zap.String("email", user.Email))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(grantAdminCmd)
	grantAdminCmd.Flags().StringVar(&grantAdminEmail, "email", "", "email of the user to promote")
	_ = grantAdminCmd.MarkFlagRequired("email")
}
