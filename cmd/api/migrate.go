package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/spec-kit/grievance-service/internal/persistence"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck
		if cfg.Postgres.DSN == "" {
			return errors.New("POSTGRES_DSN is required")
		}
		return persistence.RunMigrations(cfg.Postgres.DSN, logger)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back applied migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck
		if cfg.Postgres.DSN == "" {
			return errors.New("POSTGRES_DSN is required")
		}
		return persistence.RollbackMigrations(cfg.Postgres.DSN, migrateSteps, logger)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 1, "number of migrations to roll back")
}
