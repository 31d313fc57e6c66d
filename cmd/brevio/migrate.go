package main

import (
	"errors"

	"brevio/internal/storage"
	"brevio/pkg/logger"

	"github.com/spf13/cobra"
)

var migrateReset bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply request journal migrations",
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateReset, "reset", false, "drop all tables and re-run migrations")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn (POSTGRES_DSN) is required")
	}

	if migrateReset {
		logger.Info("Resetting database...")
		if err := storage.ResetMigrations(cfg.Postgres.DSN, cfg.Postgres.MigrationsDir); err != nil {
			return err
		}
		logger.Info("Database reset completed successfully")
		return nil
	}

	return storage.RunMigrations(cfg.Postgres.DSN, cfg.Postgres.MigrationsDir)
}
