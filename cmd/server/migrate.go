package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitledger/internal/storage/sqlite"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := sqlite.RunMigrations(cfg.Database.Path); err != nil {
			return fmt.Errorf("migrate %s: %w", cfg.Database.Path, err)
		}
		slog.Info("Migrations applied", "database", cfg.Database.Path)
		return nil
	},
}
