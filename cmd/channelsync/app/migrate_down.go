package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lodgeworks/channelsync/database"
)

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert database migrations",
	Long: `Revert the database schema by dropping all channelsync tables.
WARNING: This operation destroys all sync state, mappings and audit history.

Examples:
  channelsync migrate down --config config.yaml --yes`,
	RunE: runMigrateDown,
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	conn, cleanup, err := connectForMigration(ctx, cmd, "revert all migrations on")
	if err != nil || conn == nil {
		return err
	}
	defer cleanup()

	slog.Info("Reverting database migrations")
	if err := database.MigrateDown(ctx, conn); err != nil {
		return fmt.Errorf("failed to revert migrations: %w", err)
	}

	slog.Info("Migrations reverted successfully")
	return nil
}
