// Copyright 2026 The TrustLink Authors
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"fmt"
	"log/slog"

	"codeberg.org/trustlink/trustlink/internal/config"
	"codeberg.org/trustlink/trustlink/internal/database"
	"github.com/urfave/cli/v3"
)

// MigrateDown rolls back the most recent schema migration.
func MigrateDown(_ context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	if err := database.MigrateDown(db.DB, database.DriverFor(cfg.Database.DSN)); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}

	slog.Info("rolled back last migration")
	return nil
}
