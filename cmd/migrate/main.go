package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"thirdcoast.systems/reframe/internal/config"
	"thirdcoast.systems/reframe/internal/db"
)

func main() {
	slog.Info("starting database migrator")

	startupCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	conf, err := config.LoadConfig(startupCtx)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := conf.EnsureDirs(); err != nil {
		slog.Error("failed to create data directories", "error", err)
		os.Exit(1)
	}

	databaseConnection, err := db.NewDatabaseConnection(startupCtx, conf.DatabasePath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer databaseConnection.Close()
	slog.Info("database connection established", "path", conf.DatabasePath)

	if err := databaseConnection.Migrate(startupCtx); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	slog.Info("database migrations completed successfully")
}
