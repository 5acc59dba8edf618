// Package main runs the taskman API server: HTTP handlers, the notification
// job runner and the scheduled overdue sweep.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/taskman-api/internal/config"
	"github.com/phrazzld/taskman-api/internal/platform/logger"
	"github.com/phrazzld/taskman-api/internal/platform/postgres"
)

func main() {
	migrateCmd := flag.String("migrate", "",
		"run a migration command (up, down, reset, status, version) and exit")
	skipMigrations := flag.Bool("skip-migrations", false, "do not apply pending migrations at startup")
	flag.Parse()

	if err := run(*migrateCmd, *skipMigrations); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(migrateCmd string, skipMigrations bool) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}

	log, closer, err := logger.Setup(logger.ConfigFromServer(cfg.Server))
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	defer func() { _ = closer.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := setupAppDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}

	if migrateCmd != "" {
		defer func() { _ = db.Close() }()
		return postgres.Migrate(ctx, db, migrateCmd, log)
	}
	if !skipMigrations {
		if err := postgres.Migrate(ctx, db, "up", log); err != nil {
			_ = db.Close()
			return err
		}
	}

	app, err := newApplication(ctx, cfg, log, db)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}

// loadAppConfig loads configuration from the environment, .env and config.yaml.
func loadAppConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
