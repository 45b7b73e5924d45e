package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"log/slog"

	"github.com/nowkit/nowkit/core/logger"
)

// RunMigrations applies all up migrations from the given directory. An empty
// dir defaults to ./migrations relative to the working directory.
func RunMigrations(ctx context.Context, cfg Config, dir string) error {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		dir = filepath.Join(cwd, "migrations")
	}
	sourceURL := "file://" + dir

	m, err := migrate.New(sourceURL, cfg.URL())
	if err != nil {
		logger.Error(ctx, "db.migrate", "init",
			slog.String("path", dir),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}

	fromVer, _, _ := m.Version()

	start := time.Now()
	upErr := m.Up()
	took := time.Since(start)

	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		logger.Error(ctx, "db.migrate", "apply",
			slog.String("err", upErr.Error()),
			slog.Duration("duration", took),
		)
		return fmt.Errorf("migration execution failed: %w", upErr)
	}

	toVer, _, _ := m.Version()
	logger.Info(ctx, "db.migrate", "summary",
		slog.Uint64("from_ver", uint64(fromVer)),
		slog.Uint64("to_ver", uint64(toVer)),
		slog.Duration("duration", took),
	)
	return nil
}
