package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFiles embed.FS

// runMigrations applies the embedded migrations of the given dialect.
func runMigrations(ctx context.Context, db *sql.DB, d dialect) error {
	fsys, err := fs.Sub(migrationFiles, "migrations/"+d.name)
	if err != nil {
		return fmt.Errorf("failed to open migrations for %s: %w", d.name, err)
	}

	provider, err := goose.NewProvider(d.goose, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	for _, result := range results {
		slog.Info("applied migration",
			"dialect", d.name,
			"version", result.Source.Version,
			"duration_ms", result.Duration.Milliseconds())
	}
	return nil
}
