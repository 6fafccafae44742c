package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// migrations are applied in order; index+1 is the schema version
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS bus_line (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		data       JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS planning_params (
		id         SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
		data       JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS calendar_day (
		year     INTEGER NOT NULL,
		season   TEXT NOT NULL,
		day_type TEXT NOT NULL,
		days     INTEGER NOT NULL CHECK (days >= 0),
		PRIMARY KEY (year, season, day_type)
	);

	CREATE TABLE IF NOT EXISTS calculation_run (
		id          UUID PRIMARY KEY,
		computed_at TIMESTAMPTZ NOT NULL,
		line_count  INTEGER NOT NULL,
		total_fleet INTEGER NOT NULL,
		result      JSONB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_calculation_run_computed_at
		ON calculation_run (computed_at DESC);`,
}

// Migrate brings the schema up to date. Each migration runs in its own
// transaction together with its schema_version bump.
func Migrate(ctx context.Context, p *pgxpool.Pool) (int, error) {
	if _, err := p.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version    INTEGER PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return 0, fmt.Errorf("failed to create schema_version: %w", err)
	}

	var current int
	if err := p.QueryRow(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}

	applied := 0
	for i := current; i < len(migrations); i++ {
		err := pgx.BeginFunc(ctx, p, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, migrations[i]); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, "INSERT INTO schema_version (version) VALUES ($1)", i+1)
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		applied++
	}

	return applied, nil
}
