package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Migration struct {
	Name  string
	Query string
}

// Migrations são aplicadas em ordem e registradas em schema_migrations.
var Migrations = []Migration{
	{
		Name: "records",
		Query: `
			CREATE TABLE IF NOT EXISTS records (
				collection TEXT NOT NULL,
				identity   TEXT NOT NULL,
				fields     JSONB NOT NULL DEFAULT '{}'::jsonb,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (collection, identity)
			);

			CREATE INDEX IF NOT EXISTS records_recency_idx
				ON records (collection, created_at DESC, identity);

			-- Debezium precisa do registro anterior completo nos UPDATE/DELETE
			ALTER TABLE records REPLICA IDENTITY FULL;
		`,
	},
	{
		Name: "accounts",
		Query: `
			CREATE TABLE IF NOT EXISTS accounts (
				id          TEXT PRIMARY KEY,
				email       TEXT NOT NULL UNIQUE,
				secret_hash TEXT NOT NULL,
				name        TEXT,
				last_name   TEXT,
				created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`,
	},
}

func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name       TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	for _, migration := range Migrations {
		var applied bool
		err := pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)", migration.Name).Scan(&applied)
		if err != nil {
			return fmt.Errorf("failed to check migration %s: %w", migration.Name, err)
		}
		if applied {
			logger.Debug("migration already applied", "migration", migration.Name)
			continue
		}

		if _, err := pool.Exec(ctx, migration.Query); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Name, err)
		}
		if _, err := pool.Exec(ctx, "INSERT INTO schema_migrations (name) VALUES ($1)", migration.Name); err != nil {
			return fmt.Errorf("failed to mark migration %s as applied: %w", migration.Name, err)
		}

		logger.Info("migration applied", "migration", migration.Name)
	}

	return nil
}
