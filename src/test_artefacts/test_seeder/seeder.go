package test_seeder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"florencia/src/infra/postgres"
)

type TestSeeder struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) TestSeeder {
	return TestSeeder{pool: pool}
}

// Migrate garante o schema no banco de teste.
func (ts TestSeeder) Migrate(ctx context.Context) {
	if err := postgres.Migrate(ctx, ts.pool, slog.Default()); err != nil {
		panic(fmt.Sprintf("Seeder.Migrate failed: %v", err))
	}
}

func (ts TestSeeder) TruncateTables(ctx context.Context) {
	tables := []string{
		"records",
		"accounts",
	}

	for _, table := range tables {
		_, err := ts.pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		if err != nil {
			panic(fmt.Sprintf("Failed to truncate %s: %v", table, err))
		}
	}
}
