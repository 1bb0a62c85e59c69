package test_seeder

import (
	"context"
	"encoding/json"
	"fmt"

	"florencia/src/domain/entities"
)

// InsertRecord grava o registro com o created_at informado, para testar a ordenação por recência.
func (ts TestSeeder) InsertRecord(ctx context.Context, record entities.Record) {
	fields, err := json.Marshal(record.Fields)
	if err != nil {
		panic(fmt.Sprintf("Seeder.InsertRecord failed to marshal fields: %v", err))
	}

	query := `
		INSERT INTO records (collection, identity, fields, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, $4, $4)`

	_, err = ts.pool.Exec(ctx, query,
		record.Collection,
		record.Identity,
		string(fields),
		record.CreatedAt,
	)
	if err != nil {
		panic(fmt.Sprintf("Seeder.InsertRecord failed: %v", err))
	}
}
