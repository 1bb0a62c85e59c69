package test_seeder

import (
	"context"
	"encoding/json"

	"florencia/src/domain/entities"
)

// SelectFields lê os campos gravados direto da tabela, sem passar pelo repositório.
func (ts TestSeeder) SelectFields(ctx context.Context, collection string, identity string) (entities.Fields, error) {
	var raw []byte
	err := ts.pool.QueryRow(ctx, "SELECT fields FROM records WHERE collection = $1 AND identity = $2", collection, identity).Scan(&raw)
	if err != nil {
		return nil, err
	}

	fields := entities.Fields{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func (ts TestSeeder) CountRecords(ctx context.Context, collection string) (int, error) {
	var count int
	err := ts.pool.QueryRow(ctx, "SELECT COUNT(*) FROM records WHERE collection = $1", collection).Scan(&count)
	return count, err
}
