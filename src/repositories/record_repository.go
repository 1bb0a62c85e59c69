package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"florencia/src/domain"
	"florencia/src/domain/entities"
	"florencia/src/infra/postgres"
)

// RecordRepository é o Remote Store sobre a tabela records (um documento JSONB por coleção e identidade).
type RecordRepository struct {
	readPool  *pgxpool.Pool
	writePool *pgxpool.Pool
}

func NewRecordRepository(readPool *pgxpool.Pool, writePool *pgxpool.Pool) *RecordRepository {
	return &RecordRepository{readPool: readPool, writePool: writePool}
}

const selectRecordColumns = `
	SELECT
		collection,
		identity,
		fields,
		created_at,
		updated_at
	FROM
		records
`

type recordScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row recordScanner) (entities.Record, error) {
	var (
		record    entities.Record
		rawFields []byte
	)

	if err := row.Scan(&record.Collection, &record.Identity, &rawFields, &record.CreatedAt, &record.UpdatedAt); err != nil {
		return entities.Record{}, err
	}

	record.Fields = entities.Fields{}
	if len(rawFields) > 0 {
		if err := json.Unmarshal(rawFields, &record.Fields); err != nil {
			return entities.Record{}, fmt.Errorf("failed to unmarshal fields: %w", err)
		}
	}
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()

	return record, nil
}

func (r *RecordRepository) GetRecord(ctx context.Context, collection string, identity string) (entities.Record, bool, error) {
	if identity == "" {
		return entities.Record{}, false, domain.ErrMissingIdentity
	}

	query := selectRecordColumns + `
	WHERE
		collection = $1 AND identity = $2
	`

	record, err := scanRecord(r.readPool.QueryRow(ctx, query, collection, identity))
	if postgres.IsNoRows(err) {
		return entities.Record{}, false, nil
	}
	if err != nil {
		return entities.Record{}, false, &domain.StoreError{Op: "get", Collection: collection, Identity: identity, Err: err}
	}

	return record, true, nil
}

// PutRecord faz upsert do documento. created_at é definido só na inserção.
func (r *RecordRepository) PutRecord(ctx context.Context, collection string, identity string, fields entities.Fields, mergeExisting bool) error {
	if identity == "" {
		return domain.ErrMissingIdentity
	}
	if fields == nil {
		fields = entities.Fields{}
	}

	payload, err := json.Marshal(fields)
	if err != nil {
		return &domain.StoreError{Op: "put", Collection: collection, Identity: identity, Err: fmt.Errorf("failed to marshal fields: %w", err)}
	}

	query := `
		INSERT INTO
			records (collection, identity, fields)
		VALUES
			($1, $2, $3::jsonb)
		ON CONFLICT (collection, identity) DO UPDATE SET
			fields = CASE
				WHEN $4::boolean THEN records.fields || excluded.fields
				ELSE excluded.fields
			END,
			updated_at = NOW()
	`

	if _, err := r.writePool.Exec(ctx, query, collection, identity, string(payload), mergeExisting); err != nil {
		return &domain.StoreError{Op: "put", Collection: collection, Identity: identity, Err: err}
	}
	return nil
}

func (r *RecordRepository) DeleteRecord(ctx context.Context, collection string, identity string) error {
	if identity == "" {
		return domain.ErrMissingIdentity
	}

	tag, err := r.writePool.Exec(ctx, "DELETE FROM records WHERE collection = $1 AND identity = $2", collection, identity)
	if err != nil {
		return &domain.StoreError{Op: "delete", Collection: collection, Identity: identity, Err: err}
	}
	if tag.RowsAffected() == 0 {
		return &domain.StoreError{Op: "delete", Collection: collection, Identity: identity, Err: domain.ErrRecordNotFound}
	}
	return nil
}

func (r *RecordRepository) QueryAll(ctx context.Context, collection string) ([]entities.Record, error) {
	query := selectRecordColumns + `
	WHERE
		collection = $1
	ORDER BY
		created_at DESC, identity
	`

	rows, err := r.readPool.Query(ctx, query, collection)
	if err != nil {
		return nil, &domain.StoreError{Op: "query", Collection: collection, Err: err}
	}
	defer rows.Close()

	records := make([]entities.Record, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, &domain.StoreError{Op: "query", Collection: collection, Err: err}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Op: "query", Collection: collection, Err: err}
	}

	return records, nil
}
