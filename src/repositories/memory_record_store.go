package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"florencia/src/domain"
	"florencia/src/domain/entities"
)

// MemoryRecordStore é o Remote Store em memória usado no modo local e nos testes.
// Segue as mesmas regras do RecordRepository: created_at fixo, merge opcional e ordem por recência.
type MemoryRecordStore struct {
	mu       sync.RWMutex
	records  map[string]map[string]entities.Record
	onChange func(domain.RecordChange)
	now      func() time.Time
}

func NewMemoryRecordStore(onChange func(domain.RecordChange)) *MemoryRecordStore {
	return &MemoryRecordStore{
		records:  make(map[string]map[string]entities.Record),
		onChange: onChange,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryRecordStore) GetRecord(ctx context.Context, collection string, identity string) (entities.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return entities.Record{}, false, &domain.StoreError{Op: "get", Collection: collection, Identity: identity, Err: err}
	}
	if identity == "" {
		return entities.Record{}, false, domain.ErrMissingIdentity
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	record, found := s.records[collection][identity]
	if !found {
		return entities.Record{}, false, nil
	}
	return record.Clone(), true, nil
}

func (s *MemoryRecordStore) PutRecord(ctx context.Context, collection string, identity string, fields entities.Fields, mergeExisting bool) error {
	if err := ctx.Err(); err != nil {
		return &domain.StoreError{Op: "put", Collection: collection, Identity: identity, Err: err}
	}
	if identity == "" {
		return domain.ErrMissingIdentity
	}

	s.mu.Lock()
	now := s.now()
	if s.records[collection] == nil {
		s.records[collection] = make(map[string]entities.Record)
	}

	operation := domain.OperationUpdate
	existing, found := s.records[collection][identity]
	if !found {
		operation = domain.OperationInsert
		existing = entities.Record{
			Identity:   identity,
			Collection: collection,
			CreatedAt:  now,
		}
	}

	stored := existing.Clone()
	if !mergeExisting || stored.Fields == nil {
		stored.Fields = entities.Fields{}
	}
	for name, value := range fields {
		stored.Fields[name] = value
	}
	stored.UpdatedAt = now

	s.records[collection][identity] = stored
	s.mu.Unlock()

	s.publish(collection, identity, operation, stored.Fields.Clone(), now)
	return nil
}

func (s *MemoryRecordStore) DeleteRecord(ctx context.Context, collection string, identity string) error {
	if err := ctx.Err(); err != nil {
		return &domain.StoreError{Op: "delete", Collection: collection, Identity: identity, Err: err}
	}
	if identity == "" {
		return domain.ErrMissingIdentity
	}

	s.mu.Lock()
	_, found := s.records[collection][identity]
	delete(s.records[collection], identity)
	now := s.now()
	s.mu.Unlock()

	if !found {
		return &domain.StoreError{Op: "delete", Collection: collection, Identity: identity, Err: domain.ErrRecordNotFound}
	}

	s.publish(collection, identity, domain.OperationDelete, nil, now)
	return nil
}

func (s *MemoryRecordStore) QueryAll(ctx context.Context, collection string) ([]entities.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.StoreError{Op: "query", Collection: collection, Err: err}
	}

	s.mu.RLock()
	records := make([]entities.Record, 0, len(s.records[collection]))
	for _, record := range s.records[collection] {
		records = append(records, record.Clone())
	}
	s.mu.RUnlock()

	entities.SortByRecency(records)
	return records, nil
}

func (s *MemoryRecordStore) publish(collection, identity string, operation domain.Operation, fields entities.Fields, at time.Time) {
	if s.onChange == nil {
		return
	}

	s.onChange(domain.RecordChange{
		EventID:    uuid.NewString(),
		Collection: collection,
		Identity:   identity,
		Operation:  operation,
		Fields:     fields,
		OccurredAt: at,
	})
}
