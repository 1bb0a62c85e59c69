package synchronization_test

import (
	"context"
	"sync"

	"florencia/src/domain"
	"florencia/src/domain/entities"
	"florencia/src/repositories"
)

type getResult struct {
	record entities.Record
	found  bool
	err    error
}

type pendingGet struct {
	release chan getResult
}

// gatedStore segura as leituras quando gated=true até o teste liberar cada uma.
type gatedStore struct {
	*repositories.MemoryRecordStore

	mu      sync.Mutex
	gated   bool
	putErr  error
	pending chan pendingGet
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		MemoryRecordStore: repositories.NewMemoryRecordStore(nil),
		pending:           make(chan pendingGet, 16),
	}
}

func (s *gatedStore) setGated(gated bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gated = gated
}

func (s *gatedStore) failPuts(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putErr = err
}

func (s *gatedStore) GetRecord(ctx context.Context, collection string, identity string) (entities.Record, bool, error) {
	s.mu.Lock()
	gated := s.gated
	s.mu.Unlock()

	if !gated {
		return s.MemoryRecordStore.GetRecord(ctx, collection, identity)
	}

	p := pendingGet{release: make(chan getResult, 1)}
	s.pending <- p

	select {
	case result := <-p.release:
		return result.record, result.found, result.err
	case <-ctx.Done():
		return entities.Record{}, false, ctx.Err()
	}
}

func (s *gatedStore) PutRecord(ctx context.Context, collection string, identity string, fields entities.Fields, mergeExisting bool) error {
	s.mu.Lock()
	err := s.putErr
	s.mu.Unlock()

	if err != nil {
		return err
	}
	return s.MemoryRecordStore.PutRecord(ctx, collection, identity, fields, mergeExisting)
}

type fakeUploader struct {
	mu      sync.Mutex
	url     string
	err     error
	block   chan struct{}
	uploads []domain.Image
}

func (u *fakeUploader) Upload(ctx context.Context, image domain.Image) (string, error) {
	u.mu.Lock()
	u.uploads = append(u.uploads, image)
	block := u.block
	url, err := u.url, u.err
	u.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return url, err
}

type noticeRecorder struct {
	mu      sync.Mutex
	notices []domain.Notice
}

func (r *noticeRecorder) Notify(notice domain.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice)
}

func (r *noticeRecorder) All() []domain.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Notice{}, r.notices...)
}
