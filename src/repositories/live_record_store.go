package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"florencia/src/domain"
	"florencia/src/domain/entities"
)

// LiveRecordStore adiciona assinaturas a qualquer RecordStore usando um ChangeFeed.
// Cada mudança gera uma nova leitura completa da coleção (queryAll), entregue ao assinante.
type LiveRecordStore struct {
	domain.RecordStore
	feed         domain.ChangeFeed
	queryTimeout time.Duration
	logger       *slog.Logger
}

func NewLiveRecordStore(store domain.RecordStore, feed domain.ChangeFeed, queryTimeout time.Duration, logger *slog.Logger) *LiveRecordStore {
	return &LiveRecordStore{
		RecordStore:  store,
		feed:         feed,
		queryTimeout: queryTimeout,
		logger:       logger,
	}
}

func (s *LiveRecordStore) Subscribe(
	ctx context.Context,
	collection string,
	onChange func([]entities.Record),
	onError func(error),
) (func(), error) {
	// dirty acumula as notificações enquanto uma leitura está em andamento:
	// a próxima leitura sempre reflete todas as mudanças anteriores a ela.
	// Escuta antes da leitura inicial para não perder escritas concorrentes a ela.
	dirty := make(chan struct{}, 1)
	stopListening := s.feed.Listen(collection, func(domain.RecordChange) {
		select {
		case dirty <- struct{}{}:
		default:
		}
	})

	initial, err := s.query(ctx, collection)
	if err != nil {
		stopListening()
		return nil, fmt.Errorf("LiveRecordStore.Subscribe - failed to load initial snapshot: %w", err)
	}
	onChange(initial)

	subCtx, cancel := context.WithCancel(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-subCtx.Done():
				return
			case <-dirty:
			}

			snapshot, err := s.query(subCtx, collection)
			if subCtx.Err() != nil {
				return
			}
			if err != nil {
				s.logger.Error("failed to refresh live snapshot", "collection", collection, "error", err)
				if onError != nil {
					onError(err)
				}
				continue
			}
			onChange(snapshot)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			stopListening()
			cancel()
			<-done
		})
	}, nil
}

func (s *LiveRecordStore) query(ctx context.Context, collection string) ([]entities.Record, error) {
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}

	records, err := s.RecordStore.QueryAll(ctx, collection)
	if err != nil {
		return nil, err
	}

	snapshot := make([]entities.Record, len(records))
	for i, record := range records {
		snapshot[i] = record.Clone()
	}
	return snapshot, nil
}
