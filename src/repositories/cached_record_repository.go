package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"florencia/src/domain"
	"florencia/src/domain/entities"
	"florencia/src/infra/redis"
)

// CachedRecordRepository é o RecordRepository com cache read-through no Redis.
// Cada chave em cache é registrada no registry da coleção; qualquer escrita na coleção invalida o registry inteiro.
type CachedRecordRepository struct {
	store       domain.RecordStore
	redisClient *redis.RedisClient
	logger      *slog.Logger
}

func NewCachedRecordRepository(store domain.RecordStore, redisClient *redis.RedisClient, logger *slog.Logger) *CachedRecordRepository {
	return &CachedRecordRepository{
		store:       store,
		redisClient: redisClient,
		logger:      logger,
	}
}

func recordCacheKey(collection, identity string) string {
	return fmt.Sprintf("records:%s:%s", collection, identity)
}

func collectionCacheKey(collection string) string {
	return fmt.Sprintf("records:%s:all", collection)
}

func collectionRegistryKey(collection string) string {
	return fmt.Sprintf("registry:collection:%s", collection)
}

type cachedRecord struct {
	Found  bool            `json:"found"`
	Record entities.Record `json:"record"`
}

func (r *CachedRecordRepository) GetRecord(ctx context.Context, collection string, identity string) (entities.Record, bool, error) {
	if identity == "" {
		return entities.Record{}, false, domain.ErrMissingIdentity
	}

	cacheKey := recordCacheKey(collection, identity)

	var cached cachedRecord
	hit, err := r.getFromCache(ctx, cacheKey, &cached)
	if err != nil {
		// Erro de cache não impede a leitura no Postgres
		r.logger.Warn("record cache read failed", "key", cacheKey, "error", err)
	}
	if hit {
		r.logger.Debug("record cache hit", "key", cacheKey)
		return cached.Record, cached.Found, nil
	}

	record, found, err := r.store.GetRecord(ctx, collection, identity)
	if err != nil {
		return entities.Record{}, false, err
	}

	r.setInCache(ctx, collection, cacheKey, cachedRecord{Found: found, Record: record})
	return record, found, nil
}

func (r *CachedRecordRepository) QueryAll(ctx context.Context, collection string) ([]entities.Record, error) {
	cacheKey := collectionCacheKey(collection)

	var cached []entities.Record
	hit, err := r.getFromCache(ctx, cacheKey, &cached)
	if err != nil {
		r.logger.Warn("collection cache read failed", "key", cacheKey, "error", err)
	}
	if hit {
		r.logger.Debug("collection cache hit", "key", cacheKey, "records", len(cached))
		return cached, nil
	}

	records, err := r.store.QueryAll(ctx, collection)
	if err != nil {
		return nil, err
	}

	r.setInCache(ctx, collection, cacheKey, records)
	return records, nil
}

// PutRecord invalida antes de responder: o controller relê o registro logo após salvar.
func (r *CachedRecordRepository) PutRecord(ctx context.Context, collection string, identity string, fields entities.Fields, mergeExisting bool) error {
	if err := r.store.PutRecord(ctx, collection, identity, fields, mergeExisting); err != nil {
		return err
	}

	r.invalidate(ctx, collection, identity)
	return nil
}

func (r *CachedRecordRepository) DeleteRecord(ctx context.Context, collection string, identity string) error {
	if err := r.store.DeleteRecord(ctx, collection, identity); err != nil {
		return err
	}

	r.invalidate(ctx, collection, identity)
	return nil
}

// Invalidate descarta o cache de um registro e da coleção. Usado também pelo consumidor de mudanças
// para escritas feitas fora deste processo.
func (r *CachedRecordRepository) Invalidate(ctx context.Context, collection string, identity string) error {
	keys := []string{collectionRegistryKey(collection)}
	if err := r.redisClient.InvalidateRegistries(ctx, keys); err != nil {
		return fmt.Errorf("CachedRecordRepository.Invalidate - failed to invalidate collection %s: %w", collection, err)
	}
	if identity == "" {
		return nil
	}
	return r.redisClient.InvalidateEntity(ctx, []string{recordCacheKey(collection, identity)})
}

func (r *CachedRecordRepository) invalidate(ctx context.Context, collection, identity string) {
	// a escrita já foi confirmada; o cache não pode falhar junto com o request
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := r.Invalidate(ctx, collection, identity); err != nil {
		r.logger.Error("failed to invalidate record cache", "collection", collection, "identity", identity, "error", err)
	}
}

func (r *CachedRecordRepository) getFromCache(ctx context.Context, cacheKey string, target any) (bool, error) {
	cachedJSON, found, err := r.redisClient.GetKey(ctx, cacheKey)
	if !found || err != nil {
		return false, err
	}

	if err := json.Unmarshal([]byte(cachedJSON), target); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached data: %w", err)
	}
	return true, nil
}

func (r *CachedRecordRepository) setInCache(ctx context.Context, collection string, cacheKey string, value any) {
	dataJSON, err := json.Marshal(value)
	if err != nil {
		r.logger.Warn("failed to marshal cache data", "key", cacheKey, "error", err)
		return
	}

	if err := r.redisClient.SetWithRegistry(ctx, cacheKey, string(dataJSON), []string{collectionRegistryKey(collection)}); err != nil {
		r.logger.Warn("failed to set cache with registry", "key", cacheKey, "error", err)
		return
	}

	r.logger.Debug("cache set", "key", cacheKey, "collection", collection)
}
