package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisClient struct {
	client            redis.UniversalClient
	defaultTTLSeconds time.Duration
	prefix            string
}

// NewRedisClient aceita uma lista de endereços separada por vírgula.
// Mais de um endereço abre um ClusterClient, um único endereço abre um cliente simples.
func NewRedisClient(addrs string, poolSize int, defaultTTLSeconds time.Duration) *RedisClient {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: strings.Split(addrs, ","),

		// Pool settings para alta concorrência
		PoolSize:     poolSize,
		MinIdleConns: 10,

		// Cluster específico
		MaxRedirects: 3,

		// Timeouts otimizados para cache
		DialTimeout:  5 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,

		// Retry e circuit breaker
		MaxRetries:      3,
		MinRetryBackoff: 50 * time.Millisecond,
		MaxRetryBackoff: 500 * time.Millisecond,
	})

	return &RedisClient{
		client:            client,
		defaultTTLSeconds: defaultTTLSeconds,
	}
}

// WithPrefix retorna uma cópia do cliente que prefixa todas as chaves. Usado nos testes de integração.
func (rc *RedisClient) WithPrefix(prefix string) *RedisClient {
	clone := *rc
	clone.prefix = prefix
	return &clone
}

func (rc *RedisClient) key(key string) string {
	return rc.prefix + key
}

func (rc *RedisClient) SetKey(ctx context.Context, key string, value string) error {
	fields := map[string]interface{}{
		"data":      value,
		"cached_at": time.Now().Unix(),
	}

	err := rc.client.HSet(ctx, rc.key(key), fields).Err()
	if err != nil {
		return err
	}

	return rc.client.Expire(ctx, rc.key(key), rc.defaultTTLSeconds).Err()
}

func (rc *RedisClient) SetWithRegistry(ctx context.Context, cacheKey string, cacheValue string, registryKeys []string) error {
	pipe := rc.client.Pipeline()

	// 1. Set do cache principal
	fields := map[string]interface{}{
		"data":      cacheValue,
		"cached_at": time.Now().Unix(),
	}
	pipe.HSet(ctx, rc.key(cacheKey), fields)
	pipe.Expire(ctx, rc.key(cacheKey), rc.defaultTTLSeconds)

	// 2. Registra a chave em cada registry para invalidação posterior
	for _, registryKey := range registryKeys {
		pipe.SAdd(ctx, rc.key(registryKey), cacheKey)
		pipe.Expire(ctx, rc.key(registryKey), rc.defaultTTLSeconds)
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (rc *RedisClient) GetKey(ctx context.Context, key string) (string, bool, error) {
	result := rc.client.HGet(ctx, rc.key(key), "data")

	// Cache miss
	if errors.Is(result.Err(), redis.Nil) {
		return "", false, nil
	}
	if result.Err() != nil {
		return "", false, result.Err()
	}

	return result.Val(), true, nil
}

// SetWithTTL grava um valor simples com expiração própria (sessões).
func (rc *RedisClient) SetWithTTL(ctx context.Context, key string, value string, ttl time.Duration) error {
	return rc.client.Set(ctx, rc.key(key), value, ttl).Err()
}

func (rc *RedisClient) GetValue(ctx context.Context, key string) (string, bool, error) {
	value, err := rc.client.Get(ctx, rc.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (rc *RedisClient) GetMultipleSetMembers(ctx context.Context, setKeys []string) (map[string][]string, error) {
	pipe := rc.client.Pipeline()

	commands := make(map[string]*redis.StringSliceCmd, len(setKeys))
	for _, setKey := range setKeys {
		commands[setKey] = pipe.SMembers(ctx, rc.key(setKey))
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	members := make(map[string][]string, len(setKeys))
	for setKey, cmd := range commands {
		members[setKey] = cmd.Val()
	}
	return members, nil
}

// Invalidação em cluster requer cuidado especial: uma chave por vez, slots diferentes
func (rc *RedisClient) InvalidateEntity(ctx context.Context, keys []string) error {
	var errs []string

	for _, key := range keys {
		if err := rc.client.Del(ctx, rc.key(key)).Err(); err != nil {
			errs = append(errs, fmt.Sprintf("key %s: %v", key, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalidation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// InvalidateRegistries apaga todas as chaves registradas e os próprios registries.
func (rc *RedisClient) InvalidateRegistries(ctx context.Context, registryKeys []string) error {
	members, err := rc.GetMultipleSetMembers(ctx, registryKeys)
	if err != nil {
		return fmt.Errorf("failed to read registries: %w", err)
	}

	keys := append([]string{}, registryKeys...)
	for _, registryMembers := range members {
		keys = append(keys, registryMembers...)
	}

	return rc.InvalidateEntity(ctx, keys)
}

// FlushByPrefix apaga todas as chaves com o prefixo do cliente. Sem prefixo não faz nada.
func (rc *RedisClient) FlushByPrefix(ctx context.Context) error {
	if rc.prefix == "" {
		return nil
	}

	flush := func(ctx context.Context, node *redis.Client) error {
		iter := node.Scan(ctx, 0, rc.prefix+"*", 500).Iterator()
		for iter.Next(ctx) {
			if err := node.Del(ctx, iter.Val()).Err(); err != nil {
				return err
			}
		}
		return iter.Err()
	}

	switch client := rc.client.(type) {
	case *redis.ClusterClient:
		return client.ForEachMaster(ctx, flush)
	case *redis.Client:
		return flush(ctx, client)
	}

	return fmt.Errorf("unsupported redis client %T", rc.client)
}

// Health check para o cluster
func (rc *RedisClient) HealthCheck(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

func (rc *RedisClient) Close() error {
	return rc.client.Close()
}
