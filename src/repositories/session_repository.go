package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"florencia/src/domain/entities"
	"florencia/src/infra/redis"
)

// SessionRepository guarda as sessões do provedor local no Redis, uma chave por token.
type SessionRepository struct {
	redisClient *redis.RedisClient
	ttl         time.Duration
}

func NewSessionRepository(redisClient *redis.RedisClient, ttl time.Duration) *SessionRepository {
	return &SessionRepository{redisClient: redisClient, ttl: ttl}
}

func sessionKey(token string) string {
	return "session:" + token
}

func (r *SessionRepository) SaveSession(ctx context.Context, session entities.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("SessionRepository.SaveSession - failed to marshal session: %w", err)
	}

	if err := r.redisClient.SetWithTTL(ctx, sessionKey(session.Token), string(data), r.ttl); err != nil {
		return fmt.Errorf("SessionRepository.SaveSession - failed to store session: %w", err)
	}
	return nil
}

func (r *SessionRepository) FindSession(ctx context.Context, token string) (entities.Session, bool, error) {
	data, found, err := r.redisClient.GetValue(ctx, sessionKey(token))
	if err != nil {
		return entities.Session{}, false, fmt.Errorf("SessionRepository.FindSession - failed to read session: %w", err)
	}
	if !found {
		return entities.Session{}, false, nil
	}

	var session entities.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return entities.Session{}, false, fmt.Errorf("SessionRepository.FindSession - failed to unmarshal session: %w", err)
	}
	return session, true, nil
}

func (r *SessionRepository) DeleteSession(ctx context.Context, token string) error {
	return r.redisClient.InvalidateEntity(ctx, []string{sessionKey(token)})
}
