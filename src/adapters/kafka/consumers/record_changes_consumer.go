package consumers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"florencia/src/domain"
	"florencia/src/infra/kafka"
)

// CacheInvalidator descarta o cache de um registro alterado fora deste processo.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, collection string, identity string) error
}

// ChangePublisher é o destino local das mudanças (o feed das assinaturas).
type ChangePublisher interface {
	Publish(change domain.RecordChange)
}

// RecordChangesConsumer entrega o tópico de mudanças ao feed local, invalidando o cache antes.
type RecordChangesConsumer struct {
	logger      *slog.Logger
	feed        ChangePublisher
	invalidator CacheInvalidator
}

func NewRecordChangesConsumer(logger *slog.Logger, feed ChangePublisher, invalidator CacheInvalidator) *RecordChangesConsumer {
	return &RecordChangesConsumer{
		logger:      logger,
		feed:        feed,
		invalidator: invalidator,
	}
}

func (c *RecordChangesConsumer) Start(ctx context.Context, kafkaClient *kafka.KafkaClient, topic string) error {
	c.logger.Info("starting record changes consumer", "topic", topic)

	return kafkaClient.Consumer(ctx, func(messages []kafka.Message) error {
		return c.HandleMessages(ctx, messages)
	}, topic)
}

// HandleMessages descarta mensagens inválidas: reprocessá-las não as tornaria válidas.
func (c *RecordChangesConsumer) HandleMessages(ctx context.Context, messages []kafka.Message) error {
	for _, msg := range messages {
		var change domain.RecordChange
		if err := json.Unmarshal(msg.Value, &change); err != nil {
			c.logger.Error("failed to unmarshal record change", "key", msg.Key, "error", err)
			continue
		}
		if change.Collection == "" || change.Identity == "" {
			c.logger.Error("invalid record change: missing collection or identity", "key", msg.Key)
			continue
		}

		if c.invalidator != nil {
			if err := c.invalidate(ctx, change); err != nil {
				// sem invalidar, o próximo snapshot viria do cache antigo
				return err
			}
		}

		c.feed.Publish(change)
	}

	c.logger.Debug("record changes delivered", "count", len(messages))
	return nil
}

func (c *RecordChangesConsumer) invalidate(ctx context.Context, change domain.RecordChange) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.invalidator.Invalidate(ctx, change.Collection, change.Identity); err != nil {
		c.logger.Error("failed to invalidate record cache", "collection", change.Collection, "identity", change.Identity, "error", err)
		return err
	}
	return nil
}
