package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"florencia/src/domain"
	"florencia/src/infra/kafka"
)

type MessageProducer interface {
	Producer(messages []kafka.Message, topic string) error
}

// ChangePublisher publica RecordChange no tópico de mudanças, particionado por collection:identity.
type ChangePublisher struct {
	logger   *slog.Logger
	producer MessageProducer
	topic    string
}

func NewChangePublisher(logger *slog.Logger, producer MessageProducer, topic string) *ChangePublisher {
	return &ChangePublisher{
		logger:   logger,
		producer: producer,
		topic:    topic,
	}
}

func ChangeKey(change domain.RecordChange) string {
	return change.Collection + ":" + change.Identity
}

func (p *ChangePublisher) PublishChanges(ctx context.Context, changes []domain.RecordChange) error {
	if len(changes) == 0 {
		return nil
	}

	messages := make([]kafka.Message, 0, len(changes))
	for _, change := range changes {
		payload, err := json.Marshal(change)
		if err != nil {
			p.logger.Error("failed to marshal record change", "event_id", change.EventID, "error", err)
			continue
		}

		messages = append(messages, kafka.Message{
			Key:   ChangeKey(change),
			Value: payload,
			Headers: map[string]string{
				"event_id":       change.EventID,
				"collection":     change.Collection,
				"operation":      string(change.Operation),
				"source_service": "florencia-cdc-transformer",
				"schema_version": "v1",
			},
		})
	}

	if err := p.producer.Producer(messages, p.topic); err != nil {
		p.logger.Error("failed to publish record changes", "topic", p.topic, "count", len(messages), "error", err)
		return fmt.Errorf("failed to publish record changes to topic %s: %w", p.topic, err)
	}

	p.logger.Info("published record changes", "topic", p.topic, "count", len(messages))
	return nil
}
