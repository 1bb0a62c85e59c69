package debezium

import (
	"context"
	"fmt"
	"log/slog"

	"florencia/src/infra/kafka"
)

// CDCBatchEventHandler recebe os eventos válidos de um lote de mensagens.
type CDCBatchEventHandler func(ctx context.Context, events []*CDCEvent) error

type CDCClient struct {
	logger      *slog.Logger
	kafkaClient *kafka.KafkaClient
	serializer  *CDCSerializer
	topic       string
}

func NewCDCClient(logger *slog.Logger, topic string, kafkaClient *kafka.KafkaClient, tables []string) *CDCClient {
	return &CDCClient{
		logger:      logger,
		kafkaClient: kafkaClient,
		serializer:  &CDCSerializer{IncludeTables: tables},
		topic:       topic,
	}
}

// ConsumeCDCEventsBatch bloqueia consumindo o tópico de CDC até ctx ser cancelado.
func (c *CDCClient) ConsumeCDCEventsBatch(ctx context.Context, handler CDCBatchEventHandler) error {
	c.logger.Info("starting CDC batch event consumption", "topic", c.topic)

	return c.kafkaClient.Consumer(ctx, func(messages []kafka.Message) error {
		return c.processBatch(ctx, messages, handler)
	}, c.topic)
}

func (c *CDCClient) processBatch(ctx context.Context, messages []kafka.Message, handler CDCBatchEventHandler) error {
	if len(messages) == 0 {
		return nil
	}

	events, skipped, failed := c.serializer.ParseBatch(messages)
	for _, parseErr := range failed {
		c.logger.Error("failed to parse CDC message", "key", parseErr.Key, "error", parseErr.Err)
	}

	if len(events) > 0 {
		if err := handler(ctx, events); err != nil {
			c.logger.Error("CDC batch event handler failed", "valid_events", len(events), "error", err)
			return fmt.Errorf("failed to handle CDC events batch: %w", err)
		}
	}

	c.logger.Info("completed CDC messages batch processing",
		"total", len(messages),
		"processed", len(events),
		"skipped", skipped,
		"errors", len(failed))

	// Mensagens inválidas não voltam a ser válidas; só falha quando nada do lote foi aproveitado.
	if len(failed) > 0 && len(events) == 0 && skipped == 0 {
		return fmt.Errorf("failed to process any CDC messages in batch")
	}

	return nil
}

func (c *CDCClient) Close() error {
	c.logger.Info("closing CDC client")
	return c.kafkaClient.Close()
}
