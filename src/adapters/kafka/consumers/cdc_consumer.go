package consumers

import (
	"context"
	"fmt"
	"log/slog"

	"florencia/src/infra/debezium"
	"florencia/src/services/events"
)

// CDCConsumer lê o CDC da tabela records e republica cada linha alterada como RecordChange.
type CDCConsumer struct {
	logger      *slog.Logger
	cdcClient   *debezium.CDCClient
	transformer *events.RecordChangeTransformer
	publisher   *events.ChangePublisher
}

func NewCDCConsumer(
	logger *slog.Logger,
	cdcClient *debezium.CDCClient,
	transformer *events.RecordChangeTransformer,
	publisher *events.ChangePublisher,
) *CDCConsumer {
	return &CDCConsumer{
		logger:      logger,
		cdcClient:   cdcClient,
		transformer: transformer,
		publisher:   publisher,
	}
}

func (c *CDCConsumer) Start(ctx context.Context) error {
	c.logger.Info("starting CDC consumer")
	return c.cdcClient.ConsumeCDCEventsBatch(ctx, c.handleCDCEventsBatch)
}

func (c *CDCConsumer) handleCDCEventsBatch(ctx context.Context, cdcEvents []*debezium.CDCEvent) error {
	changes := c.transformer.TransformCDCEvents(ctx, cdcEvents)
	if len(changes) == 0 {
		return nil
	}

	if err := c.publisher.PublishChanges(ctx, changes); err != nil {
		return fmt.Errorf("failed to publish record changes batch: %w", err)
	}

	if skipped := len(cdcEvents) - len(changes); skipped > 0 {
		c.logger.Warn("some CDC events were not transformed", "skipped", skipped, "published", len(changes))
	}
	return nil
}

func (c *CDCConsumer) Close() error {
	c.logger.Info("closing CDC consumer")
	return c.cdcClient.Close()
}
