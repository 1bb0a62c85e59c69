package events

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"florencia/src/domain"
	"florencia/src/domain/entities"
	"florencia/src/infra/debezium"
)

// RecordChangeTransformer converte eventos de CDC da tabela records em RecordChange.
type RecordChangeTransformer struct {
	logger *slog.Logger
}

func NewRecordChangeTransformer(logger *slog.Logger) *RecordChangeTransformer {
	return &RecordChangeTransformer{logger: logger}
}

// TransformCDCEvents ignora eventos de outras tabelas e eventos sem collection/identity.
func (t *RecordChangeTransformer) TransformCDCEvents(ctx context.Context, cdcEvents []*debezium.CDCEvent) []domain.RecordChange {
	changes := make([]domain.RecordChange, 0, len(cdcEvents))

	for _, cdcEvent := range cdcEvents {
		change, err := t.TransformCDCEvent(cdcEvent)
		if err != nil {
			t.logger.Warn("skipping CDC event", "table", cdcEvent.Source.Table, "operation", cdcEvent.Operation, "error", err)
			continue
		}
		changes = append(changes, change)
	}

	return changes
}

func (t *RecordChangeTransformer) TransformCDCEvent(cdcEvent *debezium.CDCEvent) (domain.RecordChange, error) {
	if cdcEvent.Source.Table != domain.TableRecords {
		return domain.RecordChange{}, fmt.Errorf("unsupported table %s", cdcEvent.Source.Table)
	}

	operation := debezium.MapCDCOperation(cdcEvent.Operation)
	if operation == "" {
		return domain.RecordChange{}, fmt.Errorf("unsupported operation %s", cdcEvent.Operation)
	}

	row := cdcEvent.After
	if operation == domain.OperationDelete {
		row = cdcEvent.Before
	}

	collection, _ := row["collection"].(string)
	identity, _ := row["identity"].(string)
	if collection == "" || identity == "" {
		return domain.RecordChange{}, fmt.Errorf("missing collection or identity")
	}

	change := domain.RecordChange{
		EventID:    t.eventID(cdcEvent, collection, identity),
		Collection: collection,
		Identity:   identity,
		Operation:  operation,
		OccurredAt: time.UnixMilli(cdcEvent.TsMs).UTC(),
	}

	if operation != domain.OperationDelete {
		fields, err := parseFields(row["fields"])
		if err != nil {
			return domain.RecordChange{}, err
		}
		change.Fields = fields
	}

	t.logger.Debug("transformed CDC event", "collection", collection, "identity", identity, "operation", operation)
	return change, nil
}

// parseFields aceita o JSONB como string (conversor padrão do Debezium) ou já decodificado.
func parseFields(raw interface{}) (entities.Fields, error) {
	switch value := raw.(type) {
	case nil:
		return entities.Fields{}, nil
	case string:
		fields := entities.Fields{}
		if err := json.Unmarshal([]byte(value), &fields); err != nil {
			return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
		}
		return fields, nil
	case map[string]interface{}:
		return entities.Fields(value).Clone(), nil
	}
	return nil, fmt.Errorf("unexpected fields type %T", raw)
}

// eventID é estável para o mesmo evento reentregue pelo Kafka.
func (t *RecordChangeTransformer) eventID(cdcEvent *debezium.CDCEvent, collection, identity string) string {
	baseKey := fmt.Sprintf("%s:%s:%s:%d:%d", collection, identity, cdcEvent.Operation, cdcEvent.Source.LSN, cdcEvent.TsMs)
	hash := md5.Sum([]byte(baseKey))
	return hex.EncodeToString(hash[:])
}
