package debezium

import (
	"encoding/json"
	"fmt"
	"strings"

	"florencia/src/domain"
	"florencia/src/infra/kafka"
)

// CDCSerializer faz o parse e o filtro das mensagens do Debezium.
type CDCSerializer struct {
	IncludeTables []string
	SkipSnapshots bool
}

type ParseError struct {
	Key string
	Err error
}

// IsTableMonitored aceita nomes exatos ou prefixos terminados em "*".
func (s *CDCSerializer) IsTableMonitored(tableName string) bool {
	for _, included := range s.IncludeTables {
		if tableName == included {
			return true
		}
		if prefix, ok := strings.CutSuffix(included, "*"); ok && strings.HasPrefix(tableName, prefix) {
			return true
		}
	}
	return false
}

func (s *CDCSerializer) ParseCDCEvent(messageValue []byte) (*CDCEvent, error) {
	var cdcEvent CDCEvent
	if err := json.Unmarshal(messageValue, &cdcEvent); err != nil {
		return nil, fmt.Errorf("failed to unmarshal CDC event: %w", err)
	}

	if err := s.validateCDCEvent(&cdcEvent); err != nil {
		return nil, fmt.Errorf("invalid CDC event: %w", err)
	}

	return &cdcEvent, nil
}

// ParseBatch separa as mensagens em eventos válidos, ignoradas pelo filtro e inválidas.
// Tombstones (valor vazio) emitidos após um delete contam como ignoradas.
func (s *CDCSerializer) ParseBatch(messages []kafka.Message) (events []*CDCEvent, skipped int, failed []ParseError) {
	for _, msg := range messages {
		if len(msg.Value) == 0 {
			skipped++
			continue
		}

		cdcEvent, err := s.ParseCDCEvent(msg.Value)
		if err != nil {
			failed = append(failed, ParseError{Key: msg.Key, Err: err})
			continue
		}

		if !s.ShouldProcessEvent(cdcEvent) {
			skipped++
			continue
		}

		events = append(events, cdcEvent)
	}
	return events, skipped, failed
}

func (s *CDCSerializer) validateCDCEvent(event *CDCEvent) error {
	if event.Source.Table == "" {
		return fmt.Errorf("missing source table")
	}

	switch event.Operation {
	case "c", "u", "r":
		if event.After == nil {
			return fmt.Errorf("missing 'after' data for operation %s", event.Operation)
		}
	case "d":
		if event.Before == nil {
			return fmt.Errorf("missing 'before' data for delete operation")
		}
	case "":
		return fmt.Errorf("missing operation")
	default:
		return fmt.Errorf("invalid operation: %s", event.Operation)
	}

	return nil
}

func (s *CDCSerializer) ShouldProcessEvent(event *CDCEvent) bool {
	if !s.IsTableMonitored(event.Source.Table) {
		return false
	}
	if s.SkipSnapshots && event.Source.Snapshot == "true" {
		return false
	}
	return true
}

// MapCDCOperation converte o código do Debezium; leituras de snapshot viram inserções.
func MapCDCOperation(cdcOp string) domain.Operation {
	switch cdcOp {
	case "c", "r":
		return domain.OperationInsert
	case "u":
		return domain.OperationUpdate
	case "d":
		return domain.OperationDelete
	}
	return ""
}
