package merge

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"florencia/src/domain/entities"
)

// Sources são as três origens parciais de um registro. Qualquer uma pode ser nil.
type Sources struct {
	// Remote é o documento lido do Remote Store.
	Remote *entities.Record
	// Session vem do provedor de identidade (nome e email).
	Session *entities.Record
	// Navigation foi passado pela tela anterior, ex: dados recém salvos.
	Navigation *entities.Record
}

// NeedsInitialization reports whether the record was never written to the store.
func (s Sources) NeedsInitialization() bool {
	return s.Remote == nil
}

// Merge produz o registro canônico campo a campo.
// Precedência: Navigation > Remote > Session, sempre ignorando valores vazios
// da fonte mais forte. Campos sem valor em nenhuma fonte recebem o default do schema.
// A identidade e o CreatedAt seguem Remote > Navigation > Session pois nunca mudam.
func Merge(schema entities.Schema, sources Sources) entities.Record {
	byPrecedence := []*entities.Record{sources.Navigation, sources.Remote, sources.Session}
	immutableOrder := []*entities.Record{sources.Remote, sources.Navigation, sources.Session}

	merged := entities.Record{
		Collection: schema.Collection,
		Fields:     make(entities.Fields, len(schema.Fields)),
	}

	for _, source := range immutableOrder {
		if source == nil {
			continue
		}
		if merged.Identity == "" && source.Identity != "" {
			merged.Identity = source.Identity
		}
		if merged.CreatedAt.IsZero() && !source.CreatedAt.IsZero() {
			merged.CreatedAt = source.CreatedAt
		}
	}

	if sources.Remote != nil {
		merged.UpdatedAt = sources.Remote.UpdatedAt
	}

	for _, spec := range schema.Fields {
		merged.Fields[spec.Name] = spec.Default

		for _, source := range byPrecedence {
			if source == nil {
				continue
			}
			if value, ok := Normalize(spec.Kind, source.Fields[spec.Name]); ok {
				merged.Fields[spec.Name] = value
				break
			}
		}
	}

	return merged
}

// Overlay aplica campos parciais sobre um registro existente usando a mesma
// regra do Merge: valores vazios nunca apagam um valor já presente.
func Overlay(schema entities.Schema, base entities.Record, partial entities.Fields) entities.Record {
	top := entities.Record{Fields: partial}
	return Merge(schema, Sources{Remote: &base, Navigation: &top})
}

// Apply grava partial sobre base literalmente, como o Remote Store faz:
// um valor vazio limpa o campo, que volta ao default do schema.
// Campos ausentes de partial mantêm o valor de base.
func Apply(schema entities.Schema, base entities.Record, partial entities.Fields) entities.Record {
	applied := Merge(schema, Sources{Remote: &base})

	for _, spec := range schema.Fields {
		raw, present := partial[spec.Name]
		if !present {
			continue
		}
		if value, ok := Normalize(spec.Kind, raw); ok {
			applied.Fields[spec.Name] = value
		} else {
			applied.Fields[spec.Name] = spec.Default
		}
	}

	return applied
}

// Normalize coerces value to the kind of the field. ok=false means the value is
// empty (nil, "" or unusable) and must not win over a weaker source.
func Normalize(kind entities.FieldKind, value interface{}) (interface{}, bool) {
	if value == nil {
		return nil, false
	}

	switch kind {
	case entities.KindText, entities.KindMedia:
		switch v := value.(type) {
		case string:
			return v, v != ""
		case time.Time:
			if v.IsZero() {
				return nil, false
			}
			return v.Format("02/01/2006"), true
		case fmt.Stringer:
			s := v.String()
			return s, s != ""
		default:
			s := fmt.Sprint(v)
			return s, s != ""
		}

	case entities.KindNumber:
		switch v := value.(type) {
		case float64:
			return v, true
		case float32:
			return float64(v), true
		case int:
			return float64(v), true
		case int32:
			return float64(v), true
		case int64:
			return float64(v), true
		case json.Number:
			f, err := v.Float64()
			return f, err == nil
		case string:
			if v == "" {
				return nil, false
			}
			f, err := strconv.ParseFloat(v, 64)
			return f, err == nil
		}

	case entities.KindBool:
		switch v := value.(type) {
		case bool:
			return v, true
		case string:
			b, err := strconv.ParseBool(v)
			return b, err == nil
		}
	}

	return nil, false
}
