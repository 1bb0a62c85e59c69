package entities

import (
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Fields guarda os valores de um registro pelo nome do campo.
// Valores possíveis: string, float64, bool.
type Fields map[string]interface{}

// Record é a representação canônica de um perfil ou de um produto.
type Record struct {
	Identity   string    `json:"identity"`
	Collection string    `json:"collection"`
	Fields     Fields    `json:"fields"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Clone returns a deep copy; the field map is never shared between snapshots.
func (r Record) Clone() Record {
	clone := r
	clone.Fields = r.Fields.Clone()
	return clone
}

func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}

	clone := make(Fields, len(f))
	for k, v := range f {
		clone[k] = v
	}
	return clone
}

// Text retorna o campo como string, vazio quando ausente ou de outro tipo.
func (r Record) Text(field string) string {
	value, ok := r.Fields[field].(string)
	if !ok {
		return ""
	}
	return value
}

func (r Record) Number(field string) float64 {
	switch v := r.Fields[field].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func (r Record) Bool(field string) bool {
	value, _ := r.Fields[field].(bool)
	return value
}

// MediaRef is the externally hosted image URL, "" when there is no image.
func (r Record) MediaRef() string {
	return r.Text(FieldMediaRef)
}

// Initials builds the avatar text shown when a profile has no photo.
func (r Record) Initials() string {
	name := strings.TrimSpace(r.Text(FieldName))
	lastName := strings.TrimSpace(r.Text(FieldLastName))

	if name != "" && lastName != "" {
		return firstLetter(name) + firstLetter(lastName)
	}
	if name != "" {
		return firstLetter(name)
	}
	return DefaultInitials
}

// Display retorna o valor textual do campo ou o placeholder genérico.
func (r Record) Display(field string) string {
	if value := strings.TrimSpace(r.Text(field)); value != "" {
		return value
	}
	return PlaceholderValue
}

func firstLetter(s string) string {
	letter, _ := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(letter))
}

// SortByRecency ordena do mais novo para o mais antigo, desempatando pela identidade.
// É a mesma ordem do ORDER BY do repositório Postgres.
func SortByRecency(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].Identity < records[j].Identity
	})
}
