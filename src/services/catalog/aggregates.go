package catalog

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"florencia/src/domain/entities"
)

const Uncategorized = "Sin categoría"

// Summary é o resumo exibido no dashboard.
type Summary struct {
	Total        int                `json:"total"`
	Distribution map[string]float64 `json:"distribution"`
	Recent       []entities.Record  `json:"recent"`
}

func Summarize(records []entities.Record, categories []string, recent int) Summary {
	return Summary{
		Total:        len(records),
		Distribution: CategoryDistribution(records, categories),
		Recent:       Recent(records, recent),
	}
}

// CategoryDistribution retorna o percentual de produtos por categoria, arredondado a uma casa.
// categories entra no resultado mesmo sem produtos; com zero produtos tudo é 0.
func CategoryDistribution(records []entities.Record, categories []string) map[string]float64 {
	counts := make(map[string]int, len(categories))
	for _, category := range categories {
		counts[category] = 0
	}

	for _, record := range records {
		category := strings.TrimSpace(record.Text(entities.FieldCategory))
		if category == "" {
			category = Uncategorized
		}
		counts[category]++
	}

	distribution := make(map[string]float64, len(counts))
	for category, count := range counts {
		if len(records) == 0 {
			distribution[category] = 0
			continue
		}
		distribution[category] = round1(float64(count) * 100 / float64(len(records)))
	}
	return distribution
}

// Recent retorna os n produtos mais novos, sem alterar records.
func Recent(records []entities.Record, n int) []entities.Record {
	sorted := SortByRecency(records)
	if n < 0 {
		n = 0
	}
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// SortByRecency retorna uma cópia ordenada por createdAt, do mais novo ao mais antigo.
func SortByRecency(records []entities.Record) []entities.Record {
	sorted := make([]entities.Record, len(records))
	for i, record := range records {
		sorted[i] = record.Clone()
	}
	entities.SortByRecency(sorted)
	return sorted
}

// Filter busca query no nome, categoria e descrição, ignorando maiúsculas e acentos.
func Filter(records []entities.Record, query string) []entities.Record {
	needle := fold(strings.TrimSpace(query))
	if needle == "" {
		return records
	}

	matches := make([]entities.Record, 0, len(records))
	for _, record := range records {
		for _, field := range []string{entities.FieldName, entities.FieldCategory, entities.FieldDescription} {
			if strings.Contains(fold(record.Text(field)), needle) {
				matches = append(matches, record)
				break
			}
		}
	}
	return matches
}

func fold(s string) string {
	// transform.Chain guarda estado, um por chamada
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

func round1(value float64) float64 {
	return math.Round(value*10) / 10
}
