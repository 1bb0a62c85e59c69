package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"florencia/src/helper/env"
)

// Catalog são as configurações de negócio que não dependem de infraestrutura.
type Catalog struct {
	Categories     []string       `yaml:"categories"`
	RecentProducts int            `yaml:"recent_products"`
	Password       PasswordPolicy `yaml:"password"`
	Upload         UploadPolicy   `yaml:"upload"`
}

type PasswordPolicy struct {
	RequireSpecial bool `yaml:"require_special"`
}

type UploadPolicy struct {
	// RatePerSecond limita os uploads para o provedor de mídia.
	RatePerSecond float64       `yaml:"rate_per_second"`
	Burst         int           `yaml:"burst"`
	Timeout       time.Duration `yaml:"timeout"`
}

func DefaultCatalog() Catalog {
	return Catalog{
		Categories:     []string{"Limpieza", "Lácteos", "Golosinas", "Despensa", "Bebidas", "Congelados"},
		RecentProducts: 5,
		Password:       PasswordPolicy{RequireSpecial: true},
		Upload: UploadPolicy{
			RatePerSecond: 2,
			Burst:         4,
			Timeout:       30 * time.Second,
		},
	}
}

// LoadCatalog lê o arquivo YAML em path sobre os defaults. Path vazio retorna só os defaults.
// Variáveis de ambiente CATALOG_* têm prioridade sobre o arquivo.
func LoadCatalog(path string) (Catalog, error) {
	catalog := DefaultCatalog()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Catalog{}, fmt.Errorf("config.LoadCatalog - failed to read %s: %w", path, err)
		}

		if err := yaml.Unmarshal(raw, &catalog); err != nil {
			return Catalog{}, fmt.Errorf("config.LoadCatalog - failed to parse %s: %w", path, err)
		}
	}

	catalog.Categories = env.GetStrings("CATALOG_CATEGORIES", catalog.Categories...)
	catalog.RecentProducts = env.GetInt("CATALOG_RECENT_PRODUCTS", catalog.RecentProducts)
	catalog.Password.RequireSpecial = env.GetBool("CATALOG_PASSWORD_REQUIRE_SPECIAL", catalog.Password.RequireSpecial)

	if err := catalog.Validate(); err != nil {
		return Catalog{}, err
	}

	return catalog, nil
}

func (c Catalog) Validate() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("config.Catalog - at least one category is required")
	}
	if c.RecentProducts <= 0 {
		return fmt.Errorf("config.Catalog - recent_products must be positive, got %d", c.RecentProducts)
	}
	if c.Upload.RatePerSecond <= 0 || c.Upload.Burst <= 0 {
		return fmt.Errorf("config.Catalog - upload rate and burst must be positive")
	}
	return nil
}

// HasCategory reports whether category is one of the configured ones.
func (c Catalog) HasCategory(category string) bool {
	for _, known := range c.Categories {
		if known == category {
			return true
		}
	}
	return false
}
