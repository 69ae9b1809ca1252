package config

import (
	"fmt"
	"os"

	"github.com/rpggio/liveshop/internal/domain/session"
	"gopkg.in/yaml.v3"
)

// CatalogSeed is the YAML document listing batches to load at startup.
type CatalogSeed struct {
	Batches []session.CatalogBatch `yaml:"batches"`
}

// LoadCatalogSeed reads the catalog seed file.
func LoadCatalogSeed(path string) ([]session.CatalogBatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog seed: %w", err)
	}
	var seed CatalogSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse catalog seed: %w", err)
	}
	for i, b := range seed.Batches {
		if b.BatchID == "" || b.ProductID == "" {
			return nil, fmt.Errorf("catalog seed entry %d: batch_id and product_id are required", i)
		}
	}
	return seed.Batches, nil
}
