package storage

import (
	"fmt"

	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/models"
)

// Factory provides a centralized way to create storage instances based on
// configuration, so backends can be swapped without code changes.
type Factory struct{}

// NewFactory creates a new storage factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Create instantiates a storage provider based on the provided configuration.
// Supported providers:
//   - memory: in-memory storage (for testing/development)
//   - sqlite: SQLite database storage (single-node persistence)
//   - postgres: PostgreSQL database storage (production)
func (f *Factory) Create(config models.StorageConfig) (Storage, error) {
	switch config.Type {
	case models.StorageTypeMemory:
		return NewMemoryStorage()
	case models.StorageTypeSQLite:
		return NewSQLiteStorage(config)
	case models.StorageTypePostgres:
		return NewPostgresStorage(config)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", config.Type)
	}
}

// SupportedProviders returns all supported storage provider types.
func (f *Factory) SupportedProviders() []string {
	return []string{models.StorageTypeMemory, models.StorageTypeSQLite, models.StorageTypePostgres}
}
