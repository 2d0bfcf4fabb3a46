package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/models"
)

func TestFactoryCreateMemory(t *testing.T) {
	store, err := NewFactory().Create(models.StorageConfig{Type: models.StorageTypeMemory})
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.(*MemoryStorage)
	assert.True(t, ok)
}

func TestFactoryCreateSQLite(t *testing.T) {
	store, err := NewFactory().Create(models.StorageConfig{
		Type: models.StorageTypeSQLite,
		Path: filepath.Join(t.TempDir(), "history.db"),
	})
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.(*SQLiteStorage)
	assert.True(t, ok)
}

func TestFactoryCreateSQLiteRequiresPath(t *testing.T) {
	_, err := NewFactory().Create(models.StorageConfig{Type: models.StorageTypeSQLite})
	assert.Error(t, err)
}

func TestFactoryCreatePostgresRequiresDSN(t *testing.T) {
	_, err := NewFactory().Create(models.StorageConfig{Type: models.StorageTypePostgres})
	assert.Error(t, err)
}

func TestFactoryUnsupportedType(t *testing.T) {
	_, err := NewFactory().Create(models.StorageConfig{Type: "cassandra"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported storage type")
}

func TestFactorySupportedProviders(t *testing.T) {
	providers := NewFactory().SupportedProviders()
	assert.ElementsMatch(t, []string{"memory", "sqlite", "postgres"}, providers)
}
