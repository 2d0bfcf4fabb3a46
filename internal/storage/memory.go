package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/models"
)

// MemoryStorage implements the Storage interface using in-memory data
// structures. This provider is ideal for development and testing; data is
// lost on restart.
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[string]*models.RecommendationRecord
}

// NewMemoryStorage creates a new memory-based storage instance.
func NewMemoryStorage() (*MemoryStorage, error) {
	return &MemoryStorage{
		records: make(map[string]*models.RecommendationRecord),
	}, nil
}

// SaveRecommendation stores or replaces a record.
func (m *MemoryStorage) SaveRecommendation(ctx context.Context, record *models.RecommendationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Store a deep copy so later caller mutations of the record or its
	// slices do not leak into storage.
	m.records[record.ID] = record.Clone()

	return nil
}

// ListRecommendations returns a page of records, most recent first.
func (m *MemoryStorage) ListRecommendations(ctx context.Context, limit, offset int) ([]*models.RecommendationRecord, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*models.RecommendationRecord, 0, len(m.records))
	for _, record := range m.records {
		all = append(all, record.Clone())
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[j].CreatedAt.Before(all[i].CreatedAt)
	})

	total := len(all)
	if offset >= total {
		return []*models.RecommendationRecord{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// GetRecommendation retrieves a record by ID.
func (m *MemoryStorage) GetRecommendation(ctx context.Context, id string) (*models.RecommendationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, exists := m.records[id]
	if !exists {
		return nil, fmt.Errorf("recommendation %s: %w", id, ErrNotFound)
	}

	return record.Clone(), nil
}

// DeleteRecommendation removes a record by ID.
func (m *MemoryStorage) DeleteRecommendation(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[id]; !exists {
		return fmt.Errorf("recommendation %s: %w", id, ErrNotFound)
	}

	delete(m.records, id)
	return nil
}

// Close is a no-op for memory storage.
func (m *MemoryStorage) Close() error {
	return nil
}
