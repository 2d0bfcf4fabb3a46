package storage

import (
	"context"

	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/models"
)

// Storage persists finished recommendation runs for the history endpoints.
// It is a clean abstraction over the concrete backends: in-memory for
// development and tests, SQLite for single-node deployments, PostgreSQL
// for production.
type Storage interface {
	// SaveRecommendation stores or replaces a record by ID.
	SaveRecommendation(ctx context.Context, record *models.RecommendationRecord) error

	// ListRecommendations returns a page of records ordered most recent
	// first, along with the total count before paging.
	ListRecommendations(ctx context.Context, limit, offset int) ([]*models.RecommendationRecord, int, error)

	// GetRecommendation retrieves a record by its ID. Missing records
	// return an error wrapping ErrNotFound.
	GetRecommendation(ctx context.Context, id string) (*models.RecommendationRecord, error)

	// DeleteRecommendation removes a record by its ID. Missing records
	// return an error wrapping ErrNotFound.
	DeleteRecommendation(ctx context.Context, id string) error

	// Close closes the storage connection and cleans up resources.
	Close() error
}
