package storage

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/models"
)

// The SQL backends store the request and movie payloads as JSON columns.
// These helpers keep the encoding in one place so SQLite and PostgreSQL
// rows stay interchangeable.

func marshalRequest(req models.RecommendRequest) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}
	return string(data), nil
}

func marshalMovies(movies []models.Movie) (string, error) {
	if movies == nil {
		movies = []models.Movie{}
	}
	data, err := json.Marshal(movies)
	if err != nil {
		return "", fmt.Errorf("failed to encode movies: %w", err)
	}
	return string(data), nil
}

func unmarshalRequest(raw string, req *models.RecommendRequest) error {
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), req); err != nil {
		return fmt.Errorf("failed to decode request: %w", err)
	}
	return nil
}

func unmarshalMovies(raw string) ([]models.Movie, error) {
	if raw == "" {
		return []models.Movie{}, nil
	}
	var movies []models.Movie
	if err := json.Unmarshal([]byte(raw), &movies); err != nil {
		return nil, fmt.Errorf("failed to decode movies: %w", err)
	}
	return movies, nil
}
