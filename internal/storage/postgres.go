package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS recommendations (
	id            TEXT PRIMARY KEY,
	identifier    TEXT NOT NULL DEFAULT '',
	request       JSONB NOT NULL,
	text          TEXT NOT NULL DEFAULT '',
	movies        JSONB NOT NULL DEFAULT '[]',
	status        TEXT NOT NULL,
	error_type    TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_recommendations_created_at
	ON recommendations (created_at DESC);
`

// PostgresStorage implements the Storage interface using PostgreSQL via a
// pgx connection pool. This is the production backend.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a PostgreSQL storage instance and ensures the
// schema exists.
func NewPostgresStorage(config models.StorageConfig) (Storage, error) {
	if config.Database.DSN == "" {
		return nil, fmt.Errorf("dsn is required for PostgreSQL storage")
	}

	poolConfig, err := pgxpool.ParseConfig(config.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dsn: %w", err)
	}
	if config.Database.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(config.Database.MaxOpenConns)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(context.Background(), postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &PostgresStorage{pool: pool}, nil
}

// SaveRecommendation stores or replaces a record (upsert pattern).
func (ps *PostgresStorage) SaveRecommendation(ctx context.Context, record *models.RecommendationRecord) error {
	request, err := marshalRequest(record.Request)
	if err != nil {
		return err
	}
	movies, err := marshalMovies(record.Movies)
	if err != nil {
		return err
	}

	_, err = ps.pool.Exec(ctx, `
		INSERT INTO recommendations
			(id, identifier, request, text, movies, status, error_type, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			identifier = EXCLUDED.identifier,
			request = EXCLUDED.request,
			text = EXCLUDED.text,
			movies = EXCLUDED.movies,
			status = EXCLUDED.status,
			error_type = EXCLUDED.error_type,
			error_message = EXCLUDED.error_message,
			created_at = EXCLUDED.created_at`,
		record.ID, record.Identifier, request, record.Text, movies,
		record.Status, record.ErrorType, record.ErrorMsg, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save recommendation: %w", err)
	}
	return nil
}

// ListRecommendations returns a page of records, most recent first.
func (ps *PostgresStorage) ListRecommendations(ctx context.Context, limit, offset int) ([]*models.RecommendationRecord, int, error) {
	var total int
	if err := ps.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM recommendations`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count recommendations: %w", err)
	}

	if limit <= 0 {
		limit = total
	}
	rows, err := ps.pool.Query(ctx, `
		SELECT id, identifier, request::text, text, movies::text, status, error_type, error_message, created_at
		FROM recommendations
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list recommendations: %w", err)
	}
	defer rows.Close()

	records := make([]*models.RecommendationRecord, 0, limit)
	for rows.Next() {
		record, err := scanPostgresRecord(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read recommendations: %w", err)
	}
	return records, total, nil
}

// GetRecommendation retrieves a record by ID.
func (ps *PostgresStorage) GetRecommendation(ctx context.Context, id string) (*models.RecommendationRecord, error) {
	row := ps.pool.QueryRow(ctx, `
		SELECT id, identifier, request::text, text, movies::text, status, error_type, error_message, created_at
		FROM recommendations WHERE id = $1`, id)

	record, err := scanPostgresRecord(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("recommendation %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return record, nil
}

// DeleteRecommendation removes a record by ID.
func (ps *PostgresStorage) DeleteRecommendation(ctx context.Context, id string) error {
	tag, err := ps.pool.Exec(ctx,
		`DELETE FROM recommendations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recommendation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("recommendation %s: %w", id, ErrNotFound)
	}
	return nil
}

// Close closes the connection pool.
func (ps *PostgresStorage) Close() error {
	ps.pool.Close()
	return nil
}

func scanPostgresRecord(scan func(dest ...any) error) (*models.RecommendationRecord, error) {
	var (
		record          models.RecommendationRecord
		request, movies string
	)
	if err := scan(&record.ID, &record.Identifier, &request, &record.Text,
		&movies, &record.Status, &record.ErrorType, &record.ErrorMsg, &record.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan recommendation: %w", err)
	}

	if err := unmarshalRequest(request, &record.Request); err != nil {
		return nil, err
	}
	decoded, err := unmarshalMovies(movies)
	if err != nil {
		return nil, err
	}
	record.Movies = decoded
	return &record, nil
}
