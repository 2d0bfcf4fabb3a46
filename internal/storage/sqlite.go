package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS recommendations (
	id            TEXT PRIMARY KEY,
	identifier    TEXT NOT NULL DEFAULT '',
	request       TEXT NOT NULL,
	text          TEXT NOT NULL DEFAULT '',
	movies        TEXT NOT NULL DEFAULT '[]',
	status        TEXT NOT NULL,
	error_type    TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_recommendations_created_at
	ON recommendations (created_at DESC);
`

// SQLiteStorage implements the Storage interface on a local SQLite database.
// Suitable for single-node deployments where history should survive restarts
// without running a database server.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (and if needed initializes) a SQLite database at
// the configured path.
func NewSQLiteStorage(config models.StorageConfig) (Storage, error) {
	dsn := config.Database.DSN
	if dsn == "" {
		dsn = config.Path
	}
	if dsn == "" {
		return nil, fmt.Errorf("path or dsn is required for SQLite storage")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// modernc's driver serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// SaveRecommendation stores or replaces a record.
func (ss *SQLiteStorage) SaveRecommendation(ctx context.Context, record *models.RecommendationRecord) error {
	request, err := marshalRequest(record.Request)
	if err != nil {
		return err
	}
	movies, err := marshalMovies(record.Movies)
	if err != nil {
		return err
	}

	_, err = ss.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO recommendations
			(id, identifier, request, text, movies, status, error_type, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.Identifier, request, record.Text, movies,
		record.Status, record.ErrorType, record.ErrorMsg,
		record.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save recommendation: %w", err)
	}
	return nil
}

// ListRecommendations returns a page of records, most recent first.
func (ss *SQLiteStorage) ListRecommendations(ctx context.Context, limit, offset int) ([]*models.RecommendationRecord, int, error) {
	var total int
	if err := ss.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recommendations`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count recommendations: %w", err)
	}

	if limit <= 0 {
		limit = total
	}
	rows, err := ss.db.QueryContext(ctx, `
		SELECT id, identifier, request, text, movies, status, error_type, error_message, created_at
		FROM recommendations
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list recommendations: %w", err)
	}
	defer rows.Close()

	records := make([]*models.RecommendationRecord, 0, limit)
	for rows.Next() {
		record, err := scanSQLiteRecord(rows.Scan)
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
func (ss *SQLiteStorage) GetRecommendation(ctx context.Context, id string) (*models.RecommendationRecord, error) {
	row := ss.db.QueryRowContext(ctx, `
		SELECT id, identifier, request, text, movies, status, error_type, error_message, created_at
		FROM recommendations WHERE id = ?`, id)

	record, err := scanSQLiteRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("recommendation %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return record, nil
}

// DeleteRecommendation removes a record by ID.
func (ss *SQLiteStorage) DeleteRecommendation(ctx context.Context, id string) error {
	result, err := ss.db.ExecContext(ctx,
		`DELETE FROM recommendations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recommendation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("recommendation %s: %w", id, ErrNotFound)
	}
	return nil
}

// Close closes the database connection.
func (ss *SQLiteStorage) Close() error {
	return ss.db.Close()
}

func scanSQLiteRecord(scan func(dest ...any) error) (*models.RecommendationRecord, error) {
	var (
		record          models.RecommendationRecord
		request, movies string
		createdAt       string
	)
	if err := scan(&record.ID, &record.Identifier, &request, &record.Text,
		&movies, &record.Status, &record.ErrorType, &record.ErrorMsg, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	record.CreatedAt = ts
	return &record, nil
}
