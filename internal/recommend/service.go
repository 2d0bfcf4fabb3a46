package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/models"
	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/storage"
)

// Service runs recommendation requests against a provider and records the
// outcome, including partial output from failed or cancelled runs, to the
// history store.
type Service struct {
	provider Provider
	storage  storage.Storage
	logger   *slog.Logger
	metrics  StreamMetrics
}

// StreamMetrics counts finished runs by terminal status.
type StreamMetrics interface {
	RecordStream(ctx context.Context, status string)
}

// ServiceOption configures optional service behavior.
type ServiceOption func(*Service)

// WithStreamMetrics records every finished run on the given instruments.
func WithStreamMetrics(m StreamMetrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a recommendation service.
func NewService(provider Provider, store storage.Storage, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		provider: provider,
		storage:  store,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// recordingEmitter tees provider output into the history record on its way
// to the downstream emitter.
type recordingEmitter struct {
	out    Emitter
	record *models.RecommendationRecord
}

func (r *recordingEmitter) Text(ctx context.Context, chunk string) error {
	if err := r.out.Text(ctx, chunk); err != nil {
		return err
	}
	r.record.Text += chunk
	return nil
}

func (r *recordingEmitter) Movie(ctx context.Context, movie models.Movie) error {
	if err := r.out.Movie(ctx, movie); err != nil {
		return err
	}
	r.record.Movies = append(r.record.Movies, movie)
	return nil
}

// Recommend validates and runs one recommendation. The returned record
// reflects the outcome: complete, error (with the classification and any
// partial output) or cancelled. The error return is nil on success, the
// context error on cancellation, and a tagged *models.AgentError otherwise.
// History persistence is best effort; a failed save is logged, not
// surfaced.
func (s *Service) Recommend(ctx context.Context, identifier string, req *models.RecommendRequest, out Emitter) (*models.RecommendationRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req.Normalize()

	record := models.NewRecommendationRecord(identifier, *req)
	tee := &recordingEmitter{out: out, record: record}

	err := s.provider.Recommend(ctx, req, tee)
	switch {
	case err == nil:
		record.Status = models.RecommendationStatusComplete
	case models.IsCancellation(err):
		record.Status = models.RecommendationStatusCancelled
	default:
		agentErr := models.Classify(err)
		record.Status = models.RecommendationStatusError
		record.ErrorType = string(agentErr.Type)
		record.ErrorMsg = agentErr.Message
		err = agentErr
	}

	// Persist with a fresh context so cancellation of the request does not
	// lose the record.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	if saveErr := s.storage.SaveRecommendation(saveCtx, record); saveErr != nil {
		s.logger.Error("failed to save recommendation record",
			"record_id", record.ID, "error", saveErr)
	}

	if s.metrics != nil {
		s.metrics.RecordStream(saveCtx, record.Status)
	}

	return record, err
}

const saveTimeout = 5 * time.Second

// History returns a page of past recommendation runs.
func (s *Service) History(ctx context.Context, req *models.HistoryRequest) (*models.HistoryListResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req.Normalize()

	records, total, err := s.storage.ListRecommendations(ctx, req.Limit, req.Offset)
	if err != nil {
		return nil, models.NewAgentError(models.ErrorTypeUnknown, "failed to list history", err)
	}

	return &models.HistoryListResponse{
		Records:    records,
		TotalCount: total,
		Limit:      req.Limit,
		Offset:     req.Offset,
		HasMore:    req.Offset+len(records) < total,
	}, nil
}

// GetRecord retrieves one past run by ID.
func (s *Service) GetRecord(ctx context.Context, id string) (*models.RecommendationRecord, error) {
	record, err := s.storage.GetRecommendation(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, models.NewAgentError(models.ErrorTypeNotFound,
				fmt.Sprintf("recommendation %s not found", id), err)
		}
		return nil, models.NewAgentError(models.ErrorTypeUnknown, "failed to get record", err)
	}
	return record, nil
}

// DeleteRecord removes one past run by ID.
func (s *Service) DeleteRecord(ctx context.Context, id string) error {
	if err := s.storage.DeleteRecommendation(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.NewAgentError(models.ErrorTypeNotFound,
				fmt.Sprintf("recommendation %s not found", id), err)
		}
		return models.NewAgentError(models.ErrorTypeUnknown, "failed to delete record", err)
	}
	return nil
}
