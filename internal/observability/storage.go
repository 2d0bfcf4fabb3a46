package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/models"
	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/storage"
)

// InstrumentedStorage wraps a storage.Storage implementation with
// OpenTelemetry tracing and metrics instrumentation.
type InstrumentedStorage struct {
	inner    storage.Storage
	tracer   trace.Tracer
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

// NewInstrumentedStorage creates a storage wrapper that records trace spans,
// operation latency histograms, and error counters for every storage method
// call.
func NewInstrumentedStorage(inner storage.Storage) (*InstrumentedStorage, error) {
	tracer := otel.Tracer("movie-agent/storage")
	meter := otel.Meter("movie-agent/storage")

	duration, err := meter.Float64Histogram(
		"storage.operation.duration",
		metric.WithDescription("Duration of storage operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"storage.operation.errors",
		metric.WithDescription("Number of storage operation errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedStorage{
		inner:    inner,
		tracer:   tracer,
		duration: duration,
		errors:   errCounter,
	}, nil
}

func (s *InstrumentedStorage) startSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "storage."+operation,
		trace.WithAttributes(append([]attribute.KeyValue{
			attribute.String("storage.operation", operation),
		}, attrs...)...),
	)
	return ctx, span
}

func (s *InstrumentedStorage) record(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	elapsed := time.Since(start).Seconds()
	attrs := metric.WithAttributes(attribute.String("operation", operation))

	s.duration.Record(ctx, elapsed, attrs)

	if err != nil {
		s.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

func (s *InstrumentedStorage) SaveRecommendation(ctx context.Context, record *models.RecommendationRecord) error {
	ctx, span := s.startSpan(ctx, "SaveRecommendation",
		attribute.String("record_id", record.ID),
		attribute.String("status", record.Status),
	)
	start := time.Now()
	err := s.inner.SaveRecommendation(ctx, record)
	s.record(ctx, span, "SaveRecommendation", start, err)
	return err
}

func (s *InstrumentedStorage) ListRecommendations(ctx context.Context, limit, offset int) ([]*models.RecommendationRecord, int, error) {
	ctx, span := s.startSpan(ctx, "ListRecommendations",
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	)
	start := time.Now()
	records, total, err := s.inner.ListRecommendations(ctx, limit, offset)
	s.record(ctx, span, "ListRecommendations", start, err)
	return records, total, err
}

func (s *InstrumentedStorage) GetRecommendation(ctx context.Context, id string) (*models.RecommendationRecord, error) {
	ctx, span := s.startSpan(ctx, "GetRecommendation", attribute.String("record_id", id))
	start := time.Now()
	record, err := s.inner.GetRecommendation(ctx, id)
	s.record(ctx, span, "GetRecommendation", start, err)
	return record, err
}

func (s *InstrumentedStorage) DeleteRecommendation(ctx context.Context, id string) error {
	ctx, span := s.startSpan(ctx, "DeleteRecommendation", attribute.String("record_id", id))
	start := time.Now()
	err := s.inner.DeleteRecommendation(ctx, id)
	s.record(ctx, span, "DeleteRecommendation", start, err)
	return err
}

func (s *InstrumentedStorage) Close() error {
	return s.inner.Close()
}
