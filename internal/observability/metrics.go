package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsServer serves Prometheus metrics on a separate port.
type MetricsServer struct {
	server *http.Server
}

// NewMetricsServer creates a metrics HTTP server serving the Prometheus
// handler at the given path on the given port.
func NewMetricsServer(port int, path string, provider *Provider) *MetricsServer {
	mux := http.NewServeMux()

	if provider != nil && provider.promExporter != nil {
		mux.Handle(path, promhttp.Handler())
	}

	return &MetricsServer{
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}
}

// Start begins serving metrics in a blocking call.
// Returns http.ErrServerClosed on graceful shutdown.
func (ms *MetricsServer) Start() error {
	slog.Info("Starting metrics server", "addr", ms.server.Addr)
	return ms.server.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (ms *MetricsServer) Shutdown(ctx context.Context) error {
	return ms.server.Shutdown(ctx)
}

// AgentMetrics holds the domain instruments: stream outcomes, retry
// attempts, and admission decisions.
type AgentMetrics struct {
	streams       metric.Int64Counter
	retryAttempts metric.Int64Counter
	admissions    metric.Int64Counter
}

// NewAgentMetrics registers the recommendation metrics on the global meter.
func NewAgentMetrics() (*AgentMetrics, error) {
	return newAgentMetrics(otel.Meter("movie-agent/recommend"))
}

func newAgentMetrics(meter metric.Meter) (*AgentMetrics, error) {
	streams, err := meter.Int64Counter(
		"recommend.streams",
		metric.WithDescription("Recommendation streams by terminal outcome"),
		metric.WithUnit("{stream}"),
	)
	if err != nil {
		return nil, err
	}

	retries, err := meter.Int64Counter(
		"recommend.retry.attempts",
		metric.WithDescription("Upstream retry attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	admissions, err := meter.Int64Counter(
		"recommend.admissions",
		metric.WithDescription("Admission decisions by the rate limiter"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &AgentMetrics{
		streams:       streams,
		retryAttempts: retries,
		admissions:    admissions,
	}, nil
}

// RecordStream counts one finished stream by its terminal status
// (complete, error, cancelled).
func (m *AgentMetrics) RecordStream(ctx context.Context, status string) {
	m.streams.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordRetry counts one upstream retry attempt.
func (m *AgentMetrics) RecordRetry(ctx context.Context, errorType string) {
	m.retryAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("error_type", errorType)))
}

// RecordAdmission counts one rate-limit decision.
func (m *AgentMetrics) RecordAdmission(ctx context.Context, limited bool) {
	m.admissions.Add(ctx, 1, metric.WithAttributes(attribute.Bool("limited", limited)))
}
