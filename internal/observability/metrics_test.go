package observability

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/models"
	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/version"
)

func TestNewMetricsServer(t *testing.T) {
	metrics := models.MetricsConfig{
		Enabled: true,
		Path:    "/metrics",
		Port:    9090,
	}
	obs := models.ObservabilityConfig{
		ServiceName: "test",
		Tracing:     models.TracingConfig{Enabled: false},
	}

	provider, err := Setup(metrics, obs, version.Info{})
	require.NoError(t, err)
	defer provider.Shutdown(context.Background())

	ms := NewMetricsServer(metrics.Port, metrics.Path, provider)
	assert.NotNil(t, ms)
	assert.NotNil(t, ms.server)
}

func TestMetricsServer_StartAndShutdown(t *testing.T) {
	metrics := models.MetricsConfig{
		Enabled: true,
		Path:    "/metrics",
		Port:    0, // Will use a random port
	}
	obs := models.ObservabilityConfig{
		ServiceName: "test",
		Tracing:     models.TracingConfig{Enabled: false},
	}

	provider, err := Setup(metrics, obs, version.Info{})
	require.NoError(t, err)
	defer provider.Shutdown(context.Background())

	ms := NewMetricsServer(0, metrics.Path, provider)

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- ms.Start()
	}()

	// Give the server time to start
	time.Sleep(100 * time.Millisecond)

	// Shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = ms.Shutdown(ctx)
	assert.NoError(t, err)

	// Verify server stopped
	serverErr := <-errCh
	assert.Equal(t, http.ErrServerClosed, serverErr)
}

func TestNewMetricsServer_NilProvider(t *testing.T) {
	ms := NewMetricsServer(9090, "/metrics", nil)
	assert.NotNil(t, ms)
}

// counterSum adds up every series of the first metric family whose name
// contains the given fragment.
func counterSum(families []*dto.MetricFamily, fragment string) (float64, bool) {
	for _, mf := range families {
		if !strings.Contains(mf.GetName(), fragment) {
			continue
		}
		var sum float64
		for _, m := range mf.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
		return sum, true
	}
	return 0, false
}

func TestAgentMetrics_RecordedCounters(t *testing.T) {
	// Isolated registry so the assertions are not affected by other tests.
	reg := promclient.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	require.NoError(t, err)

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	defer mp.Shutdown(context.Background())

	metrics, err := newAgentMetrics(mp.Meter("movie-agent/recommend"))
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordStream(ctx, "complete")
	metrics.RecordStream(ctx, "complete")
	metrics.RecordStream(ctx, "error")
	metrics.RecordRetry(ctx, string(models.ErrorTypeRateLimit))
	metrics.RecordAdmission(ctx, false)
	metrics.RecordAdmission(ctx, true)

	families, err := reg.Gather()
	require.NoError(t, err)

	streams, ok := counterSum(families, "recommend_streams")
	require.True(t, ok, "stream counter not exported")
	assert.Equal(t, 3.0, streams)

	retries, ok := counterSum(families, "recommend_retry_attempts")
	require.True(t, ok, "retry counter not exported")
	assert.Equal(t, 1.0, retries)

	admissions, ok := counterSum(families, "recommend_admissions")
	require.True(t, ok, "admission counter not exported")
	assert.Equal(t, 2.0, admissions)
}
