package recommend

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/models"
)

func upstreamConfig(url string) models.UpstreamConfig {
	return models.UpstreamConfig{
		Provider:          models.ProviderTypeHTTP,
		BaseURL:           url,
		MaxRetries:        0,
		InitialRetryDelay: time.Millisecond,
		MaxRetryDelay:     time.Millisecond,
		RequestsPerSecond: 1000,
		Burst:             10,
	}
}

func TestHTTPProviderForwardsStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sekrit", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: message\ndata: Here are picks. \n\n")
		fmt.Fprint(w, "event: movie\ndata: {\"id\":4,\"title\":\"Arrival\",\"year\":2016}\n\n")
		fmt.Fprint(w, "event: done\ndata: \n\n")
	}))
	t.Cleanup(server.Close)

	cfg := upstreamConfig(server.URL)
	cfg.APIKey = "sekrit"
	provider := NewHTTPProvider(cfg)

	out := &collectEmitter{}
	req := &models.RecommendRequest{Mood: "curious"}
	req.Normalize()
	require.NoError(t, provider.Recommend(context.Background(), req, out))

	assert.Equal(t, "Here are picks. ", out.text.String())
	require.Len(t, out.movies, 1)
	assert.Equal(t, "Arrival", out.movies[0].Title)
}

func TestHTTPProviderErrorFrame(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: message\ndata: partial\n\n")
		fmt.Fprint(w, "event: error\ndata: {\"type\":\"API_ERROR\",\"message\":\"model unavailable\"}\n\n")
	}))
	t.Cleanup(server.Close)

	provider := NewHTTPProvider(upstreamConfig(server.URL))
	out := &collectEmitter{}
	req := &models.RecommendRequest{Mood: "doomed"}
	req.Normalize()
	err := provider.Recommend(context.Background(), req, out)

	var agentErr *models.AgentError
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, models.ErrorTypeAPI, agentErr.Type)
	assert.Equal(t, "partial", out.text.String(), "output before the error is delivered")
}

func TestHTTPProviderRetriesRateLimit(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: done\ndata: \n\n")
	}))
	t.Cleanup(server.Close)

	cfg := upstreamConfig(server.URL)
	cfg.MaxRetries = 2
	retries := &retryRecorder{}
	provider := NewHTTPProvider(cfg, WithRetryMetrics(retries))

	req := &models.RecommendRequest{Mood: "patient"}
	req.Normalize()
	require.NoError(t, provider.Recommend(context.Background(), req, &collectEmitter{}))

	mu.Lock()
	assert.Equal(t, 2, attempts, "429 is retryable")
	mu.Unlock()
	assert.Equal(t, []string{string(models.ErrorTypeRateLimit)}, retries.errorTypes)
}

// retryRecorder captures retry notifications.
type retryRecorder struct {
	errorTypes []string
}

func (r *retryRecorder) RecordRetry(ctx context.Context, errorType string) {
	r.errorTypes = append(r.errorTypes, errorType)
}

func TestHTTPProviderTerminalUpstreamError(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		mu.Unlock()
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"error":"error","message":"mood is required","code":"VALIDATION_ERROR","timestamp":"2026-01-01T00:00:00Z"}`)
	}))
	t.Cleanup(server.Close)

	cfg := upstreamConfig(server.URL)
	cfg.MaxRetries = 3
	provider := NewHTTPProvider(cfg)

	req := &models.RecommendRequest{Mood: "x"}
	err := provider.Recommend(context.Background(), req, &collectEmitter{})

	var agentErr *models.AgentError
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, models.ErrorTypeValidation, agentErr.Type)
	mu.Lock()
	assert.Equal(t, 1, attempts, "validation errors are not retried")
	mu.Unlock()
}

func TestNewProvider(t *testing.T) {
	provider, err := NewProvider(models.UpstreamConfig{Provider: models.ProviderTypeCatalog})
	require.NoError(t, err)
	assert.IsType(t, &CatalogProvider{}, provider)

	provider, err = NewProvider(models.UpstreamConfig{})
	require.NoError(t, err)
	assert.IsType(t, &CatalogProvider{}, provider, "catalog is the default")

	provider, err = NewProvider(models.UpstreamConfig{Provider: models.ProviderTypeHTTP, BaseURL: "http://localhost:9"})
	require.NoError(t, err)
	assert.IsType(t, &HTTPProvider{}, provider)

	_, err = NewProvider(models.UpstreamConfig{Provider: models.ProviderTypeHTTP})
	assert.Error(t, err)

	_, err = NewProvider(models.UpstreamConfig{Provider: "psychic"})
	assert.Error(t, err)
}
