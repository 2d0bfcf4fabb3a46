package stream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/models"
)

func TestOpenStreamSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, contentTypeES, r.Header.Get("Accept"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"mood":"cozy"`)

		w.Header().Set("Content-Type", contentTypeES+"; charset=utf-8")
		fmt.Fprint(w, "data: hi\n\n")
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL, nil)
	body, err := client.OpenStream(context.Background(), &models.RecommendRequest{Mood: "cozy"})
	require.NoError(t, err)
	defer body.Close()

	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "data: hi\n\n", string(raw))
}

func TestOpenStreamRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":"error","message":"rate limit exceeded","code":"RATE_LIMIT_EXCEEDED","retry_after":30,"timestamp":"2026-01-01T00:00:00Z"}`)
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL, nil)
	_, err := client.OpenStream(context.Background(), &models.RecommendRequest{Mood: "eager"})

	var agentErr *models.AgentError
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, models.ErrorTypeRateLimit, agentErr.Type)
	assert.Equal(t, "rate limit exceeded", agentErr.Message)
	assert.Equal(t, 30*time.Second, agentErr.RetryAfter)
	assert.True(t, agentErr.Type.Retryable())
}

func TestOpenStreamUnstructuredErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "upstream gone")
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL, nil)
	_, err := client.OpenStream(context.Background(), &models.RecommendRequest{Mood: "any"})

	var agentErr *models.AgentError
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, models.ErrorTypeAPI, agentErr.Type)
	assert.Equal(t, "HTTP error 503", agentErr.Message)
}

func TestOpenStreamStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   models.ErrorType
	}{
		{http.StatusTooManyRequests, models.ErrorTypeRateLimit},
		{http.StatusNotFound, models.ErrorTypeNotFound},
		{http.StatusBadRequest, models.ErrorTypeValidation},
		{http.StatusUnprocessableEntity, models.ErrorTypeValidation},
		{http.StatusInternalServerError, models.ErrorTypeAPI},
		{http.StatusBadGateway, models.ErrorTypeAPI},
		{http.StatusTeapot, models.ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			t.Cleanup(server.Close)

			_, err := NewClient(server.URL, nil).OpenStream(context.Background(),
				&models.RecommendRequest{Mood: "probe"})

			var agentErr *models.AgentError
			require.ErrorAs(t, err, &agentErr)
			assert.Equal(t, tt.want, agentErr.Type)
		})
	}
}

func TestOpenStreamWrongContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html>not a stream</html>")
	}))
	t.Cleanup(server.Close)

	_, err := NewClient(server.URL, nil).OpenStream(context.Background(),
		&models.RecommendRequest{Mood: "surprised"})

	var agentErr *models.AgentError
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, models.ErrorTypeAPI, agentErr.Type)
	assert.Contains(t, agentErr.Message, "text/html")
}

func TestOpenStreamNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	_, err := NewClient(server.URL, nil).OpenStream(context.Background(),
		&models.RecommendRequest{Mood: "offline"})

	var agentErr *models.AgentError
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, models.ErrorTypeNetwork, agentErr.Type)
	assert.True(t, agentErr.Type.Retryable())
}

func TestOpenStreamCancellationPassesThrough(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	t.Cleanup(server.Close)

	_, err := NewClient(server.URL, nil).OpenStream(ctx, &models.RecommendRequest{Mood: "gone"})
	require.Error(t, err)
	assert.True(t, models.IsCancellation(err), "cancellation must not be classified, got %v", err)

	var agentErr *models.AgentError
	assert.False(t, models.IsCancellation(context.DeadlineExceeded))
	assert.NotErrorAs(t, err, &agentErr)
}
