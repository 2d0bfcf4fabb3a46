package recommend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/models"
	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/storage"
)

// scriptedProvider emits a fixed sequence then returns a fixed error.
type scriptedProvider struct {
	text   []string
	movies []models.Movie
	err    error
}

func (p *scriptedProvider) Recommend(ctx context.Context, req *models.RecommendRequest, out Emitter) error {
	for _, chunk := range p.text {
		if err := out.Text(ctx, chunk); err != nil {
			return err
		}
	}
	for _, movie := range p.movies {
		if err := out.Movie(ctx, movie); err != nil {
			return err
		}
	}
	return p.err
}

func newTestService(t *testing.T, provider Provider) (*Service, storage.Storage) {
	t.Helper()
	store, err := storage.NewMemoryStorage()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewService(provider, store, nil), store
}

func TestServiceRecommendSuccess(t *testing.T) {
	provider := &scriptedProvider{
		text:   []string{"Here you ", "go."},
		movies: []models.Movie{{ID: 2, Title: "Heat", Year: 1995}},
	}
	service, store := newTestService(t, provider)

	out := &collectEmitter{}
	record, err := service.Recommend(context.Background(), "198.51.100.4",
		&models.RecommendRequest{Mood: "tense"}, out)
	require.NoError(t, err)

	assert.Equal(t, models.RecommendationStatusComplete, record.Status)
	assert.Equal(t, "Here you go.", record.Text)
	require.Len(t, record.Movies, 1)
	assert.Equal(t, "198.51.100.4", record.Identifier)

	// Emitted downstream as well as recorded.
	assert.Equal(t, "Here you go.", out.text.String())
	require.Len(t, out.movies, 1)

	// Persisted.
	saved, err := store.GetRecommendation(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RecommendationStatusComplete, saved.Status)
}

func TestServiceRecommendValidation(t *testing.T) {
	service, store := newTestService(t, &scriptedProvider{})

	_, err := service.Recommend(context.Background(), "id",
		&models.RecommendRequest{Mood: ""}, &collectEmitter{})

	var agentErr *models.AgentError
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, models.ErrorTypeValidation, agentErr.Type)

	// Invalid requests never reach the history store.
	_, total, err := store.ListRecommendations(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestServiceRecommendErrorKeepsPartialOutput(t *testing.T) {
	provider := &scriptedProvider{
		text: []string{"Partial narration"},
		err:  models.NewAgentError(models.ErrorTypeAPI, "model unavailable", nil),
	}
	service, store := newTestService(t, provider)

	record, err := service.Recommend(context.Background(), "id",
		&models.RecommendRequest{Mood: "doomed"}, &collectEmitter{})

	var agentErr *models.AgentError
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, models.ErrorTypeAPI, agentErr.Type)

	assert.Equal(t, models.RecommendationStatusError, record.Status)
	assert.Equal(t, string(models.ErrorTypeAPI), record.ErrorType)
	assert.Equal(t, "model unavailable", record.ErrorMsg)
	assert.Equal(t, "Partial narration", record.Text, "partial output is kept")

	saved, err := store.GetRecommendation(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RecommendationStatusError, saved.Status)
}

func TestServiceRecommendCancellation(t *testing.T) {
	provider := &scriptedProvider{
		text: []string{"Some output"},
		err:  context.Canceled,
	}
	service, store := newTestService(t, provider)

	record, err := service.Recommend(context.Background(), "id",
		&models.RecommendRequest{Mood: "fleeting"}, &collectEmitter{})

	assert.True(t, models.IsCancellation(err))
	assert.Equal(t, models.RecommendationStatusCancelled, record.Status)
	assert.Empty(t, record.ErrorType, "cancellation is not an error")

	// Cancelled runs are still recorded.
	saved, err := store.GetRecommendation(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RecommendationStatusCancelled, saved.Status)
	assert.Equal(t, "Some output", saved.Text)
}

func TestServiceRecommendClassifiesRawErrors(t *testing.T) {
	provider := &scriptedProvider{err: assert.AnError}
	service, _ := newTestService(t, provider)

	record, err := service.Recommend(context.Background(), "id",
		&models.RecommendRequest{Mood: "unlucky"}, &collectEmitter{})

	var agentErr *models.AgentError
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, models.ErrorTypeUnknown, agentErr.Type)
	assert.Equal(t, string(models.ErrorTypeUnknown), record.ErrorType)
}

func TestServiceHistory(t *testing.T) {
	provider := &scriptedProvider{text: []string{"ok"}}
	service, _ := newTestService(t, provider)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := service.Recommend(ctx, "id", &models.RecommendRequest{Mood: "repeat"}, &collectEmitter{})
		require.NoError(t, err)
	}

	resp, err := service.History(ctx, &models.HistoryRequest{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.TotalCount)
	assert.Len(t, resp.Records, 2)
	assert.True(t, resp.HasMore)

	resp, err = service.History(ctx, &models.HistoryRequest{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, resp.Records, 1)
	assert.False(t, resp.HasMore)
}

func TestServiceGetAndDeleteRecord(t *testing.T) {
	provider := &scriptedProvider{text: []string{"ok"}}
	service, _ := newTestService(t, provider)

	ctx := context.Background()
	record, err := service.Recommend(ctx, "id", &models.RecommendRequest{Mood: "keep"}, &collectEmitter{})
	require.NoError(t, err)

	got, err := service.GetRecord(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)

	require.NoError(t, service.DeleteRecord(ctx, record.ID))

	var agentErr *models.AgentError
	_, err = service.GetRecord(ctx, record.ID)
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, models.ErrorTypeNotFound, agentErr.Type)

	err = service.DeleteRecord(ctx, record.ID)
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, models.ErrorTypeNotFound, agentErr.Type)
}

// streamRecorder captures finished-run notifications.
type streamRecorder struct {
	statuses []string
}

func (r *streamRecorder) RecordStream(ctx context.Context, status string) {
	r.statuses = append(r.statuses, status)
}

func TestServiceRecommendCountsOutcomes(t *testing.T) {
	store, err := storage.NewMemoryStorage()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	metrics := &streamRecorder{}
	ctx := context.Background()

	ok := NewService(&scriptedProvider{text: []string{"fine"}}, store, nil,
		WithStreamMetrics(metrics))
	_, err = ok.Recommend(ctx, "id", &models.RecommendRequest{Mood: "calm"}, &collectEmitter{})
	require.NoError(t, err)

	failing := NewService(&scriptedProvider{
		err: models.NewAgentError(models.ErrorTypeAPI, "model unavailable", nil),
	}, store, nil, WithStreamMetrics(metrics))
	_, err = failing.Recommend(ctx, "id", &models.RecommendRequest{Mood: "doomed"}, &collectEmitter{})
	require.Error(t, err)

	assert.Equal(t, []string{
		models.RecommendationStatusComplete,
		models.RecommendationStatusError,
	}, metrics.statuses)
}
