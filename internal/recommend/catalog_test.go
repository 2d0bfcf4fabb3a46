package recommend

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/models"
)

// collectEmitter accumulates everything a provider emits.
type collectEmitter struct {
	text   strings.Builder
	movies []models.Movie
}

func (c *collectEmitter) Text(ctx context.Context, chunk string) error {
	c.text.WriteString(chunk)
	return nil
}

func (c *collectEmitter) Movie(ctx context.Context, movie models.Movie) error {
	c.movies = append(c.movies, movie)
	return nil
}

func TestCatalogProviderEmitsMovies(t *testing.T) {
	provider := NewCatalogProvider()
	out := &collectEmitter{}

	req := &models.RecommendRequest{Mood: "cozy evening", MaxResults: 3}
	req.Normalize()
	require.NoError(t, provider.Recommend(context.Background(), req, out))

	require.Len(t, out.movies, 3)
	assert.Contains(t, out.text.String(), "3 picks")
	for _, movie := range out.movies {
		assert.NotEmpty(t, movie.Title)
		assert.NotEmpty(t, movie.Reason)
		assert.Contains(t, out.text.String(), movie.Title)
	}
}

func TestCatalogProviderDeterministic(t *testing.T) {
	provider := NewCatalogProvider()

	run := func(mood string) []models.Movie {
		out := &collectEmitter{}
		req := &models.RecommendRequest{Mood: mood, MaxResults: 5}
		req.Normalize()
		require.NoError(t, provider.Recommend(context.Background(), req, out))
		return out.movies
	}

	assert.Equal(t, run("rainy sunday"), run("rainy sunday"),
		"same mood yields the same picks")
	assert.NotEqual(t, run("rainy sunday"), run("friday night"),
		"different moods should surface different orderings")
}

func TestCatalogProviderFilters(t *testing.T) {
	provider := NewCatalogProvider()

	tests := []struct {
		name  string
		req   models.RecommendRequest
		check func(t *testing.T, movie models.Movie)
	}{
		{
			name: "genre filter",
			req:  models.RecommendRequest{Mood: "scary", Genres: []string{"horror"}},
			check: func(t *testing.T, movie models.Movie) {
				assert.Contains(t, movie.Genres, "horror")
			},
		},
		{
			name: "platform filter",
			req:  models.RecommendRequest{Mood: "anything", Platforms: []string{"disney+"}},
			check: func(t *testing.T, movie models.Movie) {
				assert.Contains(t, movie.Platforms, "disney+")
			},
		},
		{
			name: "decade filter",
			req:  models.RecommendRequest{Mood: "retro", Decades: []string{"1990s"}},
			check: func(t *testing.T, movie models.Movie) {
				assert.GreaterOrEqual(t, movie.Year, 1990)
				assert.Less(t, movie.Year, 2000)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &collectEmitter{}
			req := tt.req
			req.Normalize()
			require.NoError(t, provider.Recommend(context.Background(), &req, out))
			require.NotEmpty(t, out.movies)
			for _, movie := range out.movies {
				tt.check(t, movie)
			}
		})
	}
}

func TestCatalogProviderNoMatches(t *testing.T) {
	provider := NewCatalogProvider()
	out := &collectEmitter{}

	req := &models.RecommendRequest{Mood: "impossible", Genres: []string{"western"}, Decades: []string{"1950s"}}
	req.Normalize()
	require.NoError(t, provider.Recommend(context.Background(), req, out))

	assert.Empty(t, out.movies)
	assert.Contains(t, out.text.String(), "couldn't find anything")
}

func TestCatalogProviderHonorsCancellation(t *testing.T) {
	provider := NewCatalogProvider()
	ctx, cancel := context.WithCancel(context.Background())

	out := EmitterFuncs{
		MovieFunc: func(ctx context.Context, movie models.Movie) error {
			cancel() // cancel mid-stream after the first movie
			return nil
		},
	}

	req := &models.RecommendRequest{Mood: "anything", MaxResults: 10}
	req.Normalize()
	err := provider.Recommend(ctx, req, out)
	assert.True(t, models.IsCancellation(err))
}
