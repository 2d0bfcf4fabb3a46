// Package recommend contains the recommendation business logic: providers
// that produce recommendations (a built-in catalog or an upstream agent
// service) and the service that runs them, records history and maps
// storage failures onto the error taxonomy.
package recommend

import (
	"context"
	"fmt"

	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/models"
)

// Emitter receives recommendation output as it is produced. Implementations
// forward it to the wire (the streaming handler) or accumulate it (history
// recording, tests). Emit methods return an error when the consumer is gone,
// which aborts the run.
type Emitter interface {
	// Text emits a chunk of narration text.
	Text(ctx context.Context, chunk string) error

	// Movie emits one structured recommendation.
	Movie(ctx context.Context, movie models.Movie) error
}

// Provider produces a recommendation for a request, emitting output
// incrementally. It returns nil on success, a tagged error on failure, and
// the context error when the caller cancelled.
type Provider interface {
	Recommend(ctx context.Context, req *models.RecommendRequest, out Emitter) error
}

// NewProvider creates the provider named by the upstream configuration.
// Options apply to the http provider; the catalog provider ignores them.
func NewProvider(cfg models.UpstreamConfig, opts ...HTTPOption) (Provider, error) {
	switch cfg.Provider {
	case models.ProviderTypeCatalog, "":
		return NewCatalogProvider(), nil
	case models.ProviderTypeHTTP:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("base_url is required for the http provider")
		}
		return NewHTTPProvider(cfg, opts...), nil
	default:
		return nil, fmt.Errorf("unsupported upstream provider: %s", cfg.Provider)
	}
}

// EmitterFuncs adapts plain functions to the Emitter interface. Nil
// functions discard their input.
type EmitterFuncs struct {
	TextFunc  func(ctx context.Context, chunk string) error
	MovieFunc func(ctx context.Context, movie models.Movie) error
}

func (e EmitterFuncs) Text(ctx context.Context, chunk string) error {
	if e.TextFunc == nil {
		return nil
	}
	return e.TextFunc(ctx, chunk)
}

func (e EmitterFuncs) Movie(ctx context.Context, movie models.Movie) error {
	if e.MovieFunc == nil {
		return nil
	}
	return e.MovieFunc(ctx, movie)
}
