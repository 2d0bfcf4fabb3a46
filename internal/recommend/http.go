package recommend

import (
	"context"
	"io"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/models"
	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/retry"
	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/stream"
)

// HTTPProvider delegates recommendation generation to an upstream agent
// service speaking the streaming event protocol. Connect attempts go
// through the retry executor; a client-side limiter paces calls so bursts
// from many handlers do not trip the upstream's own rate limits.
type HTTPProvider struct {
	client  *stream.Client
	retrier *retry.Executor
	pacer   *rate.Limiter
}

// RetryMetrics counts upstream retry attempts by error type.
type RetryMetrics interface {
	RecordRetry(ctx context.Context, errorType string)
}

// HTTPOption configures optional provider behavior.
type HTTPOption func(*HTTPProvider)

// WithRetryMetrics records every connect retry on the given instruments.
func WithRetryMetrics(m RetryMetrics) HTTPOption {
	return func(p *HTTPProvider) {
		p.retrier.OnRetry = func(attempt retry.Attempt) {
			m.RecordRetry(context.Background(), string(attempt.Err.Type))
		}
	}
}

// NewHTTPProvider creates a provider for the configured upstream.
func NewHTTPProvider(cfg models.UpstreamConfig, opts ...HTTPOption) *HTTPProvider {
	httpClient := &http.Client{}
	if cfg.RequestTimeout > 0 {
		// Applies to the whole exchange including the stream; keep it
		// generous in config.
		httpClient.Timeout = cfg.RequestTimeout
	}
	if cfg.APIKey != "" {
		httpClient.Transport = &authTransport{token: cfg.APIKey, base: http.DefaultTransport}
	}

	policy := retry.Policy{
		MaxRetries:   cfg.MaxRetries,
		InitialDelay: cfg.InitialRetryDelay,
		MaxDelay:     cfg.MaxRetryDelay,
	}
	if policy.InitialDelay <= 0 {
		policy = retry.DefaultPolicy()
		policy.MaxRetries = cfg.MaxRetries
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	p := &HTTPProvider{
		client:  stream.NewClient(cfg.BaseURL, httpClient),
		retrier: retry.NewExecutor(policy),
		pacer:   rate.NewLimiter(rate.Limit(rps), burst),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// authTransport adds the upstream bearer token to every request.
type authTransport struct {
	token string
	base  http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(req)
}

// Recommend opens the upstream stream and forwards its events to out.
func (p *HTTPProvider) Recommend(ctx context.Context, req *models.RecommendRequest, out Emitter) error {
	if err := p.pacer.Wait(ctx); err != nil {
		return err
	}

	// Child context so the ingestor goroutine winds down when this run
	// returns early on a terminal frame.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	body, err := retry.Do(ctx, p.retrier, func(ctx context.Context) (io.ReadCloser, error) {
		return p.client.OpenStream(ctx, req)
	})
	if err != nil {
		return err
	}

	ingestor := &stream.Ingestor{}
	sub := ingestor.Subscribe(ctx, body)
	for ev := range sub.Events() {
		msg := stream.Decode(ev)
		switch msg.Kind {
		case stream.KindText:
			if err := out.Text(ctx, msg.Text); err != nil {
				return err
			}
		case stream.KindMovie:
			if err := out.Movie(ctx, *msg.Movie); err != nil {
				return err
			}
		case stream.KindDone:
			return nil
		case stream.KindError:
			return msg.Err
		}
	}
	return sub.Err()
}
