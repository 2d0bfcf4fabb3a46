package stream

import (
	"context"
	"io"
	"sync"

	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/models"
	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/retry"
)

// State names a session lifecycle phase.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateStreaming  State = "streaming"
	StateComplete   State = "complete"
	StateError      State = "error"
	StateCancelled  State = "cancelled"
)

// Terminal reports whether no further transitions can occur from s.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateError || s == StateCancelled
}

// Snapshot is a point-in-time copy of session state, safe to retain.
type Snapshot struct {
	State  State
	Text   string
	Movies []models.Movie
	Err    *models.AgentError
}

// Session drives one recommendation stream at a time: it opens the
// transport, feeds the ingestor, accumulates text and movie payloads, and
// exposes a state machine for presentation code to observe. Starting a new
// stream while one is active abandons the old one; late events from an
// abandoned stream never mutate state.
type Session struct {
	client   *Client
	ingestor *Ingestor
	retrier  *retry.Executor

	mu     sync.Mutex
	state  State
	text   []byte
	movies []models.Movie
	err    *models.AgentError
	cancel context.CancelFunc
	done   chan struct{}

	// gen identifies the active stream. Every Start bumps it; goroutines
	// carry the value they were started with and their updates are dropped
	// once it is stale.
	gen uint64

	// notifyMu serializes onChange callbacks, which run outside mu so a
	// callback may call back into the session.
	notifyMu sync.Mutex
	onChange func(Snapshot)
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithOnChange registers a callback invoked, outside the session lock, after
// every state or accumulation change. Callbacks for one session are
// serialized.
func WithOnChange(fn func(Snapshot)) SessionOption {
	return func(s *Session) { s.onChange = fn }
}

// WithConnectRetry retries the connect step with the given executor. Only
// the initial request is retried; once the stream is open, failures are
// terminal.
func WithConnectRetry(e *retry.Executor) SessionOption {
	return func(s *Session) { s.retrier = e }
}

// NewSession creates an idle session using the given client.
func NewSession(client *Client, opts ...SessionOption) *Session {
	s := &Session{
		client:   client,
		ingestor: &Ingestor{},
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins streaming a recommendation. Any in-flight stream is
// abandoned and accumulated state is cleared. The returned channel closes
// when this stream reaches a terminal state or is abandoned by a later
// Start.
func (s *Session) Start(ctx context.Context, req *models.RecommendRequest) <-chan struct{} {
	streamCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.state = StateConnecting
	s.text = s.text[:0]
	s.movies = nil
	s.err = nil
	s.mu.Unlock()
	s.notify()

	go func() {
		defer close(done)
		// Cancel on exit so the ingestor goroutine and transport shut
		// down even when the stream ends early on a terminal frame.
		defer cancel()
		s.run(streamCtx, gen, req)
	}()
	return done
}

// Stop cancels the active stream, if any, and moves a non-terminal session
// to cancelled. Terminal states are left as they are.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.state.Terminal() || s.state == StateIdle {
		s.mu.Unlock()
		return
	}
	s.gen++ // orphan the running goroutine
	s.state = StateCancelled
	s.mu.Unlock()
	s.notify()
}

// Reset stops any active stream and returns the session to idle with empty
// accumulators.
func (s *Session) Reset() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.state = StateIdle
	s.text = s.text[:0]
	s.movies = nil
	s.err = nil
	s.mu.Unlock()
	s.notify()
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		State: s.state,
		Text:  string(s.text),
		Err:   s.err,
	}
	if len(s.movies) > 0 {
		snap.Movies = make([]models.Movie, len(s.movies))
		copy(snap.Movies, s.movies)
	}
	return snap
}

func (s *Session) notify() {
	if s.onChange == nil {
		return
	}
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.onChange(s.Snapshot())
}

func (s *Session) run(ctx context.Context, gen uint64, req *models.RecommendRequest) {
	body, err := s.connect(ctx, req)
	if err != nil {
		s.finish(ctx, gen, err)
		return
	}

	if !s.transition(gen, StateStreaming) {
		body.Close()
		return
	}

	sub := s.ingestor.Subscribe(ctx, body)
	for ev := range sub.Events() {
		msg := Decode(ev)
		switch msg.Kind {
		case KindText:
			s.appendText(gen, msg.Text)
		case KindMovie:
			s.appendMovie(gen, *msg.Movie)
		case KindDone:
			s.complete(gen)
			return
		case KindError:
			s.fail(gen, msg.Err)
			return
		}
	}

	s.finish(ctx, gen, sub.Err())
}

// connect opens the stream, going through the retry executor when one is
// configured.
func (s *Session) connect(ctx context.Context, req *models.RecommendRequest) (io.ReadCloser, error) {
	if s.retrier == nil {
		return s.client.OpenStream(ctx, req)
	}
	return retry.Do(ctx, s.retrier, func(ctx context.Context) (io.ReadCloser, error) {
		return s.client.OpenStream(ctx, req)
	})
}

// finish resolves a stream that ended without a done or error frame: clean
// EOF completes, cancellation cancels, anything else fails.
func (s *Session) finish(ctx context.Context, gen uint64, err error) {
	switch {
	case err == nil:
		s.complete(gen)
	case models.IsCancellation(err) || ctx.Err() != nil:
		s.transitionCancelled(gen)
	default:
		s.fail(gen, models.Classify(err))
	}
}

// transition moves to next if gen is current and the state is not terminal.
func (s *Session) transition(gen uint64, next State) bool {
	s.mu.Lock()
	if gen != s.gen || s.state.Terminal() {
		s.mu.Unlock()
		return false
	}
	s.state = next
	s.mu.Unlock()
	s.notify()
	return true
}

func (s *Session) transitionCancelled(gen uint64) {
	s.transition(gen, StateCancelled)
}

func (s *Session) complete(gen uint64) {
	s.transition(gen, StateComplete)
}

func (s *Session) fail(gen uint64, agentErr *models.AgentError) {
	s.mu.Lock()
	if gen != s.gen || s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.state = StateError
	s.err = agentErr
	s.mu.Unlock()
	s.notify()
}

func (s *Session) appendText(gen uint64, text string) {
	if text == "" {
		return
	}
	s.mu.Lock()
	if gen != s.gen || s.state != StateStreaming {
		s.mu.Unlock()
		return
	}
	s.text = append(s.text, text...)
	s.mu.Unlock()
	s.notify()
}

func (s *Session) appendMovie(gen uint64, movie models.Movie) {
	s.mu.Lock()
	if gen != s.gen || s.state != StateStreaming {
		s.mu.Unlock()
		return
	}
	s.movies = append(s.movies, movie)
	s.mu.Unlock()
	s.notify()
}
