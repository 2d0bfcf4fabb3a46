package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/models"
)

// sseWriter emits the streaming event protocol: "field: value" lines, each
// frame terminated by a blank line, flushed after every frame so output
// reaches the caller incrementally. It implements recommend.Emitter.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// newSSEWriter commits the response to an event stream. Fails when the
// connection cannot flush incrementally.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support flushing")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &sseWriter{w: w, flusher: flusher}, nil
}

// Text emits one message frame. Multi-line chunks become multiple data
// lines of the same frame.
func (s *sseWriter) Text(ctx context.Context, chunk string) error {
	return s.writeFrame("message", chunk)
}

// Movie emits one movie frame with a JSON payload.
func (s *sseWriter) Movie(ctx context.Context, movie models.Movie) error {
	payload, err := json.Marshal(movie)
	if err != nil {
		return fmt.Errorf("failed to encode movie: %w", err)
	}
	return s.writeFrame("movie", string(payload))
}

// Done emits the terminal success frame.
func (s *sseWriter) Done() error {
	return s.writeFrame("done", "")
}

// Error emits the terminal error frame with a JSON payload carrying the
// classification.
func (s *sseWriter) Error(agentErr *models.AgentError) error {
	payload, err := json.Marshal(struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}{
		Type:    string(agentErr.Type),
		Message: agentErr.Message,
	})
	if err != nil {
		return fmt.Errorf("failed to encode error: %w", err)
	}
	return s.writeFrame("error", string(payload))
}

func (s *sseWriter) writeFrame(event, data string) error {
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(event)
	b.WriteByte('\n')
	for _, line := range strings.Split(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	if _, err := fmt.Fprint(s.w, b.String()); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
