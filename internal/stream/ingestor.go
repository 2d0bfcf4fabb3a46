package stream

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/models"
)

const readChunkSize = 4096

// Ingestor turns a raw transport reader into a sequence of complete events.
// Transport reads arrive in arbitrary chunks that need not align with frame
// boundaries, so the ingestor buffers partial frames across reads and only
// hands complete frames to the parser. The zero value is ready to use.
type Ingestor struct {
	// ChunkSize overrides the transport read size. Zero means the default.
	ChunkSize int
}

// Subscription delivers the events of one stream. The Events channel closes
// when the stream terminates; Err reports how it terminated.
type Subscription struct {
	events chan Event

	mu  sync.Mutex
	err error
}

// Events returns the event channel. It is closed on termination, after
// which Err is valid.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Err reports the terminal condition once Events has closed: nil for a clean
// end of stream, context.Canceled (or the context's cause) for
// caller-initiated cancellation, and a tagged *models.AgentError for
// transport failures.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Subscribe starts reading body and returns a subscription delivering its
// events in arrival order. The reader is closed when the stream terminates
// or ctx is cancelled, whichever comes first. An incomplete frame left in
// the buffer at end of stream is discarded; only frames terminated by a
// blank line are dispatched.
func (i *Ingestor) Subscribe(ctx context.Context, body io.ReadCloser) *Subscription {
	sub := &Subscription{events: make(chan Event)}
	go i.run(ctx, body, sub)
	return sub
}

func (i *Ingestor) run(ctx context.Context, body io.ReadCloser, sub *Subscription) {
	defer close(sub.events)
	defer body.Close()

	// Close the body when the context is cancelled so a blocked Read
	// returns promptly.
	stop := context.AfterFunc(ctx, func() { body.Close() })
	defer stop()

	chunkSize := i.ChunkSize
	if chunkSize <= 0 {
		chunkSize = readChunkSize
	}

	var (
		pending strings.Builder
		chunk   = make([]byte, chunkSize)
	)
	for {
		n, readErr := body.Read(chunk)
		if n > 0 {
			pending.Write(chunk[:n])
			rest, events := splitFrames(pending.String())
			pending.Reset()
			pending.WriteString(rest)
			for _, ev := range events {
				select {
				case sub.events <- ev:
				case <-ctx.Done():
					sub.setErr(context.Cause(ctx))
					return
				}
			}
		}
		if readErr != nil {
			switch {
			case readErr == io.EOF:
				// Clean end of stream.
			case ctx.Err() != nil:
				sub.setErr(context.Cause(ctx))
			default:
				sub.setErr(models.NewAgentError(models.ErrorTypeNetwork,
					"stream read failed", readErr))
			}
			return
		}
	}
}

// splitFrames parses every complete frame in buf and returns the unparsed
// remainder. The remainder never contains a frame delimiter.
func splitFrames(buf string) (rest string, events []Event) {
	for {
		idx, delim := nextDelim(buf)
		if idx < 0 {
			return buf, events
		}
		if ev, ok := parseFrame(buf[:idx]); ok {
			events = append(events, ev)
		}
		buf = buf[idx+delim:]
	}
}

// nextDelim finds the earliest frame delimiter in buf, accepting bare LF
// and CRLF blank lines.
func nextDelim(buf string) (idx, width int) {
	idx, width = strings.Index(buf, frameDelim), len(frameDelim)
	if crlf := strings.Index(buf, "\r\n\r\n"); crlf >= 0 && (idx < 0 || crlf < idx) {
		return crlf, 4
	}
	return idx, width
}
