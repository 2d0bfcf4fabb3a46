// Package stream implements the client side of the recommendation event
// protocol: a frame parser for the SSE-style wire format, an ingestor that
// reassembles frames from arbitrarily-chunked transport reads, and a session
// state machine that presentation code observes.
//
// Frame wire format: UTF-8 text, each frame a sequence of "field: value"
// lines terminated by a blank line. Recognized fields are "event", "data"
// and "id"; unrecognized fields are ignored.
package stream

// Event is a single parsed frame from the wire.
type Event struct {
	// Type is the event type from the "event:" field. An empty string means
	// the default "message" type.
	Type string

	// Data is the concatenated contents of all "data:" lines for this frame,
	// joined with "\n" (multiple data fields join with a single newline).
	Data string

	// ID is the last event ID from the "id:" field, if present. It is carried
	// but not required by downstream consumers.
	ID string
}

// Recognized event types. Any other name is treated as a plain text event
// carrying its raw data unchanged, for forward compatibility with future
// event kinds.
const (
	EventTypeMessage = "message"
	EventTypeMovie   = "movie"
	EventTypeDone    = "done"
	EventTypeError   = "error"
)
