package stream

import (
	"github.com/goccy/go-json"

	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/models"
)

// Kind classifies a decoded message.
type Kind int

const (
	// KindText carries a chunk of recommendation narration to append to the
	// accumulating text.
	KindText Kind = iota
	// KindMovie carries one structured movie recommendation.
	KindMovie
	// KindDone marks successful end of stream. No payload.
	KindDone
	// KindError carries a terminal stream error.
	KindError
)

// Message is the typed interpretation of a wire Event.
type Message struct {
	Kind  Kind
	Text  string
	Movie *models.Movie
	Err   *models.AgentError
}

// streamError is the JSON body of an error-typed frame.
type streamError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Decode interprets a parsed event. It never fails: malformed payloads
// decode to a KindError message rather than an error return, so a bad
// frame surfaces to the session while the rest of the stream keeps
// parsing.
func Decode(ev Event) Message {
	switch ev.Type {
	case EventTypeMovie:
		var movie models.Movie
		if err := json.Unmarshal([]byte(ev.Data), &movie); err != nil {
			return Message{
				Kind: KindError,
				Err: models.NewAgentError(models.ErrorTypeUnknown,
					"failed to parse movie data", err),
			}
		}
		return Message{Kind: KindMovie, Movie: &movie}
	case EventTypeDone:
		// Done frames carry no payload; any data is ignored.
		return Message{Kind: KindDone}
	case EventTypeError:
		return Message{Kind: KindError, Err: decodeError(ev.Data)}
	default:
		// The default "message" type and any unrecognized type carry
		// plain text.
		return Message{Kind: KindText, Text: ev.Data}
	}
}

// decodeError applies the error payload ladder: empty data maps to a fixed
// unknown error, a JSON body with a recognizable type field keeps that
// classification, a JSON body without one becomes a generic stream error,
// and anything that is not JSON is used verbatim as an unclassified
// message.
func decodeError(data string) *models.AgentError {
	if data == "" {
		return models.NewAgentError(models.ErrorTypeUnknown, "unknown stream error", nil)
	}
	var payload streamError
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return models.NewAgentError(models.ErrorTypeUnknown, data, nil)
	}
	msg := payload.Message
	if msg == "" {
		msg = "stream error"
	}
	if errType := models.ErrorType(payload.Type); errType.Valid() {
		return models.NewAgentError(errType, msg, nil)
	}
	return models.NewAgentError(models.ErrorTypeAPI, msg, nil)
}
