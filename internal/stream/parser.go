package stream

import "strings"

// frameDelim separates complete frames on the wire. Two consecutive
// newlines terminate a frame; line endings inside a frame may be "\n"
// or "\r\n".
const frameDelim = "\n\n"

// ParseFrames splits a block of protocol text into zero or more events.
// Every frame in the block must be complete (terminated by a blank line
// or by the end of the block); callers that read from a live transport
// should go through the Ingestor, which buffers partial frames across
// reads and only hands complete frames to the parser.
//
// Lines with no "field:" prefix, comment lines and unrecognized fields
// are ignored. A frame that yields no recognized field produces no event.
func ParseFrames(block string) []Event {
	var events []Event
	for _, frame := range strings.Split(block, frameDelim) {
		if ev, ok := parseFrame(frame); ok {
			events = append(events, ev)
		}
	}
	return events
}

// parseFrame parses one frame's lines. ok is false when the frame has no
// recognized fields at all and therefore dispatches nothing.
func parseFrame(frame string) (Event, bool) {
	var (
		ev        Event
		dataLines []string
		seen      bool
	)
	for _, line := range strings.Split(frame, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		field, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		// A single leading space after the colon is part of the
		// separator, not the value.
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			ev.Type = value
			seen = true
		case "data":
			dataLines = append(dataLines, value)
			seen = true
		case "id":
			ev.ID = value
			seen = true
		}
	}
	if !seen {
		return Event{}, false
	}
	ev.Data = strings.Join(dataLines, "\n")
	if ev.Type == "" {
		ev.Type = EventTypeMessage
	}
	return ev, true
}
