package assistant

import (
	"encoding/json"
	"strings"
)

type EventType int

const (
	EventContentDelta EventType = iota
	EventDone
	EventError
)

// StreamEvent is one decoded frame of the chat stream. Exactly one Done or
// Error terminates a turn; any number of ContentDelta may precede it.
type StreamEvent struct {
	Type      EventType
	Content   string // delta text for ContentDelta
	Message   string // error text for Error
	SessionId string // adopted by the controller when present
}

// streamFrame is the wire payload behind the "data: " prefix.
type streamFrame struct {
	Content   string `json:"content"`
	Done      bool   `json:"done"`
	Error     string `json:"error"`
	SessionId string `json:"session_id"`
}

const framePrefix = "data: "

// StreamDecoder reassembles logical frames from arbitrarily chunked stream
// text. Network chunks do not align with frame boundaries: a frame may span
// several chunks, or several frames may share one, so a carry-over buffer
// holds the trailing partial line between feeds.
type StreamDecoder struct {
	carry      string
	terminated bool
}

func NewStreamDecoder() *StreamDecoder {
	return &StreamDecoder{}
}

// Feed consumes one raw chunk and returns the events completed by it, in
// order. Once a terminal event (Done or Error) has been produced, all further
// input is discarded.
func (d *StreamDecoder) Feed(chunk string) []StreamEvent {
	if d.terminated {
		return nil
	}

	data := d.carry + chunk
	lines := strings.Split(data, "\n")
	// The last element is either empty (chunk ended on a boundary) or a
	// partial line to carry into the next feed.
	d.carry = lines[len(lines)-1]
	lines = lines[:len(lines)-1]

	var events []StreamEvent
	for _, line := range lines {
		ev, ok := d.decodeLine(line)
		if !ok {
			continue
		}
		events = append(events, ev...)
		if d.terminated {
			break
		}
	}
	return events
}

// Finish flushes any buffered line and, if the stream ended without an
// explicit terminator, synthesizes Done so a server that just closes the
// connection still completes the turn cleanly.
func (d *StreamDecoder) Finish() []StreamEvent {
	if d.terminated {
		return nil
	}

	var events []StreamEvent
	if d.carry != "" {
		if ev, ok := d.decodeLine(d.carry); ok {
			events = append(events, ev...)
		}
		d.carry = ""
	}

	if !d.terminated {
		d.terminated = true
		events = append(events, StreamEvent{Type: EventDone})
	}
	return events
}

// Discard drops buffered state without emitting anything further. Used on
// cancellation.
func (d *StreamDecoder) Discard() {
	d.carry = ""
	d.terminated = true
}

// decodeLine interprets one complete line. Lines without the frame prefix or
// with an unparsable payload are skipped; one malformed frame must not abort
// an otherwise healthy stream.
func (d *StreamDecoder) decodeLine(line string) ([]StreamEvent, bool) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, framePrefix) {
		return nil, false
	}

	var frame streamFrame
	if err := json.Unmarshal([]byte(line[len(framePrefix):]), &frame); err != nil {
		return nil, false
	}

	if frame.Error != "" {
		d.terminated = true
		return []StreamEvent{{
			Type:      EventError,
			Message:   frame.Error,
			SessionId: frame.SessionId,
		}}, true
	}

	var events []StreamEvent
	if frame.Content != "" {
		events = append(events, StreamEvent{
			Type:      EventContentDelta,
			Content:   frame.Content,
			SessionId: frame.SessionId,
		})
	}
	if frame.Done {
		d.terminated = true
		events = append(events, StreamEvent{Type: EventDone, SessionId: frame.SessionId})
	}
	if len(events) == 0 {
		return nil, false
	}
	return events, true
}
