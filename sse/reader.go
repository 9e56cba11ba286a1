package sse

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

// DefaultMaxEventSize bounds a single line of the stream.
const DefaultMaxEventSize = 1 << 20

// Event represents a single server-sent event.
type Event struct {
	// Event is the SSE event type (from "event:" line). Empty for data-only events.
	Event string
	// Data is the event payload (from "data:" line(s)). Multi-line data is joined with newlines.
	Data string
	// ID is the event ID (from "id:" line).
	ID string
	// HasID reports whether the event carried an "id:" line, including an empty one.
	HasID bool
	// Retry is the reconnection delay announced by the server since the previous event, zero if none.
	Retry time.Duration
}

// Reader reads server-sent events from a stream.
type Reader interface {
	// Next returns the next SSE event. Returns io.EOF when the stream ends.
	Next() (*Event, error)
	// Close releases the underlying resources.
	Close() error
}

type reader struct {
	scanner *bufio.Scanner
	body    io.ReadCloser
	retry   time.Duration
}

// NewReader creates an SSE reader from a readable stream.
func NewReader(body io.ReadCloser) Reader {
	return NewReaderSize(body, DefaultMaxEventSize)
}

// NewReaderSize creates an SSE reader that accepts lines up to maxLine bytes.
func NewReaderSize(body io.ReadCloser, maxLine int) Reader {
	if maxLine <= 0 {
		maxLine = DefaultMaxEventSize
	}
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, min(4096, maxLine)), maxLine)
	return &reader{
		scanner: scanner,
		body:    body,
	}
}

// Next returns the next SSE event. Returns io.EOF when the stream ends.
func (r *reader) Next() (*Event, error) {
	var event Event
	var hasData bool

	for r.scanner.Scan() {
		line := r.scanner.Text()

		// Blank line dispatches the pending event. Named events are
		// dispatched without data so "event: complete" alone ends a stream,
		// and id-only events still move the last event ID forward.
		if line == "" {
			if hasData || event.Event != "" || event.HasID {
				return r.dispatch(&event), nil
			}
			event = Event{}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := parseSSELine(line)
		switch field {
		case "data":
			if hasData {
				event.Data += "\n" + value
			} else {
				event.Data = value
				hasData = true
			}
		case "event":
			event.Event = value
		case "id":
			// ids containing NUL are ignored
			if !strings.ContainsRune(value, 0) {
				event.ID = value
				event.HasID = true
			}
		case "retry":
			if ms, err := strconv.ParseUint(value, 10, 32); err == nil {
				r.retry = time.Duration(ms) * time.Millisecond
			}
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	if hasData || event.Event != "" || event.HasID {
		return r.dispatch(&event), nil
	}
	return nil, io.EOF
}

func (r *reader) dispatch(event *Event) *Event {
	event.Retry = r.retry
	r.retry = 0
	return event
}

// Close releases the underlying stream.
func (r *reader) Close() error {
	return r.body.Close()
}

// parseSSELine parses a single SSE line into field and value.
func parseSSELine(line string) (field, value string) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return line, ""
	}
	field = line[:idx]
	value = line[idx+1:]
	if value != "" && value[0] == ' ' {
		value = value[1:]
	}
	return field, value
}
