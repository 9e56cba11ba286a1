package eventsource

import "encoding/json"

// Kind tags a RawEvent.
type Kind int

const (
	// KindData carries one JSON payload.
	KindData Kind = iota
	// KindError carries a fatal error. No events follow it.
	KindError
	// KindTerminal marks graceful completion. No events follow it.
	KindTerminal
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindError:
		return "error"
	case KindTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// RawEvent is one unit delivered by a Source.
type RawEvent struct {
	Kind Kind
	// Data is the validated JSON payload (KindData).
	Data json.RawMessage
	// Err is the fatal error (KindError).
	Err error
	// ID is the last event id seen on the stream.
	ID string
}

// State is the connection state of a Source.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateErrored
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateErrored:
		return "errored"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
