package transport

import "github.com/liverelay/webcast/pkg/protocol"

// EventKind identifies the kind of session event.
type EventKind uint8

const (
	EventEnvelope     EventKind = iota // a decoded inner envelope arrived
	EventDecodeFailed                  // a frame failed to decode; session stays open
	EventConnected                     // the socket handshake completed
	EventDisconnected                  // the socket closed
	EventErrored                       // the socket failed
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventEnvelope:
		return "envelope"
	case EventDecodeFailed:
		return "decodeFailed"
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventErrored:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one session event delivered to the owner. Payload fields are set
// per kind: Envelope and Raw for EventEnvelope, Err for EventDecodeFailed
// and EventErrored.
type Event struct {
	Kind     EventKind
	Envelope *protocol.Envelope
	Raw      []byte
	Err      error
}
