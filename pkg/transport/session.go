package transport

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/liverelay/webcast/internal/errors"
	"github.com/liverelay/webcast/internal/metrics"
	"github.com/liverelay/webcast/pkg/protocol"
	"github.com/liverelay/webcast/pkg/schema"
)

// State is the lifecycle state of a session.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
	StateErrored
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

const (
	// DefaultPingInterval is how often keep-alive pings go out. The server
	// tolerates occasional missed pings before declaring the client dead.
	DefaultPingInterval = 10 * time.Second

	writeTimeout = 10 * time.Second
	eventBuffer  = 64
)

// Config configures a Session.
type Config struct {
	// PingInterval overrides DefaultPingInterval when > 0.
	PingInterval time.Duration

	// Dialer overrides the websocket dialer. Nil uses the default dialer,
	// which generates the per-connection handshake key.
	Dialer *websocket.Dialer

	// Logger receives session logs. Nil uses slog.Default.
	Logger *slog.Logger
}

// Session owns one persistent socket to the platform's push endpoint. It
// reads frames, acks every frame that carries an id, and delivers decoded
// envelopes to the owner via Events. Frames are processed and acked in the
// order received; there is no parallel decode per session.
type Session struct {
	schema *schema.Schema
	logger *slog.Logger

	pingInterval time.Duration
	dialer       *websocket.Dialer

	conn    *websocket.Conn
	writeMu sync.Mutex

	state     atomic.Int32
	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a session in the Idle state.
func New(s *schema.Schema, cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.PingInterval
	if interval <= 0 {
		interval = DefaultPingInterval
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &Session{
		schema:       s,
		logger:       logger.With("component", "transport"),
		pingInterval: interval,
		dialer:       dialer,
		events:       make(chan Event, eventBuffer),
		done:         make(chan struct{}),
	}
}

// State returns the current session state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Events returns the channel session events are delivered on. The channel
// is closed after the session reaches a terminal state and the read loop
// exits.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Open establishes the socket with platform-mimicking headers and the
// filtered cookie subset, then starts the read and keep-alive loops. A
// rejected handshake fails with a transport error; retry policy belongs to
// the caller.
func (s *Session) Open(ctx context.Context, rawURL string, cookies []Cookie) error {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateConnecting)) {
		return errors.New(errors.CodeSessionNotOpen).WithDetail("open from state %s", s.State())
	}

	wsURL, err := sessionURL(rawURL)
	if err != nil {
		s.state.Store(int32(StateErrored))
		return errors.New(errors.CodeHandshake).Wrap(err)
	}

	conn, resp, err := s.dialer.DialContext(ctx, wsURL, sessionHeaders(cookies))
	if err != nil {
		s.state.Store(int32(StateErrored))
		herr := errors.New(errors.CodeHandshake).Wrap(err)
		if resp != nil {
			herr = herr.WithDetail("status %s", resp.Status)
		}
		return herr
	}

	s.conn = conn
	s.state.Store(int32(StateOpen))
	s.logger.Info("session open", "url", wsURL)
	s.emit(Event{Kind: EventConnected})

	go s.readLoop()
	go s.pingLoop()
	return nil
}

// Close stops the keep-alive timer and closes the socket. It is idempotent
// and safe to call from any state.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.State() != StateErrored {
			s.state.Store(int32(StateClosing))
		}
		close(s.done)
		if s.conn != nil {
			_ = s.conn.Close()
		}
		s.state.CompareAndSwap(int32(StateClosing), int32(StateClosed))
	})
}

// readLoop reads frames until the socket closes. Decode failures are
// surfaced as events and never kill the session; only the socket going away
// ends the loop.
func (s *Session) readLoop() {
	defer close(s.events)

	for {
		msgType, msg, err := s.conn.ReadMessage()
		if err != nil {
			s.finish(err)
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		metrics.FramesReceived.Inc()

		frame, err := protocol.DecodeFrame(s.schema, msg)
		if err != nil {
			metrics.FrameDecodeFailures.Inc()
			s.logger.Error("frame decode failed", "error", err)
			s.emit(Event{Kind: EventDecodeFailed, Err: err})
			continue
		}

		// Strict protocol contract: every frame with an id is acked before
		// anything else happens to it.
		if frame.ID > 0 {
			s.sendAck(frame.ID)
		}

		if frame.Envelope != nil {
			s.emit(Event{Kind: EventEnvelope, Envelope: frame.Envelope, Raw: frame.Payload})
		}
	}
}

// finish settles the terminal state after the read loop stops and surfaces
// the disconnect to the owner.
func (s *Session) finish(err error) {
	select {
	case <-s.done:
		// Deliberate close.
		s.state.CompareAndSwap(int32(StateClosing), int32(StateClosed))
		s.emit(Event{Kind: EventDisconnected})
		return
	default:
	}

	s.state.Store(int32(StateErrored))
	s.logger.Error("socket failed", "error", err)
	s.emit(Event{Kind: EventErrored, Err: err})
	s.emit(Event{Kind: EventDisconnected})
}

// pingLoop sends keep-alive pings until the session closes. Ping failures
// are logged, never escalated.
func (s *Session) pingLoop() {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			s.writeMu.Unlock()
			if err != nil {
				s.logger.Debug("ping failed", "error", err)
			}

		case <-s.done:
			return
		}
	}
}

// sendAck writes an ack frame for the given id, best-effort.
func (s *Session) sendAck(id uint64) {
	wire, err := protocol.EncodeAck(s.schema, id)
	if err != nil {
		s.logger.Error("ack encode failed", "error", err, "id", id)
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, wire); err != nil {
		s.logger.Error("ack write failed", "error", err, "id", id)
		return
	}
	metrics.AcksSent.Inc()
}

func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
		return
	default:
	}
	select {
	case s.events <- ev:
	case <-s.done:
		// Owner is gone and the buffer is full; drop rather than block
		// the read loop.
	}
}
