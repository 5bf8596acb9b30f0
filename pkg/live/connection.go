package live

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/liverelay/webcast/internal/errors"
	"github.com/liverelay/webcast/internal/metrics"
	"github.com/liverelay/webcast/pkg/normalize"
	"github.com/liverelay/webcast/pkg/protocol"
	"github.com/liverelay/webcast/pkg/schema"
	"github.com/liverelay/webcast/pkg/stickers"
	"github.com/liverelay/webcast/pkg/transport"
)

// Control actions that mean the room closed for good.
const (
	controlActionPause = 3
	controlActionEnd   = 4
)

const connEventBuffer = 128

// ConnConfig configures a TikTok Connection.
type ConnConfig struct {
	// Schema decodes the wire types. Required.
	Schema *schema.Schema

	// Source produces socket credentials. Required.
	Source CredentialSource

	// Status performs the pre-flight live check. Nil skips the check.
	Status *StatusClient

	// PingInterval overrides the transport keep-alive interval.
	PingInterval time.Duration

	// Logger receives connection logs. Nil uses slog.Default.
	Logger *slog.Logger
}

// Connection is one logical session to one TikTok room. It owns at most one
// transport session at a time and re-emits its envelopes as normalized
// events. The events channel survives reconnects.
type Connection struct {
	target string
	cfg    ConnConfig
	logger *slog.Logger

	// onTerminal fires once when the platform ends the stream.
	onTerminal   func()
	terminalOnce sync.Once

	// opMu serializes Connect/Disconnect so concurrent joiners cannot open
	// two sessions for one connection.
	opMu sync.Mutex

	mu               sync.Mutex
	session          *transport.Session
	connected        bool
	shouldReconnect  bool
	preventReconnect bool
	stickerURL       string
	cookies          []transport.Cookie
	state            map[string]any

	events chan Event
}

// NewConnection creates an idle connection for the target. onTerminal may
// be nil.
func NewConnection(target string, cfg ConnConfig, onTerminal func()) *Connection {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Connection{
		target:     CanonicalTarget(PlatformTikTok, target),
		cfg:        cfg,
		logger:     logger.With("component", "connection", "target", target),
		onTerminal: onTerminal,
		state:      map[string]any{},
		events:     make(chan Event, connEventBuffer),
	}
}

// TikTokFactory returns a Factory producing TikTok connections with the
// given config.
func TikTokFactory(cfg ConnConfig) Factory {
	return func(target string, onTerminal func()) (Conn, error) {
		return NewConnection(target, cfg, onTerminal), nil
	}
}

// Target returns the canonical target identifier.
func (c *Connection) Target() string { return c.target }

// Events returns the channel connection events are delivered on.
func (c *Connection) Events() <-chan Event { return c.events }

// Connected reports whether the connection is currently live.
func (c *Connection) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// ReconnectEligible reports whether a sweep should revive the connection.
func (c *Connection) ReconnectEligible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.connected && c.shouldReconnect && !c.preventReconnect
}

// State returns a snapshot of the connection state captured at connect.
func (c *Connection) State() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := make(map[string]any, len(c.state)+1)
	for k, v := range c.state {
		snapshot[k] = v
	}
	snapshot["isConnected"] = c.connected
	return snapshot
}

// Connect runs the pre-flight status check, obtains socket credentials and
// opens the transport session. No-op when already live; fails fast with a
// stream error when the room has ended.
func (c *Connection) Connect(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	if c.preventReconnect {
		c.mu.Unlock()
		return errors.New(errors.CodeStreamEnded)
	}
	c.mu.Unlock()

	if c.cfg.Status != nil {
		status, err := c.cfg.Status.RoomStatus(ctx, c.target)
		if err != nil {
			c.emit(Event{Kind: EventError, Err: err})
			return err
		}
		if !status.Live() {
			err := errors.New(errors.CodeStreamNotLive).WithDetail("status %d", status.Status)
			c.emit(Event{Kind: EventError, Err: err})
			return err
		}
		c.mu.Lock()
		c.state["roomId"] = status.RoomID
		c.state["status"] = status.Status
		c.mu.Unlock()
	}

	creds, err := c.cfg.Source.Fetch(ctx, c.target)
	if err != nil {
		c.emit(Event{Kind: EventError, Err: err})
		return err
	}

	sess := transport.New(c.cfg.Schema, transport.Config{
		PingInterval: c.cfg.PingInterval,
		Logger:       c.logger,
	})
	if err := sess.Open(ctx, creds.SocketURL, creds.Cookies); err != nil {
		c.emit(Event{Kind: EventError, Err: err})
		return err
	}

	c.mu.Lock()
	c.session = sess
	c.connected = true
	c.shouldReconnect = false
	c.stickerURL = creds.StickerURL
	c.cookies = creds.Cookies
	c.mu.Unlock()

	c.logger.Info("connection live")
	go c.pump(sess)
	return nil
}

// Disconnect closes the current session. With preventReconnect the socket
// is closed before Disconnect returns and no sweep will revive the
// connection.
func (c *Connection) Disconnect(preventReconnect bool) {
	c.mu.Lock()
	if preventReconnect {
		c.preventReconnect = true
		c.shouldReconnect = false
	}
	sess := c.session
	c.session = nil
	c.connected = false
	c.mu.Unlock()

	if sess != nil {
		sess.Close()
	}
}

// Stickers fetches and parses the room's emote catalog using the sticker
// URL and cookies captured at connect.
func (c *Connection) Stickers(ctx context.Context) ([]stickers.Sticker, error) {
	c.mu.Lock()
	url := c.stickerURL
	cookies := c.cookies
	c.mu.Unlock()

	if url == "" {
		return nil, errors.New(errors.CodeSessionNotOpen).WithDetail("no sticker url captured")
	}
	return stickers.Fetch(ctx, nil, url, cookies)
}

// pump consumes one transport session's events until it closes.
func (c *Connection) pump(sess *transport.Session) {
	first := true
	for ev := range sess.Events() {
		switch ev.Kind {
		case transport.EventConnected:
			if first {
				first = false
				c.emit(Event{Kind: EventWebsocketConnected})
				c.emit(Event{Kind: EventConnected, Data: c.State()})
			}

		case transport.EventEnvelope:
			c.emit(Event{Kind: EventRawData, Raw: ev.Raw})
			for _, sub := range ev.Envelope.Messages {
				if sub.Decoded == nil {
					continue
				}
				c.handleSubmessage(sub)
			}

		case transport.EventDecodeFailed:
			c.emit(Event{Kind: EventDecodeFailed, Err: ev.Err})

		case transport.EventErrored:
			c.emit(Event{Kind: EventError, Err: ev.Err})

		case transport.EventDisconnected:
			c.sessionDown(sess)
		}
	}
}

// sessionDown settles state after a session ends, re-arming the sweep
// unless the disconnect was final.
func (c *Connection) sessionDown(sess *transport.Session) {
	c.mu.Lock()
	if c.session == sess {
		c.session = nil
	}
	c.connected = false
	if !c.preventReconnect {
		c.shouldReconnect = true
	}
	c.mu.Unlock()

	c.logger.Info("connection down", "reconnect", c.ReconnectEligible())
	c.emit(Event{Kind: EventDisconnected})
}

// handleSubmessage normalizes and emits one submessage. A panic while
// normalizing is contained here so sibling submessages in the same envelope
// still go out.
func (c *Connection) handleSubmessage(sub protocol.Submessage) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("normalize panic", "type", sub.Type, "panic", r)
			c.emit(Event{
				Kind: EventDecodeFailed,
				Err:  errors.Newf(errors.CategoryProtocol, "normalize %s: %v", sub.Type, r),
			})
		}
	}()

	if sub.Type == protocol.TypeControl {
		c.handleControl(sub.Decoded)
		return
	}

	kind, ok := messageKinds[sub.Type]
	if !ok {
		return
	}

	flat := normalize.Flatten(sub.Decoded)
	c.emit(Event{Kind: EventDecodedData, Data: flat})
	c.emit(Event{Kind: kind, Data: flat})

	if kind == EventSocial {
		displayType, _ := flat["displayType"].(string)
		if strings.Contains(displayType, "follow") {
			c.emit(Event{Kind: EventFollow, Data: flat})
		}
		if strings.Contains(displayType, "share") {
			c.emit(Event{Kind: EventShare, Data: flat})
		}
	}
}

// handleControl ends the stream for good on the terminal action codes.
func (c *Connection) handleControl(decoded map[string]any) {
	action := controlAction(decoded)
	if action != controlActionPause && action != controlActionEnd {
		return
	}

	c.mu.Lock()
	c.preventReconnect = true
	c.shouldReconnect = false
	sess := c.session
	c.session = nil
	c.connected = false
	c.mu.Unlock()

	c.logger.Info("stream ended", "action", action)
	c.emit(Event{Kind: EventStreamEnd, Data: map[string]any{"action": action}})

	if sess != nil {
		sess.Close()
	}
	c.terminalOnce.Do(func() {
		if c.onTerminal != nil {
			c.onTerminal()
		}
	})
}

func (c *Connection) emit(ev Event) {
	metrics.EventsEmitted.WithLabelValues(ev.Kind.String()).Inc()
	select {
	case c.events <- ev:
	default:
		// Consumer is not keeping up; dropping beats stalling the decode
		// path for every connection sharing the socket reader.
		c.logger.Warn("event dropped", "kind", ev.Kind.String())
	}
}

// controlAction extracts the action code from a decoded control message.
func controlAction(decoded map[string]any) int64 {
	switch v := decoded["action"].(type) {
	case uint64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}
