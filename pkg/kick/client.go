// Package kick implements the Kick connection variant over the platform's
// Pusher-style JSON websocket. It speaks a very small subset of the Pusher
// protocol: subscribe, ping/pong, and the chat-room app events.
package kick

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/liverelay/webcast/internal/errors"
	"github.com/liverelay/webcast/internal/metrics"
	"github.com/liverelay/webcast/pkg/live"
)

const (
	defaultAPIBase = "https://kick.com"
	defaultWSURL   = "wss://ws-us2.pusher.com/app/eb1d5f283081a78b932c?protocol=7&client=js&version=7.6.0&flash=false"

	writeTimeout = 10 * time.Second
	eventBuffer  = 128
)

// App events on the chat-room channel.
const (
	eventChatMessage  = `App\Events\ChatMessageEvent`
	eventSubscription = `App\Events\SubscriptionEvent`
	eventStreamStop   = `App\Events\StopStreamBroadcast`
)

// Config configures a Client.
type Config struct {
	// APIBase overrides the channel API endpoint. Empty uses the platform.
	APIBase string

	// WSURL overrides the pusher endpoint. Empty uses the platform.
	WSURL string

	// HTTPClient performs the channel lookup. Nil uses http.DefaultClient.
	HTTPClient *http.Client

	// Dialer overrides the websocket dialer.
	Dialer *websocket.Dialer

	// Logger receives client logs. Nil uses slog.Default.
	Logger *slog.Logger
}

// Client is one Kick chat-room connection. It implements live.Conn.
type Client struct {
	target string
	cfg    Config
	logger *slog.Logger

	onTerminal   func()
	terminalOnce sync.Once

	opMu sync.Mutex

	mu               sync.Mutex
	conn             *websocket.Conn
	writeMu          sync.Mutex
	connected        bool
	shouldReconnect  bool
	preventReconnect bool
	chatroomID       int64
	state            map[string]any

	events chan live.Event
}

// New creates an idle client for the target channel slug. onTerminal may be
// nil.
func New(target string, cfg Config, onTerminal func()) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if cfg.WSURL == "" {
		cfg.WSURL = defaultWSURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	return &Client{
		target:     live.CanonicalTarget(live.PlatformKick, target),
		cfg:        cfg,
		logger:     logger.With("component", "kick", "target", target),
		onTerminal: onTerminal,
		state:      map[string]any{},
		events:     make(chan live.Event, eventBuffer),
	}
}

// Factory returns a live.Factory producing Kick clients with the given
// config.
func Factory(cfg Config) live.Factory {
	return func(target string, onTerminal func()) (live.Conn, error) {
		return New(target, cfg, onTerminal), nil
	}
}

// Target returns the canonical channel slug.
func (c *Client) Target() string { return c.target }

// Events returns the channel connection events are delivered on.
func (c *Client) Events() <-chan live.Event { return c.events }

// Connected reports whether the connection is currently live.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// ReconnectEligible reports whether a sweep should revive the connection.
func (c *Client) ReconnectEligible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.connected && c.shouldReconnect && !c.preventReconnect
}

// State returns a snapshot of the connection state.
func (c *Client) State() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := make(map[string]any, len(c.state)+1)
	for k, v := range c.state {
		snapshot[k] = v
	}
	snapshot["isConnected"] = c.connected
	return snapshot
}

// Connect looks up the chat room, opens the pusher socket and subscribes to
// the room channel. No-op when already live.
func (c *Client) Connect(ctx context.Context) error {
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

	info, err := c.channelInfo(ctx)
	if err != nil {
		c.emit(live.Event{Kind: live.EventError, Err: err})
		return err
	}
	if !info.live {
		err := errors.New(errors.CodeStreamNotLive).WithDetail("channel %s offline", c.target)
		c.emit(live.Event{Kind: live.EventError, Err: err})
		return err
	}

	conn, _, err := c.cfg.Dialer.DialContext(ctx, c.cfg.WSURL, nil)
	if err != nil {
		herr := errors.New(errors.CodeHandshake).Wrap(err)
		c.emit(live.Event{Kind: live.EventError, Err: herr})
		return herr
	}

	subscribe := map[string]any{
		"event": "pusher:subscribe",
		"data": map[string]any{
			"auth":    "",
			"channel": fmt.Sprintf("chatrooms.%d.v2", info.chatroomID),
		},
	}
	if err := c.writeJSON(conn, subscribe); err != nil {
		_ = conn.Close()
		herr := errors.New(errors.CodeHandshake).Wrap(err)
		c.emit(live.Event{Kind: live.EventError, Err: herr})
		return herr
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.shouldReconnect = false
	c.chatroomID = info.chatroomID
	c.state["chatroomId"] = info.chatroomID
	c.mu.Unlock()

	c.logger.Info("kick connection live", "chatroom", info.chatroomID)
	c.emit(live.Event{Kind: live.EventWebsocketConnected})
	c.emit(live.Event{Kind: live.EventConnected, Data: c.State()})

	go c.readLoop(conn)
	return nil
}

// Disconnect closes the socket. With preventReconnect the connection is
// dead for good.
func (c *Client) Disconnect(preventReconnect bool) {
	c.mu.Lock()
	if preventReconnect {
		c.preventReconnect = true
		c.shouldReconnect = false
	}
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

type channelInfo struct {
	chatroomID int64
	live       bool
}

// channelInfo fetches the chat-room id and live flag for the channel slug.
func (c *Client) channelInfo(ctx context.Context) (*channelInfo, error) {
	endpoint := fmt.Sprintf("%s/api/v2/channels/%s", c.cfg.APIBase, strings.TrimPrefix(c.target, "@"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.New(errors.CodeHandshake).Wrap(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.CodeHandshake).WithDetail("channel lookup: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Chatroom struct {
			ID int64 `json:"id"`
		} `json:"chatroom"`
		Livestream *struct {
			IsLive bool `json:"is_live"`
		} `json:"livestream"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("channel lookup: %w", err)
	}
	return &channelInfo{
		chatroomID: parsed.Chatroom.ID,
		live:       parsed.Livestream != nil && parsed.Livestream.IsLive,
	}, nil
}

// pusherMessage is the outer pusher frame. Data is a JSON document encoded
// as a string, per the pusher protocol.
type pusherMessage struct {
	Event   string `json:"event"`
	Data    string `json:"data"`
	Channel string `json:"channel,omitempty"`
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var msg pusherMessage
		if err := conn.ReadJSON(&msg); err != nil {
			c.socketDown(conn)
			return
		}
		c.handleMessage(conn, msg)
	}
}

func (c *Client) handleMessage(conn *websocket.Conn, msg pusherMessage) {
	switch msg.Event {
	case "pusher:ping":
		if err := c.writeJSON(conn, map[string]any{"event": "pusher:pong", "data": "{}"}); err != nil {
			c.logger.Debug("pong failed", "error", err)
		}

	case "pusher:connection_established", "pusher_internal:subscription_succeeded":
		// Already reported live at subscribe time.

	case eventChatMessage:
		var chat struct {
			ID        string `json:"id"`
			Content   string `json:"content"`
			CreatedAt string `json:"created_at"`
			Sender    struct {
				ID       int64  `json:"id"`
				Username string `json:"username"`
			} `json:"sender"`
		}
		if err := json.Unmarshal([]byte(msg.Data), &chat); err != nil {
			c.emit(live.Event{
				Kind: live.EventDecodeFailed,
				Err:  fmt.Errorf("chat payload: %w", err),
			})
			return
		}
		c.emit(live.Event{Kind: live.EventChat, Data: map[string]any{
			"msgId":     chat.ID,
			"comment":   chat.Content,
			"createdAt": chat.CreatedAt,
			"userId":    strconv.FormatInt(chat.Sender.ID, 10),
			"uniqueId":  chat.Sender.Username,
			"nickname":  chat.Sender.Username,
		}})

	case eventSubscription:
		var sub map[string]any
		if err := json.Unmarshal([]byte(msg.Data), &sub); err != nil {
			sub = map[string]any{}
		}
		c.emit(live.Event{Kind: live.EventSubscribe, Data: sub})

	case eventStreamStop:
		c.streamEnd(conn)
	}
}

// streamEnd shuts the connection down for good when the broadcast stops.
func (c *Client) streamEnd(conn *websocket.Conn) {
	c.mu.Lock()
	c.preventReconnect = true
	c.shouldReconnect = false
	c.connected = false
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()

	c.logger.Info("broadcast stopped")
	c.emit(live.Event{Kind: live.EventStreamEnd})
	_ = conn.Close()

	c.terminalOnce.Do(func() {
		if c.onTerminal != nil {
			c.onTerminal()
		}
	})
}

func (c *Client) socketDown(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.connected = false
	if !c.preventReconnect {
		c.shouldReconnect = true
	}
	c.mu.Unlock()

	c.emit(live.Event{Kind: live.EventDisconnected})
}

func (c *Client) writeJSON(conn *websocket.Conn, v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(v)
}

func (c *Client) emit(ev live.Event) {
	metrics.EventsEmitted.WithLabelValues(ev.Kind.String()).Inc()
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("event dropped", "kind", ev.Kind.String())
	}
}
