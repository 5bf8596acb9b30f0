package sign

import (
	"context"
	"log/slog"

	"github.com/gorilla/websocket"

	"github.com/liverelay/webcast/internal/errors"
	"github.com/liverelay/webcast/pkg/transport"
)

// ProtocolVersion is the signing protocol version sent with every request.
const ProtocolVersion = "1"

// Credentials is the (socket URL, cookies, sticker URL) triple a credential
// source produces for one target.
type Credentials struct {
	SocketURL  string
	Cookies    []transport.Cookie
	StickerURL string
}

// Client talks to the remote signing collaborator over its own lightweight
// request/response channel. One request per connection attempt; the
// collaborator answers with live data or one of its error codes.
type Client struct {
	addr   string
	dialer *websocket.Dialer
	logger *slog.Logger
}

// NewClient creates a signing client for the collaborator at addr
// (a ws:// or wss:// URL).
func NewClient(addr string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		addr:   addr,
		dialer: websocket.DefaultDialer,
		logger: logger.With("component", "sign"),
	}
}

// request and response are the wire shapes of the signing protocol.
type request struct {
	Event    string `json:"event"`
	Username string `json:"username"`
	Hash     string `json:"hash,omitempty"`
	Version  string `json:"version"`
}

type wireCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type response struct {
	Event    string       `json:"event"`
	URL      string       `json:"url,omitempty"`
	Cookies  []wireCookie `json:"cookies,omitempty"`
	Stickers string       `json:"stickers,omitempty"`
}

// Response events the collaborator may answer with.
const (
	eventLiveData  = "liveData"
	eventErrorLive = "errorLive"
	eventRetry     = "rety"
	eventTimeout   = "timeout"
	eventNoLive    = "nolive"
	eventNoPlugin  = "sin_plugins"
)

// Fetch requests live data for the target. Each collaborator error code
// maps to a distinct structured error; none are retried here.
func (c *Client) Fetch(ctx context.Context, target string) (*Credentials, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.addr, nil)
	if err != nil {
		return nil, errors.New(errors.CodeSignFailure).Wrap(err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)
	}

	req := request{
		Event:    "requestLiveData",
		Username: target,
		Version:  ProtocolVersion,
	}
	c.logger.Info("requesting live data", "target", target)
	if err := conn.WriteJSON(req); err != nil {
		return nil, errors.New(errors.CodeSignFailure).Wrap(err)
	}

	var resp response
	if err := conn.ReadJSON(&resp); err != nil {
		return nil, errors.New(errors.CodeSignTimeout).Wrap(err)
	}

	switch resp.Event {
	case eventLiveData:
		creds := &Credentials{
			SocketURL:  resp.URL,
			StickerURL: resp.Stickers,
		}
		for _, c := range resp.Cookies {
			creds.Cookies = append(creds.Cookies, transport.Cookie{Name: c.Name, Value: c.Value})
		}
		return creds, nil

	case eventErrorLive:
		return nil, errors.New(errors.CodeSignFailure)
	case eventRetry:
		return nil, errors.New(errors.CodeSignRetry)
	case eventTimeout:
		return nil, errors.New(errors.CodeSignTimeout)
	case eventNoLive:
		return nil, errors.New(errors.CodeSignNoLive)
	case eventNoPlugin:
		return nil, errors.New(errors.CodeSignNoPlugin)
	default:
		return nil, errors.New(errors.CodeSignFailure).WithDetail("unexpected event %q", resp.Event)
	}
}

// Stickers asks the collaborator to fetch the sticker metadata behind
// stickerURL with the session cookies, returning the raw JSON document.
func (c *Client) Stickers(ctx context.Context, target, stickerURL string, cookies []transport.Cookie) ([]byte, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.addr, nil)
	if err != nil {
		return nil, errors.New(errors.CodeSignFailure).Wrap(err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)
	}

	wire := make([]wireCookie, 0, len(cookies))
	for _, ck := range cookies {
		wire = append(wire, wireCookie{Name: ck.Name, Value: ck.Value})
	}
	err = conn.WriteJSON(map[string]any{
		"event":    "stickers",
		"user":     target,
		"stickers": stickerURL,
		"cookies":  wire,
	})
	if err != nil {
		return nil, errors.New(errors.CodeSignFailure).Wrap(err)
	}

	_, payload, err := conn.ReadMessage()
	if err != nil {
		return nil, errors.New(errors.CodeSignTimeout).Wrap(err)
	}
	return payload, nil
}
