package live

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// StatusOffline is the room status the platform reports once a stream has
// ended. The pre-flight check fails fast on it without opening a socket.
const StatusOffline = 4

const (
	defaultAPIBase     = "https://www.tiktok.com"
	defaultWebcastBase = "https://webcast.tiktok.com"

	statusUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/93.0.4577.63 Safari/537.36"
)

// RoomStatus is the result of the pre-flight live status check.
type RoomStatus struct {
	Status int
	RoomID string
}

// Live reports whether the room is currently streaming.
func (r RoomStatus) Live() bool {
	return r.Status != StatusOffline
}

// Gift is one entry of a room's gift catalog.
type Gift struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	DiamondCount int    `json:"diamond_count"`
	Image        struct {
		URLList []string `json:"url_list"`
	} `json:"image"`
}

// StatusClientConfig configures a StatusClient. Zero values use the
// platform's public endpoints and http.DefaultClient.
type StatusClientConfig struct {
	APIBase     string
	WebcastBase string
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// StatusClient queries room status and the gift catalog over plain HTTP.
type StatusClient struct {
	apiBase     string
	webcastBase string
	client      *http.Client
	logger      *slog.Logger
}

// NewStatusClient creates a status client.
func NewStatusClient(cfg StatusClientConfig) *StatusClient {
	c := &StatusClient{
		apiBase:     cfg.APIBase,
		webcastBase: cfg.WebcastBase,
		client:      cfg.HTTPClient,
		logger:      cfg.Logger,
	}
	if c.apiBase == "" {
		c.apiBase = defaultAPIBase
	}
	if c.webcastBase == "" {
		c.webcastBase = defaultWebcastBase
	}
	if c.client == nil {
		c.client = http.DefaultClient
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "status")
	return c
}

// RoomStatus fetches the live status and room id for a target. The leading
// @ is stripped; the endpoint wants the bare unique id.
func (c *StatusClient) RoomStatus(ctx context.Context, target string) (*RoomStatus, error) {
	uniqueID := strings.TrimPrefix(strings.TrimSpace(target), "@")
	endpoint := fmt.Sprintf("%s/api-live/user/room/?aid=1988&sourceType=54&uniqueId=%s",
		c.apiBase, url.QueryEscape(uniqueID))

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Data struct {
			User struct {
				Status int    `json:"status"`
				RoomID string `json:"roomId"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("room status: %w", err)
	}
	return &RoomStatus{Status: parsed.Data.User.Status, RoomID: parsed.Data.User.RoomID}, nil
}

// GiftList fetches the gift catalog for a room, merging the paged and
// unpaged sections and dropping duplicate gift ids.
func (c *StatusClient) GiftList(ctx context.Context, roomID string) ([]Gift, error) {
	endpoint := fmt.Sprintf("%s/webcast/gift/list/?aid=1988&app_language=en-US&app_name=tiktok_web&room_id=%s",
		c.webcastBase, url.QueryEscape(roomID))

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Data struct {
			Gifts []Gift `json:"gifts"`
			Pages []struct {
				Gifts []Gift `json:"gifts"`
			} `json:"pages"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("gift list: %w", err)
	}

	seen := make(map[int64]struct{})
	var out []Gift
	add := func(gifts []Gift) {
		for _, g := range gifts {
			if _, dup := seen[g.ID]; dup {
				continue
			}
			seen[g.ID] = struct{}{}
			out = append(out, g)
		}
	}
	for _, page := range parsed.Data.Pages {
		add(page.Gifts)
	}
	add(parsed.Data.Gifts)
	return out, nil
}

func (c *StatusClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", statusUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status endpoint: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 8<<20))
}
