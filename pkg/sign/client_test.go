package sign

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	werrors "github.com/liverelay/webcast/internal/errors"
)

// newSignServer starts a collaborator stub that answers every request with
// the given handler. The returned address is ready to dial.
func newSignServer(t *testing.T, handle func(t *testing.T, conn *websocket.Conn)) string {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		handle(t, conn)
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestFetchLiveData(t *testing.T) {
	addr := newSignServer(t, func(t *testing.T, conn *websocket.Conn) {
		var req request
		if err := conn.ReadJSON(&req); err != nil {
			t.Errorf("read request: %v", err)
			return
		}
		if req.Event != "requestLiveData" {
			t.Errorf("event = %q, want requestLiveData", req.Event)
		}
		if req.Username != "somecreator" {
			t.Errorf("username = %q, want somecreator", req.Username)
		}
		if req.Version != ProtocolVersion {
			t.Errorf("version = %q, want %q", req.Version, ProtocolVersion)
		}
		_ = conn.WriteJSON(response{
			Event: eventLiveData,
			URL:   "wss://push.example.com/ws?room_id=1",
			Cookies: []wireCookie{
				{Name: "ttwid", Value: "abc"},
				{Name: "odin_tt", Value: "def"},
			},
			Stickers: "https://push.example.com/stickers",
		})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	creds, err := NewClient(addr, nil).Fetch(ctx, "somecreator")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if creds.SocketURL != "wss://push.example.com/ws?room_id=1" {
		t.Errorf("SocketURL = %q", creds.SocketURL)
	}
	if len(creds.Cookies) != 2 || creds.Cookies[0].Name != "ttwid" {
		t.Errorf("Cookies = %+v", creds.Cookies)
	}
	if creds.StickerURL != "https://push.example.com/stickers" {
		t.Errorf("StickerURL = %q", creds.StickerURL)
	}
}

func TestFetchErrorEvents(t *testing.T) {
	cases := []struct {
		event    string
		wantCode string
	}{
		{eventErrorLive, werrors.CodeSignFailure},
		{eventRetry, werrors.CodeSignRetry},
		{eventTimeout, werrors.CodeSignTimeout},
		{eventNoLive, werrors.CodeSignNoLive},
		{eventNoPlugin, werrors.CodeSignNoPlugin},
		{"bogus", werrors.CodeSignFailure},
	}
	for _, tc := range cases {
		t.Run(tc.event, func(t *testing.T) {
			addr := newSignServer(t, func(t *testing.T, conn *websocket.Conn) {
				var req request
				if err := conn.ReadJSON(&req); err != nil {
					return
				}
				_ = conn.WriteJSON(response{Event: tc.event})
			})

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			_, err := NewClient(addr, nil).Fetch(ctx, "someone")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := werrors.CodeOf(err); got != tc.wantCode {
				t.Errorf("code = %q, want %q", got, tc.wantCode)
			}
		})
	}
}

func TestFetchUnreachableCollaborator(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewClient("ws://127.0.0.1:1/sign", nil).Fetch(ctx, "someone")
	if err == nil {
		t.Fatal("expected dial error")
	}
	if got := werrors.CodeOf(err); got != werrors.CodeSignFailure {
		t.Errorf("code = %q, want %q", got, werrors.CodeSignFailure)
	}
}

func TestStickers(t *testing.T) {
	const doc = `{"stickers":[{"emote_id":"1"}]}`

	addr := newSignServer(t, func(t *testing.T, conn *websocket.Conn) {
		var req map[string]any
		if err := conn.ReadJSON(&req); err != nil {
			t.Errorf("read request: %v", err)
			return
		}
		if req["event"] != "stickers" {
			t.Errorf("event = %v, want stickers", req["event"])
		}
		if req["stickers"] != "https://push.example.com/stickers" {
			t.Errorf("stickers = %v", req["stickers"])
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(doc))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	payload, err := NewClient(addr, nil).Stickers(ctx, "someone", "https://push.example.com/stickers", nil)
	if err != nil {
		t.Fatalf("Stickers: %v", err)
	}
	if string(payload) != doc {
		t.Errorf("payload = %q", payload)
	}
}
