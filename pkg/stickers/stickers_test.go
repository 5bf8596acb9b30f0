package stickers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/liverelay/webcast/pkg/transport"
)

const catalogDoc = `{
  "data": {
    "current_emote_detail": {
      "emote_list": [
        {"emote_id": "e1", "image": {"url_list": ["https://p16-cdn.example.com/e1.webp", "https://other.example.com/e1.webp"]}},
        {"emote_id": "e2", "image": {"url_list": ["https://other.example.com/e2.webp", "https://p16-cdn.example.com/e2.webp"]}}
      ]
    },
    "emote_config": {
      "default_emote_list": [
        {"emote_id": "e1", "image": {"url_list": ["https://p16-cdn.example.com/e1-dup.webp"]}},
        {"emote_id": "e3", "image": {"url_list": ["https://p16-cdn.example.com/e3.webp"]}}
      ]
    },
    "stable_emote_detail": {
      "emote_list": [
        {"emote_id": "e4", "image": {"url_list": ["https://other.example.com/e4.webp"]}}
      ]
    },
    "package_emote_list": [
      {"emote_detail": {"emote_list": [
        {"emote_id": "p1", "image": {"url_list": ["https://p16-cdn.example.com/p1.webp"]}}
      ]}}
    ]
  }
}`

func TestParseCatalog(t *testing.T) {
	got, err := Parse([]byte(catalogDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	// e1 deduplicated, e2 picks the p16 mirror, e4 dropped (no p16 URL),
	// p1 comes from the package source.
	want := []Sticker{
		{EmoteID: "e1", ImageURL: "https://p16-cdn.example.com/e1.webp"},
		{EmoteID: "e2", ImageURL: "https://p16-cdn.example.com/e2.webp"},
		{EmoteID: "e3", ImageURL: "https://p16-cdn.example.com/e3.webp"},
		{EmoteID: "p1", ImageURL: "https://p16-cdn.example.com/p1.webp"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d stickers, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sticker[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseEmptySources(t *testing.T) {
	got, err := Parse([]byte(`{"data": {}}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d stickers, want 0", len(got))
	}
}

func TestParseMalformed(t *testing.T) {
	if _, err := Parse([]byte(`{"data": [`)); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFetchSendsCookies(t *testing.T) {
	var gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("ttwid"); err == nil {
			gotCookie = c.Value
		}
		w.Write([]byte(catalogDoc))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got, err := Fetch(ctx, srv.Client(), srv.URL, []transport.Cookie{{Name: "ttwid", Value: "abc"}})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotCookie != "abc" {
		t.Errorf("ttwid cookie = %q, want abc", gotCookie)
	}
	if len(got) == 0 {
		t.Error("expected stickers")
	}
}

func TestFetchBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := Fetch(ctx, srv.Client(), srv.URL, nil); err == nil {
		t.Fatal("expected status error")
	}
}
