package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRoomStatus(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("uniqueId")
		w.Write([]byte(`{"data":{"user":{"status":2,"roomId":"7123456"}}}`))
	}))
	defer srv.Close()

	c := NewStatusClient(StatusClientConfig{APIBase: srv.URL, HTTPClient: srv.Client()})
	status, err := c.RoomStatus(context.Background(), "@somecreator")
	if err != nil {
		t.Fatalf("RoomStatus: %v", err)
	}
	if gotQuery != "somecreator" {
		t.Errorf("uniqueId query = %q, want the @ stripped", gotQuery)
	}
	if status.Status != 2 || status.RoomID != "7123456" {
		t.Errorf("status = %+v", status)
	}
	if !status.Live() {
		t.Error("status 2 should count as live")
	}
	if (RoomStatus{Status: StatusOffline}).Live() {
		t.Error("status 4 should count as offline")
	}
}

func TestRoomStatusEndpointFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewStatusClient(StatusClientConfig{APIBase: srv.URL, HTTPClient: srv.Client()})
	if _, err := c.RoomStatus(context.Background(), "someone"); err == nil {
		t.Fatal("expected error")
	}
}

func TestGiftListMergesAndDeduplicates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("room_id") != "42" {
			t.Errorf("room_id = %q", r.URL.Query().Get("room_id"))
		}
		w.Write([]byte(`{"data":{
			"pages":[
				{"gifts":[{"id":1,"name":"Rose","diamond_count":1}]},
				{"gifts":[{"id":2,"name":"Heart","diamond_count":5}]}
			],
			"gifts":[
				{"id":1,"name":"Rose","diamond_count":1},
				{"id":3,"name":"Lion","diamond_count":29999}
			]
		}}`))
	}))
	defer srv.Close()

	c := NewStatusClient(StatusClientConfig{WebcastBase: srv.URL, HTTPClient: srv.Client()})
	gifts, err := c.GiftList(context.Background(), "42")
	if err != nil {
		t.Fatalf("GiftList: %v", err)
	}
	if len(gifts) != 3 {
		t.Fatalf("got %d gifts, want 3 after dedupe: %+v", len(gifts), gifts)
	}
	if gifts[0].ID != 1 || gifts[1].ID != 2 || gifts[2].ID != 3 {
		t.Errorf("gift order = %v, %v, %v", gifts[0].ID, gifts[1].ID, gifts[2].ID)
	}
	if gifts[2].DiamondCount != 29999 {
		t.Errorf("Lion diamond_count = %d", gifts[2].DiamondCount)
	}
}
