package statsfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/oddsmux/lineledger/internal/platform/logging"
)

func TestFetchResults_MapsFinalAndInProgressEvents(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/results" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"events": [
				{
					"id": "ev-1001",
					"sport": "basketball",
					"home_team": "Los Angeles Lakers",
					"away_team": "Boston Celtics",
					"starts_at": "2026-01-15T19:30:00Z",
					"status": "final",
					"home_score": 112,
					"away_score": 104
				},
				{
					"id": "ev-1002",
					"sport": "basketball",
					"home_team": "Golden State Warriors",
					"away_team": "Phoenix Suns",
					"starts_at": "2026-01-15T22:00:00Z",
					"status": "in_progress"
				}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL:  server.URL,
		Provider: "statspro",
		Logger:   logging.NewNop(),
	})

	events, err := client.FetchResults(context.Background(), "basketball")
	if err != nil {
		t.Fatalf("fetch results: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	final := events[0]
	if final.Provider != "statspro" {
		t.Fatalf("unexpected provider: %s", final.Provider)
	}
	if final.Status != "final" {
		t.Fatalf("unexpected status: %s", final.Status)
	}
	if final.HomeScore == nil || *final.HomeScore != 112 {
		t.Fatalf("unexpected home score: %v", final.HomeScore)
	}
	if final.AwayScore == nil || *final.AwayScore != 104 {
		t.Fatalf("unexpected away score: %v", final.AwayScore)
	}
	if !final.StartsAt.Equal(time.Date(2026, 1, 15, 19, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected starts_at: %s", final.StartsAt)
	}

	live := events[1]
	if live.HomeScore != nil || live.AwayScore != nil {
		t.Fatalf("expected nil scores for in-progress event")
	}
}

func TestFetchResults_SkipsMalformedEvents(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"events": [
				{"id": "", "status": "final", "starts_at": "2026-01-15T19:30:00Z"},
				{"id": "ev-2", "status": "", "starts_at": "2026-01-15T19:30:00Z"},
				{"id": "ev-3", "status": "final", "starts_at": "not-a-time"}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL: server.URL,
		Logger:  logging.NewNop(),
	})

	events, err := client.FetchResults(context.Background(), "basketball")
	if err != nil {
		t.Fatalf("fetch results: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected all malformed events skipped, got %d", len(events))
	}
}
