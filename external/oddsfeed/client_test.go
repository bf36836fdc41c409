package oddsfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oddsmux/lineledger/internal/platform/logging"
	"github.com/oddsmux/lineledger/internal/platform/resilience"
)

func TestFetchOdds_MapsEventsAndLines(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v4/odds" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("sport") != "basketball" {
			t.Errorf("unexpected sport query: %s", r.URL.Query().Get("sport"))
		}
		if r.Header.Get("Authorization") != "Bearer odds-token" {
			t.Errorf("unexpected authorization header: %s", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"events": [
				{
					"id": "ev-1001",
					"sport": "Basketball",
					"home_team": "Los Angeles Lakers",
					"away_team": "Boston Celtics",
					"starts_at": "2026-01-15T19:30:00Z",
					"lines": [
						{
							"market": "spread",
							"bookmaker": "pinnacle",
							"observed_at": "2026-01-15T12:00:00Z",
							"value": "-3.5",
							"price_home": -110,
							"price_away": -110
						},
						{
							"market": "moneyline",
							"bookmaker": "draftkings",
							"observed_at": "2026-01-15T12:05:00Z",
							"value": "",
							"price_home": -160,
							"price_away": 140
						}
					]
				},
				{
					"id": "ev-broken",
					"sport": "basketball",
					"home_team": "A",
					"away_team": "B",
					"starts_at": "not-a-time",
					"lines": []
				}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL: server.URL,
		Token:   "odds-token",
		Logger:  logging.NewNop(),
	})

	events, err := client.FetchOdds(context.Background(), "Basketball")
	if err != nil {
		t.Fatalf("fetch odds: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 well-formed event, got %d", len(events))
	}

	event := events[0]
	if event.ExternalID != "ev-1001" {
		t.Fatalf("unexpected external id: %s", event.ExternalID)
	}
	if event.Sport != "basketball" {
		t.Fatalf("expected sport lowered, got %s", event.Sport)
	}
	if !event.StartsAt.Equal(time.Date(2026, 1, 15, 19, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected starts_at: %s", event.StartsAt)
	}
	if len(event.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(event.Lines))
	}
	if event.Lines[0].Value.String() != "-3.5" {
		t.Fatalf("unexpected spread value: %s", event.Lines[0].Value)
	}
	if !event.Lines[1].Value.IsZero() {
		t.Fatalf("expected empty moneyline value to map to zero, got %s", event.Lines[1].Value)
	}
	if event.Lines[1].PriceHome != -160 || event.Lines[1].PriceAway != 140 {
		t.Fatalf("unexpected moneyline prices: %d/%d", event.Lines[1].PriceHome, event.Lines[1].PriceAway)
	}
}

func TestFetchOdds_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"events": []}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL: server.URL,
		Logger:  logging.NewNop(),
		Retry: resilience.RetryConfig{
			MaxAttempts: 2,
			Backoff:     time.Millisecond,
		},
	})

	events, err := client.FetchOdds(context.Background(), "basketball")
	if err != nil {
		t.Fatalf("fetch odds after retry: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected empty batch, got %d events", len(events))
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestFetchOdds_DoesNotRetryClientError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL: server.URL,
		Logger:  logging.NewNop(),
		Retry: resilience.RetryConfig{
			MaxAttempts: 3,
			Backoff:     time.Millisecond,
		},
	})

	if _, err := client.FetchOdds(context.Background(), "basketball"); err == nil {
		t.Fatalf("expected error for 401 response")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt for non-retryable status, got %d", calls.Load())
	}
}
