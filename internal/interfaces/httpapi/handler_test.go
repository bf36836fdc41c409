package httpapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/oddsmux/lineledger/internal/domain/game"
	"github.com/oddsmux/lineledger/internal/infrastructure/repository/memory"
	"github.com/oddsmux/lineledger/internal/usecase"
)

const testJobToken = "job-secret"

func newTestRouter(t *testing.T, tip time.Time) http.Handler {
	t.Helper()

	games := memory.NewGameRepository([]game.Game{{
		ID:          "g-1",
		Sport:       "basketball",
		HomeTeamID:  "nba-lal",
		AwayTeamID:  "nba-bos",
		ScheduledAt: tip,
		Status:      game.StatusScheduled,
	}})
	games.RegisterTeamAlias("basketball", "LA Lakers", "nba-lal")
	games.RegisterTeamAlias("basketball", "Boston Celtics", "nba-bos")

	snaps := memory.NewSnapshotRepository()
	states := memory.NewLineStateRepository()
	archives := memory.NewArchiveRepository()
	parked := memory.NewUnresolvedRepository()

	identity := usecase.NewIdentityService(games, parked, &stubIDGen{}, usecase.IdentityConfig{})
	lifecycle := usecase.NewLifecycleService(games, snaps, states, usecase.LifecycleConfig{})
	snapshots := usecase.NewSnapshotService(games, snaps, lifecycle)
	archiver := usecase.NewArchiveService(games, snaps, states, archives, &stubIDGen{}, usecase.ArchiveConfig{})
	ingest := usecase.NewIngestService(identity, snapshots, usecase.IngestConfig{})
	results := usecase.NewResultsService(identity, games, lifecycle, archiver)

	logger := slog.New(slog.DiscardHandler)
	handler := NewHandler(identity, lifecycle, archiver, ingest, results, logger)

	return NewRouter(handler, logger, []string{"*"}, testJobToken)
}

type stubIDGen struct{ n int }

func (g *stubIDGen) NewID() (string, error) {
	g.n++
	return fmt.Sprintf("test-id-%d", g.n), nil
}

type testEnvelope struct {
	APIVersion string          `json:"apiVersion"`
	Data       json.RawMessage `json:"data"`
	Error      *struct {
		Code   int    `json:"code"`
		Status string `json:"status"`
		Errors []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

func doRequest(t *testing.T, router http.Handler, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var envelope testEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec, envelope
}

func oddsBatchBody(tip time.Time) string {
	observed := tip.Add(-26 * time.Hour).Format(time.RFC3339)
	return fmt.Sprintf(`{
		"provider": "oddsfeed",
		"events": [
			{
				"external_id": "ev-1",
				"sport": "basketball",
				"home_team": "LA Lakers",
				"away_team": "Boston Celtics",
				"starts_at": %q,
				"lines": [
					{"market": "spreads", "bookmaker": "pinnacle", "observed_at": %q, "value": "-2.5", "price_home": -110, "price_away": -110},
					{"market": "h2h", "bookmaker": "draftkings", "observed_at": %q, "price_home": -145, "price_away": 125}
				]
			}
		]
	}`, tip.Format(time.RFC3339), observed, observed)
}

func TestRouter_Healthz(t *testing.T) {
	tip := time.Date(2026, time.January, 15, 19, 30, 0, 0, time.UTC)
	router := newTestRouter(t, tip)

	rec, envelope := doRequest(t, router, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || envelope.Error != nil {
		t.Fatalf("unexpected response: code=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestRouter_IngestOddsAndReadLines(t *testing.T) {
	tip := time.Date(2026, time.January, 15, 19, 30, 0, 0, time.UTC)
	router := newTestRouter(t, tip)

	rec, envelope := doRequest(t, router, http.MethodPost, "/v1/ingest/odds", oddsBatchBody(tip), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ingest failed: code=%d body=%s", rec.Code, rec.Body.String())
	}

	var result struct {
		EventCount   int `json:"event_count"`
		SuccessCount int `json:"success_count"`
		Events       []struct {
			GameID   string `json:"game_id"`
			Status   string `json:"status"`
			Recorded int    `json:"recorded"`
		} `json:"events"`
	}
	if err := json.Unmarshal(envelope.Data, &result); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if result.EventCount != 1 || result.SuccessCount != 1 {
		t.Fatalf("unexpected ingest result: %+v", result)
	}
	if result.Events[0].GameID != "g-1" || result.Events[0].Recorded != 2 {
		t.Fatalf("unexpected event row: %+v", result.Events[0])
	}

	t.Run("list lines", func(t *testing.T) {
		rec, envelope := doRequest(t, router, http.MethodGet, "/v1/games/g-1/lines", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected status: %d", rec.Code)
		}
		var lines []struct {
			Market string `json:"market"`
			Locked bool   `json:"locked"`
		}
		if err := json.Unmarshal(envelope.Data, &lines); err != nil {
			t.Fatalf("decode data: %v", err)
		}
		if len(lines) != 2 {
			t.Fatalf("unexpected line count: %d", len(lines))
		}
	})

	t.Run("get single market via alias", func(t *testing.T) {
		rec, envelope := doRequest(t, router, http.MethodGet, "/v1/games/g-1/lines/handicap", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
		}
		var line struct {
			Market  string `json:"market"`
			Opening struct {
				Value string `json:"value"`
			} `json:"opening"`
		}
		if err := json.Unmarshal(envelope.Data, &line); err != nil {
			t.Fatalf("decode data: %v", err)
		}
		if line.Market != "spread" || line.Opening.Value != "-2.5" {
			t.Fatalf("unexpected line: %+v", line)
		}
	})

	t.Run("snapshots honor limit", func(t *testing.T) {
		rec, envelope := doRequest(t, router, http.MethodGet, "/v1/games/g-1/snapshots/spread?limit=1", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected status: %d", rec.Code)
		}
		var items []struct {
			Bookmaker string `json:"bookmaker"`
		}
		if err := json.Unmarshal(envelope.Data, &items); err != nil {
			t.Fatalf("decode data: %v", err)
		}
		if len(items) != 1 {
			t.Fatalf("unexpected snapshot count: %d", len(items))
		}
	})

	t.Run("unknown market is a 400", func(t *testing.T) {
		rec, envelope := doRequest(t, router, http.MethodGet, "/v1/games/g-1/lines/first_basket", "", nil)
		if rec.Code != http.StatusBadRequest || envelope.Error == nil {
			t.Fatalf("unexpected response: code=%d", rec.Code)
		}
	})

	t.Run("missing state is a 404", func(t *testing.T) {
		rec, envelope := doRequest(t, router, http.MethodGet, "/v1/games/g-1/lines/total", "", nil)
		if rec.Code != http.StatusNotFound || envelope.Error == nil {
			t.Fatalf("unexpected response: code=%d", rec.Code)
		}
	})
}

func TestRouter_IngestOdds_Validation(t *testing.T) {
	tip := time.Date(2026, time.January, 15, 19, 30, 0, 0, time.UTC)
	router := newTestRouter(t, tip)

	t.Run("empty body", func(t *testing.T) {
		rec, envelope := doRequest(t, router, http.MethodPost, "/v1/ingest/odds", "", nil)
		if rec.Code != http.StatusBadRequest || envelope.Error == nil {
			t.Fatalf("unexpected response: code=%d", rec.Code)
		}
	})

	t.Run("missing provider", func(t *testing.T) {
		body := `{"events": [{"external_id": "x", "sport": "basketball", "home_team": "a", "away_team": "b", "starts_at": "2026-01-15T19:30:00Z", "lines": [{"market": "spreads", "bookmaker": "pinnacle", "observed_at": "2026-01-14T19:30:00Z", "price_home": -110, "price_away": -110}]}]}`
		rec, envelope := doRequest(t, router, http.MethodPost, "/v1/ingest/odds", body, nil)
		if rec.Code != http.StatusBadRequest || envelope.Error == nil {
			t.Fatalf("unexpected response: code=%d body=%s", rec.Code, rec.Body.String())
		}
		if envelope.Error.Errors[0].Reason != "invalidInput" {
			t.Fatalf("unexpected reason: %s", envelope.Error.Errors[0].Reason)
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		rec, _ := doRequest(t, router, http.MethodPost, "/v1/ingest/odds", `{"providerr": "x"}`, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("unexpected status: %d", rec.Code)
		}
	})

	t.Run("bad line value", func(t *testing.T) {
		body := strings.Replace(oddsBatchBody(tip), `"-2.5"`, `"not-a-number"`, 1)
		rec, _ := doRequest(t, router, http.MethodPost, "/v1/ingest/odds", body, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("unexpected status: %d", rec.Code)
		}
	})
}

func TestRouter_ResultsAndHistory(t *testing.T) {
	tip := time.Date(2026, time.January, 15, 19, 30, 0, 0, time.UTC)
	router := newTestRouter(t, tip)

	if rec, _ := doRequest(t, router, http.MethodPost, "/v1/ingest/odds", oddsBatchBody(tip), nil); rec.Code != http.StatusOK {
		t.Fatalf("seed odds: %d", rec.Code)
	}

	resultsBody := fmt.Sprintf(`{
		"provider": "statsfeed",
		"events": [
			{"external_id": "res-1", "sport": "basketball", "home_team": "LA Lakers", "away_team": "Boston Celtics", "starts_at": %q, "status": "finished", "home_score": 112, "away_score": 104}
		]
	}`, tip.Format(time.RFC3339))

	rec, envelope := doRequest(t, router, http.MethodPost, "/v1/ingest/results", resultsBody, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ingest results: code=%d body=%s", rec.Code, rec.Body.String())
	}
	var batch struct {
		AppliedCount int `json:"applied_count"`
		Events       []struct {
			GameID   string `json:"game_id"`
			Archived bool   `json:"archived"`
		} `json:"events"`
	}
	if err := json.Unmarshal(envelope.Data, &batch); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if batch.AppliedCount != 1 || !batch.Events[0].Archived {
		t.Fatalf("unexpected batch: %+v", batch)
	}

	t.Run("history list", func(t *testing.T) {
		rec, envelope := doRequest(t, router, http.MethodGet, "/v1/games/g-1/history", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected status: %d", rec.Code)
		}
		var records []struct {
			Market  string `json:"market"`
			Outcome string `json:"outcome"`
		}
		if err := json.Unmarshal(envelope.Data, &records); err != nil {
			t.Fatalf("decode data: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("unexpected record count: %d", len(records))
		}
	})

	t.Run("history single market", func(t *testing.T) {
		rec, envelope := doRequest(t, router, http.MethodGet, "/v1/games/g-1/history/moneyline", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
		}
		var record struct {
			Outcome   string `json:"outcome"`
			HomeScore int    `json:"home_score"`
		}
		if err := json.Unmarshal(envelope.Data, &record); err != nil {
			t.Fatalf("decode data: %v", err)
		}
		if record.Outcome != "HOME_WIN" || record.HomeScore != 112 {
			t.Fatalf("unexpected record: %+v", record)
		}
	})

	t.Run("live line is gone after archive", func(t *testing.T) {
		rec, _ := doRequest(t, router, http.MethodGet, "/v1/games/g-1/lines/spread", "", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("unexpected status: %d", rec.Code)
		}
	})
}

func TestRouter_InternalJobs(t *testing.T) {
	tip := time.Date(2026, time.January, 15, 19, 30, 0, 0, time.UTC)
	router := newTestRouter(t, tip)

	t.Run("requires token", func(t *testing.T) {
		rec, _ := doRequest(t, router, http.MethodPost, "/v1/internal/jobs/lock-sweep", "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("unexpected status: %d", rec.Code)
		}
	})

	auth := map[string]string{"X-Internal-Job-Token": testJobToken}

	t.Run("lock sweep", func(t *testing.T) {
		rec, envelope := doRequest(t, router, http.MethodPost, "/v1/internal/jobs/lock-sweep", "", auth)
		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
		}
		var result struct {
			Scanned int `json:"scanned"`
			Locked  int `json:"locked"`
		}
		if err := json.Unmarshal(envelope.Data, &result); err != nil {
			t.Fatalf("decode data: %v", err)
		}
		// The seeded game tipped off in the past relative to the sweep clock.
		if result.Scanned != 1 || result.Locked != 1 {
			t.Fatalf("unexpected sweep: %+v", result)
		}
	})

	t.Run("reconcile", func(t *testing.T) {
		rec, envelope := doRequest(t, router, http.MethodPost, "/v1/internal/jobs/reconcile?limit=50", "", auth)
		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected status: %d", rec.Code)
		}
		var result struct {
			Scanned int `json:"scanned"`
		}
		if err := json.Unmarshal(envelope.Data, &result); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	})

	t.Run("archive job on untracked final game", func(t *testing.T) {
		resultsBody := fmt.Sprintf(`{
			"provider": "statsfeed",
			"events": [
				{"external_id": "res-1", "sport": "basketball", "home_team": "LA Lakers", "away_team": "Boston Celtics", "starts_at": %q, "status": "finished", "home_score": 99, "away_score": 95}
			]
		}`, tip.Format(time.RFC3339))
		if rec, _ := doRequest(t, router, http.MethodPost, "/v1/ingest/results", resultsBody, nil); rec.Code != http.StatusOK {
			t.Fatalf("apply result: %d", rec.Code)
		}

		rec, envelope := doRequest(t, router, http.MethodPost, "/v1/internal/jobs/archive/g-1", "", auth)
		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
		}
		var result struct {
			GameID  string `json:"game_id"`
			Records []any  `json:"records"`
		}
		if err := json.Unmarshal(envelope.Data, &result); err != nil {
			t.Fatalf("decode data: %v", err)
		}
		if result.GameID != "g-1" || len(result.Records) != 0 {
			t.Fatalf("unexpected archive response: %+v", result)
		}
	})
}

func TestRouter_UnresolvedEvents(t *testing.T) {
	tip := time.Date(2026, time.January, 15, 19, 30, 0, 0, time.UTC)
	router := newTestRouter(t, tip)

	body := fmt.Sprintf(`{
		"provider": "oddsfeed",
		"events": [
			{
				"external_id": "ev-x",
				"sport": "basketball",
				"home_team": "Seattle SuperSonics",
				"away_team": "Boston Celtics",
				"starts_at": %q,
				"lines": [{"market": "spreads", "bookmaker": "pinnacle", "observed_at": %q, "value": "-2.5", "price_home": -110, "price_away": -110}]
			}
		]
	}`, tip.Format(time.RFC3339), tip.Add(-26*time.Hour).Format(time.RFC3339))
	if rec, _ := doRequest(t, router, http.MethodPost, "/v1/ingest/odds", body, nil); rec.Code != http.StatusOK {
		t.Fatalf("ingest: %d", rec.Code)
	}

	rec, envelope := doRequest(t, router, http.MethodGet, "/v1/identity/unresolved", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var items []struct {
		ExternalID string `json:"external_id"`
		Reason     string `json:"reason"`
	}
	if err := json.Unmarshal(envelope.Data, &items); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(items) != 1 || items[0].ExternalID != "ev-x" || items[0].Reason != "NO_MATCH" {
		t.Fatalf("unexpected unresolved items: %+v", items)
	}
}
