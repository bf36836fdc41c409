package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oddsmux/lineledger/internal/domain/game"
	"github.com/oddsmux/lineledger/internal/infrastructure/repository/memory"
)

type resultsHarness struct {
	identity *identityHarness
	states   *memory.LineStateRepository
	archives *memory.ArchiveRepository
	ingest   *IngestService
	svc      *ResultsService
}

func newResultsHarness(now time.Time, games []game.Game) *resultsHarness {
	identity := newIdentityHarness(games)
	snaps := memory.NewSnapshotRepository()
	states := memory.NewLineStateRepository()
	archives := memory.NewArchiveRepository()

	lifecycle := NewLifecycleService(identity.games, snaps, states, LifecycleConfig{})
	lifecycle.now = func() time.Time { return now }
	snapshots := NewSnapshotService(identity.games, snaps, lifecycle)
	archiver := NewArchiveService(identity.games, snaps, states, archives, &seqIDGen{}, ArchiveConfig{})
	archiver.now = func() time.Time { return now }

	return &resultsHarness{
		identity: identity,
		states:   states,
		archives: archives,
		ingest:   NewIngestService(identity.svc, snapshots, IngestConfig{}),
		svc:      NewResultsService(identity.svc, identity.games, lifecycle, archiver),
	}
}

func resultEventFixture(externalID, status string, home, away *int, startsAt time.Time) ResultEvent {
	return ResultEvent{
		Provider:   "statsfeed",
		ExternalID: externalID,
		Sport:      "basketball",
		HomeTeam:   "LA Lakers",
		AwayTeam:   "Boston Celtics",
		StartsAt:   startsAt,
		Status:     status,
		HomeScore:  home,
		AwayScore:  away,
	}
}

func intRef(v int) *int { return &v }

func TestResultsService_Apply(t *testing.T) {
	tip := time.Date(2026, time.January, 15, 19, 30, 0, 0, time.UTC)
	now := tip.Add(3 * time.Hour)

	t.Run("final result locks and archives", func(t *testing.T) {
		h := newResultsHarness(now, []game.Game{lakersCelticsGame("g-1", tip)})
		if _, err := h.ingest.IngestOdds(context.Background(), IngestInput{
			Provider: "oddsfeed",
			Events:   []OddsEvent{oddsEventFixture("ev-1", tip)},
		}); err != nil {
			t.Fatalf("seed odds: %v", err)
		}

		outcome, err := h.svc.Apply(context.Background(), resultEventFixture("res-1", "finished", intRef(112), intRef(104), tip))
		if err != nil {
			t.Fatalf("apply: %v", err)
		}
		if outcome.GameID != "g-1" || outcome.Status != "FINISHED" || !outcome.Archived {
			t.Fatalf("unexpected outcome: %+v", outcome)
		}

		g, _, _ := h.identity.games.GetByID(context.Background(), "g-1")
		if !g.Locked() || !g.HasFinalScore() {
			t.Fatalf("game not finalized: %+v", g)
		}

		records, _ := h.archives.ListByGame(context.Background(), "g-1")
		if len(records) != 2 {
			t.Fatalf("unexpected archived markets: got=%d want=2", len(records))
		}
		states, _ := h.states.ListByGame(context.Background(), "g-1")
		if len(states) != 0 {
			t.Fatalf("live state survived archival: %d rows", len(states))
		}

		// A repeat delivery of the final result is not an error and does not
		// archive twice.
		outcome, err = h.svc.Apply(context.Background(), resultEventFixture("res-1", "finished", intRef(112), intRef(104), tip))
		if err != nil {
			t.Fatalf("apply repeat: %v", err)
		}
		if outcome.Archived {
			t.Fatal("repeat delivery must not report a fresh archive")
		}
	})

	t.Run("in progress only moves status", func(t *testing.T) {
		h := newResultsHarness(now, []game.Game{lakersCelticsGame("g-1", tip)})

		outcome, err := h.svc.Apply(context.Background(), resultEventFixture("res-2", "in_progress", nil, nil, tip))
		if err != nil {
			t.Fatalf("apply: %v", err)
		}
		if outcome.Archived {
			t.Fatal("live update must not archive")
		}

		g, _, _ := h.identity.games.GetByID(context.Background(), "g-1")
		if g.Status != "IN_PROGRESS" {
			t.Fatalf("unexpected status: got=%s", g.Status)
		}
		if g.Locked() {
			t.Fatal("live update must not lock the game")
		}
	})

	t.Run("final without scores rejects", func(t *testing.T) {
		h := newResultsHarness(now, []game.Game{lakersCelticsGame("g-1", tip)})

		_, err := h.svc.Apply(context.Background(), resultEventFixture("res-3", "finished", intRef(112), nil, tip))
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("missing status rejects", func(t *testing.T) {
		h := newResultsHarness(now, []game.Game{lakersCelticsGame("g-1", tip)})

		_, err := h.svc.Apply(context.Background(), resultEventFixture("res-4", "  ", nil, nil, tip))
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("unresolvable event surfaces the identity error", func(t *testing.T) {
		h := newResultsHarness(now, []game.Game{lakersCelticsGame("g-1", tip)})

		event := resultEventFixture("res-5", "finished", intRef(1), intRef(0), tip)
		event.HomeTeam = "Seattle SuperSonics"
		_, err := h.svc.Apply(context.Background(), event)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestResultsService_ApplyBatch(t *testing.T) {
	tip := time.Date(2026, time.January, 15, 19, 30, 0, 0, time.UTC)
	now := tip.Add(3 * time.Hour)
	h := newResultsHarness(now, []game.Game{lakersCelticsGame("g-1", tip)})

	bad := resultEventFixture("res-bad", "finished", intRef(1), intRef(0), tip)
	bad.HomeTeam = "Seattle SuperSonics"

	result, err := h.svc.ApplyBatch(context.Background(), []ResultEvent{
		resultEventFixture("res-1", "in_progress", nil, nil, tip),
		bad,
	})
	if err != nil {
		t.Fatalf("apply batch: %v", err)
	}
	if result.EventCount != 2 || result.AppliedCount != 1 || result.FailedCount != 1 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if result.Events[0].GameID != "g-1" || result.Events[0].Status != "IN_PROGRESS" {
		t.Fatalf("unexpected applied row: %+v", result.Events[0])
	}
	if result.Events[1].Status != "failed" || result.Events[1].Message == "" {
		t.Fatalf("unexpected failed row: %+v", result.Events[1])
	}

	t.Run("requires events", func(t *testing.T) {
		_, err := h.svc.ApplyBatch(context.Background(), nil)
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})
}
