package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oddsmux/lineledger/internal/domain/game"
	"github.com/oddsmux/lineledger/internal/domain/unresolved"
	"github.com/oddsmux/lineledger/internal/infrastructure/repository/memory"
)

type identityHarness struct {
	games  *memory.GameRepository
	parked *memory.UnresolvedRepository
	svc    *IdentityService
}

func newIdentityHarness(games []game.Game) *identityHarness {
	h := &identityHarness{
		games:  memory.NewGameRepository(games),
		parked: memory.NewUnresolvedRepository(),
	}
	h.games.RegisterTeamAlias("basketball", "Los Angeles Lakers", "nba-lal")
	h.games.RegisterTeamAlias("basketball", "LA Lakers", "nba-lal")
	h.games.RegisterTeamAlias("basketball", "Boston Celtics", "nba-bos")
	h.svc = NewIdentityService(h.games, h.parked, &seqIDGen{}, IdentityConfig{
		StartTolerance: 12 * time.Hour,
	})
	return h
}

func lakersCelticsGame(id string, scheduledAt time.Time) game.Game {
	return game.Game{
		ID:          id,
		Sport:       "basketball",
		HomeTeamID:  "nba-lal",
		AwayTeamID:  "nba-bos",
		ScheduledAt: scheduledAt,
		Status:      game.StatusScheduled,
	}
}

func lakersCelticsEvent(externalID string, startsAt time.Time) ExternalEvent {
	return ExternalEvent{
		Provider:   "oddsfeed",
		ExternalID: externalID,
		Sport:      "basketball",
		HomeTeam:   "LA Lakers",
		AwayTeam:   "Boston Celtics",
		StartsAt:   startsAt,
	}
}

func TestIdentityService_Resolve(t *testing.T) {
	tip := time.Date(2026, time.January, 15, 19, 30, 0, 0, time.UTC)

	t.Run("matches and persists the external ref", func(t *testing.T) {
		h := newIdentityHarness([]game.Game{lakersCelticsGame("g-1", tip)})

		gameID, err := h.svc.Resolve(context.Background(), lakersCelticsEvent("ev-1", tip.Add(15*time.Minute)))
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if gameID != "g-1" {
			t.Fatalf("unexpected game id: got=%s want=g-1", gameID)
		}

		// The persisted ref short-circuits the candidate search; even garbage
		// team names resolve now.
		repeat := lakersCelticsEvent("ev-1", tip)
		repeat.HomeTeam = "???"
		repeat.AwayTeam = "???"
		gameID, err = h.svc.Resolve(context.Background(), repeat)
		if err != nil {
			t.Fatalf("resolve repeat: %v", err)
		}
		if gameID != "g-1" {
			t.Fatalf("unexpected repeat game id: got=%s want=g-1", gameID)
		}
	})

	t.Run("picks the closest of separated candidates", func(t *testing.T) {
		h := newIdentityHarness([]game.Game{
			lakersCelticsGame("g-early", tip),
			lakersCelticsGame("g-late", tip.Add(6*time.Hour)),
		})

		gameID, err := h.svc.Resolve(context.Background(), lakersCelticsEvent("ev-2", tip.Add(20*time.Minute)))
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if gameID != "g-early" {
			t.Fatalf("unexpected game id: got=%s want=g-early", gameID)
		}
	})

	t.Run("resolves the closer of non-tied near candidates", func(t *testing.T) {
		h := newIdentityHarness([]game.Game{
			lakersCelticsGame("g-exact", tip),
			lakersCelticsGame("g-near", tip.Add(20*time.Minute)),
		})

		// Deltas of 0 and 20m are not a tie; nearness alone must not park it.
		gameID, err := h.svc.Resolve(context.Background(), lakersCelticsEvent("ev-9", tip))
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if gameID != "g-exact" {
			t.Fatalf("unexpected game id: got=%s want=g-exact", gameID)
		}
		if items, _ := h.parked.List(context.Background(), 10); len(items) != 0 {
			t.Fatalf("nothing should be parked: %+v", items)
		}
	})

	t.Run("parks exactly tied candidates", func(t *testing.T) {
		h := newIdentityHarness([]game.Game{
			lakersCelticsGame("g-a", tip),
			lakersCelticsGame("g-b", tip.Add(20*time.Minute)),
		})

		_, err := h.svc.Resolve(context.Background(), lakersCelticsEvent("ev-3", tip.Add(10*time.Minute)))
		if !errors.Is(err, ErrAmbiguousMatch) {
			t.Fatalf("expected ErrAmbiguousMatch, got %v", err)
		}

		items, _ := h.parked.List(context.Background(), 10)
		if len(items) != 1 || items[0].Reason != unresolved.ReasonAmbiguous {
			t.Fatalf("unexpected parked events: %+v", items)
		}
	})

	t.Run("margin widens the tie rule when configured", func(t *testing.T) {
		h := newIdentityHarness([]game.Game{
			lakersCelticsGame("g-exact", tip),
			lakersCelticsGame("g-near", tip.Add(20*time.Minute)),
		})
		h.svc.cfg.AmbiguityMargin = 30 * time.Minute

		_, err := h.svc.Resolve(context.Background(), lakersCelticsEvent("ev-10", tip))
		if !errors.Is(err, ErrAmbiguousMatch) {
			t.Fatalf("expected ErrAmbiguousMatch under 30m margin, got %v", err)
		}
	})

	t.Run("parks unknown team names", func(t *testing.T) {
		h := newIdentityHarness([]game.Game{lakersCelticsGame("g-1", tip)})

		event := lakersCelticsEvent("ev-4", tip)
		event.HomeTeam = "Seattle SuperSonics"
		_, err := h.svc.Resolve(context.Background(), event)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		items, _ := h.parked.List(context.Background(), 10)
		if len(items) != 1 || items[0].Reason != unresolved.ReasonNoMatch {
			t.Fatalf("unexpected parked events: %+v", items)
		}
	})

	t.Run("parks when no candidate inside the window", func(t *testing.T) {
		h := newIdentityHarness([]game.Game{lakersCelticsGame("g-1", tip)})

		_, err := h.svc.Resolve(context.Background(), lakersCelticsEvent("ev-5", tip.Add(20*time.Hour)))
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestIdentityService_Resolve_Validation(t *testing.T) {
	tip := time.Date(2026, time.January, 15, 19, 30, 0, 0, time.UTC)
	h := newIdentityHarness(nil)

	cases := map[string]func(ExternalEvent) ExternalEvent{
		"missing provider": func(e ExternalEvent) ExternalEvent {
			e.Provider = " "
			return e
		},
		"missing external id": func(e ExternalEvent) ExternalEvent {
			e.ExternalID = ""
			return e
		},
		"missing sport": func(e ExternalEvent) ExternalEvent {
			e.Sport = ""
			return e
		},
		"missing start time": func(e ExternalEvent) ExternalEvent {
			e.StartsAt = time.Time{}
			return e
		},
		"missing team name": func(e ExternalEvent) ExternalEvent {
			e.HomeTeam = "??"
			return e
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := h.svc.Resolve(context.Background(), mutate(lakersCelticsEvent("ev-6", tip)))
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestIdentityService_Reconcile(t *testing.T) {
	tip := time.Date(2026, time.January, 15, 19, 30, 0, 0, time.UTC)
	h := newIdentityHarness([]game.Game{lakersCelticsGame("g-1", tip)})

	// Park one event behind a not-yet-registered alias and one that can
	// never match.
	event := lakersCelticsEvent("ev-7", tip)
	event.HomeTeam = "Lakers LA"
	if _, err := h.svc.Resolve(context.Background(), event); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	hopeless := lakersCelticsEvent("ev-8", tip)
	hopeless.HomeTeam = "Seattle SuperSonics"
	if _, err := h.svc.Resolve(context.Background(), hopeless); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// The alias mapping lands later; the next sweep picks the event up.
	h.games.RegisterTeamAlias("basketball", "Lakers LA", "nba-lal")

	result, err := h.svc.Reconcile(context.Background(), 50)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Scanned != 2 || result.Resolved != 1 || result.Pending != 1 {
		t.Fatalf("unexpected reconcile result: %+v", result)
	}

	items, err := h.svc.ListUnresolved(context.Background(), 10)
	if err != nil {
		t.Fatalf("list unresolved: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("unexpected queue length: got=%d want=1", len(items))
	}
	if items[0].ExternalID != "ev-8" || items[0].Attempts != 1 {
		t.Fatalf("unexpected surviving event: %+v", items[0])
	}

	// The resolved ref now answers directly.
	gameID, err := h.svc.Resolve(context.Background(), lakersCelticsEvent("ev-7", tip))
	if err != nil || gameID != "g-1" {
		t.Fatalf("resolve after reconcile: gameID=%s err=%v", gameID, err)
	}
}
