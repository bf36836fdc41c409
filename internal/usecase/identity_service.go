package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oddsmux/lineledger/internal/domain/game"
	"github.com/oddsmux/lineledger/internal/domain/unresolved"
	"github.com/oddsmux/lineledger/internal/platform/id"
)

// ExternalEvent is a provider-scoped description of a game as seen by an
// odds or results feed.
type ExternalEvent struct {
	Provider   string
	ExternalID string
	Sport      string
	HomeTeam   string
	AwayTeam   string
	StartsAt   time.Time
	Payload    []byte
}

type IdentityConfig struct {
	// StartTolerance bounds how far a feed's start time may drift from the
	// scheduled tip-off and still match the same game.
	StartTolerance time.Duration
	// AmbiguityMargin widens the exact-tie rule: two candidates whose time
	// deltas differ by no more than the margin are treated as ambiguous. The
	// zero default parks exact ties only; the closest candidate always wins
	// otherwise.
	AmbiguityMargin time.Duration
}

func (c IdentityConfig) withDefaults() IdentityConfig {
	if c.StartTolerance <= 0 {
		c.StartTolerance = 12 * time.Hour
	}
	if c.AmbiguityMargin < 0 {
		c.AmbiguityMargin = 0
	}
	return c
}

// IdentityService maps provider events onto canonical games. Successful
// matches are persisted as external refs so the next event from the same
// provider resolves without a candidate search.
type IdentityService struct {
	gameRepo       game.Repository
	unresolvedRepo unresolved.Repository
	idGen          id.Generator
	cfg            IdentityConfig
}

func NewIdentityService(
	gameRepo game.Repository,
	unresolvedRepo unresolved.Repository,
	idGen id.Generator,
	cfg IdentityConfig,
) *IdentityService {
	return &IdentityService{
		gameRepo:       gameRepo,
		unresolvedRepo: unresolvedRepo,
		idGen:          idGen,
		cfg:            cfg.withDefaults(),
	}
}

// Resolve returns the canonical game ID for an external event. A miss parks
// the event in the unresolved queue and returns ErrNotFound; two candidates
// too close to separate park it as ambiguous and return ErrAmbiguousMatch.
func (s *IdentityService) Resolve(ctx context.Context, event ExternalEvent) (string, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IdentityService.Resolve")
	defer span.End()

	if err := validateExternalEvent(event); err != nil {
		return "", err
	}

	known, exists, err := s.gameRepo.GetByExternalID(ctx, event.Provider, event.ExternalID)
	if err != nil {
		return "", fmt.Errorf("get external ref: %w", err)
	}
	if exists {
		return known.ID, nil
	}

	homeID, err := s.resolveTeam(ctx, event.Sport, event.HomeTeam)
	if err != nil {
		return "", err
	}
	awayID, err := s.resolveTeam(ctx, event.Sport, event.AwayTeam)
	if err != nil {
		return "", err
	}
	if homeID == "" || awayID == "" {
		if err := s.park(ctx, event, unresolved.ReasonNoMatch); err != nil {
			return "", err
		}
		return "", fmt.Errorf("%w: no team mapping for %q vs %q", ErrNotFound, event.HomeTeam, event.AwayTeam)
	}

	candidates, err := s.gameRepo.ListByTeamsAround(ctx, event.Sport, homeID, awayID, event.StartsAt, s.cfg.StartTolerance)
	if err != nil {
		return "", fmt.Errorf("list candidate games: %w", err)
	}

	matched, ambiguous := pickClosestCandidate(candidates, event.StartsAt, s.cfg.AmbiguityMargin)
	if ambiguous {
		if err := s.park(ctx, event, unresolved.ReasonAmbiguous); err != nil {
			return "", err
		}
		return "", fmt.Errorf("%w: provider=%s external_id=%s", ErrAmbiguousMatch, event.Provider, event.ExternalID)
	}
	if matched == nil {
		if err := s.park(ctx, event, unresolved.ReasonNoMatch); err != nil {
			return "", err
		}
		return "", fmt.Errorf("%w: no candidate game within %s of %s", ErrNotFound, s.cfg.StartTolerance, event.StartsAt.UTC().Format(time.RFC3339))
	}

	if err := s.gameRepo.SaveExternalRef(ctx, game.ExternalRef{
		Provider:   event.Provider,
		ExternalID: event.ExternalID,
		GameID:     matched.ID,
	}); err != nil {
		return "", fmt.Errorf("save external ref: %w", err)
	}

	return matched.ID, nil
}

// ListUnresolved returns parked events, newest first.
func (s *IdentityService) ListUnresolved(ctx context.Context, limit int) ([]unresolved.Event, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IdentityService.ListUnresolved")
	defer span.End()

	if limit <= 0 {
		limit = 100
	}

	items, err := s.unresolvedRepo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list unresolved events: %w", err)
	}

	return items, nil
}

type ReconcileResult struct {
	Scanned  int `json:"scanned"`
	Resolved int `json:"resolved"`
	Pending  int `json:"pending"`
}

// Reconcile replays the unresolved queue against the current schedule.
// Events that now match are resolved and removed; the rest stay parked with
// a bumped attempt count.
func (s *IdentityService) Reconcile(ctx context.Context, limit int) (ReconcileResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IdentityService.Reconcile")
	defer span.End()

	if limit <= 0 {
		limit = 200
	}

	items, err := s.unresolvedRepo.List(ctx, limit)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("list unresolved events: %w", err)
	}

	result := ReconcileResult{Scanned: len(items)}
	for _, item := range items {
		_, err := s.Resolve(ctx, ExternalEvent{
			Provider:   item.Provider,
			ExternalID: item.ExternalID,
			Sport:      item.Sport,
			HomeTeam:   item.HomeTeam,
			AwayTeam:   item.AwayTeam,
			StartsAt:   item.StartsAt,
			Payload:    item.Payload,
		})
		if err == nil {
			if err := s.unresolvedRepo.Delete(ctx, item.ID); err != nil {
				return result, fmt.Errorf("delete unresolved event: %w", err)
			}
			result.Resolved++
			continue
		}

		result.Pending++
		if err := s.unresolvedRepo.IncrementAttempts(ctx, item.ID); err != nil {
			return result, fmt.Errorf("bump unresolved attempts: %w", err)
		}
	}

	return result, nil
}

func (s *IdentityService) resolveTeam(ctx context.Context, sport, name string) (string, error) {
	key := game.NormalizeTeamKey(name)
	if key == "" {
		return "", fmt.Errorf("%w: team name is required", ErrInvalidInput)
	}

	teamID, found, err := s.gameRepo.ResolveTeamAlias(ctx, sport, key)
	if err != nil {
		return "", fmt.Errorf("resolve team alias: %w", err)
	}
	if !found {
		return "", nil
	}

	return teamID, nil
}

func (s *IdentityService) park(ctx context.Context, event ExternalEvent, reason string) error {
	eventID, err := s.idGen.NewID()
	if err != nil {
		return fmt.Errorf("generate unresolved event id: %w", err)
	}

	if err := s.unresolvedRepo.Insert(ctx, &unresolved.Event{
		ID:         eventID,
		Provider:   event.Provider,
		ExternalID: event.ExternalID,
		Sport:      event.Sport,
		HomeTeam:   event.HomeTeam,
		AwayTeam:   event.AwayTeam,
		StartsAt:   event.StartsAt,
		Reason:     reason,
		Payload:    event.Payload,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("park unresolved event: %w", err)
	}

	return nil
}

// pickClosestCandidate keeps the game whose scheduled time sits nearest the
// feed's start time. Ambiguous only when the two best deltas tie exactly, or
// land within the configured margin of each other.
func pickClosestCandidate(candidates []game.Game, at time.Time, margin time.Duration) (*game.Game, bool) {
	if len(candidates) == 0 {
		return nil, false
	}
	if len(candidates) == 1 {
		return &candidates[0], false
	}

	sorted := make([]game.Game, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return absDuration(sorted[i].ScheduledAt.Sub(at)) < absDuration(sorted[j].ScheduledAt.Sub(at))
	})

	best := absDuration(sorted[0].ScheduledAt.Sub(at))
	second := absDuration(sorted[1].ScheduledAt.Sub(at))
	if second-best <= margin {
		return nil, true
	}

	return &sorted[0], false
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func validateExternalEvent(event ExternalEvent) error {
	if strings.TrimSpace(event.Provider) == "" {
		return fmt.Errorf("%w: provider is required", ErrInvalidInput)
	}
	if strings.TrimSpace(event.ExternalID) == "" {
		return fmt.Errorf("%w: external id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(event.Sport) == "" {
		return fmt.Errorf("%w: sport is required", ErrInvalidInput)
	}
	if event.StartsAt.IsZero() {
		return fmt.Errorf("%w: start time is required", ErrInvalidInput)
	}
	return nil
}
