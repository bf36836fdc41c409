package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/oddsmux/lineledger/internal/domain/game"
	"github.com/oddsmux/lineledger/internal/domain/linestate"
	"github.com/oddsmux/lineledger/internal/domain/snapshot"
)

type LifecycleConfig struct {
	// BookmakerPriority orders books from most to least trusted when picking
	// the current line. Books not listed rank below all listed ones.
	BookmakerPriority []string
	// StalenessThreshold is how old a book's latest snapshot may be before
	// the current-line selection falls through to the next book.
	StalenessThreshold time.Duration
	// LockSweepWorkers caps the fan-out when locking games in bulk.
	LockSweepWorkers int
}

func (c LifecycleConfig) withDefaults() LifecycleConfig {
	if c.StalenessThreshold <= 0 {
		c.StalenessThreshold = 6 * time.Hour
	}
	if c.LockSweepWorkers <= 0 {
		c.LockSweepWorkers = 8
	}
	return c
}

// LifecycleService derives opening/current/closing line state from the
// snapshot log. Derivation is a pure function of the stored snapshots, so
// replaying the same snapshots in any order converges to the same state.
type LifecycleService struct {
	gameRepo     game.Repository
	snapshotRepo snapshot.Repository
	stateRepo    linestate.Repository
	cfg          LifecycleConfig
	bookRank     map[string]int
	now          func() time.Time
}

func NewLifecycleService(
	gameRepo game.Repository,
	snapshotRepo snapshot.Repository,
	stateRepo linestate.Repository,
	cfg LifecycleConfig,
) *LifecycleService {
	cfg = cfg.withDefaults()
	rank := make(map[string]int, len(cfg.BookmakerPriority))
	for i, book := range cfg.BookmakerPriority {
		rank[snapshot.NormalizeBookmaker(book)] = i
	}

	return &LifecycleService{
		gameRepo:     gameRepo,
		snapshotRepo: snapshotRepo,
		stateRepo:    stateRepo,
		cfg:          cfg,
		bookRank:     rank,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Rederive recomputes the line state for one (game, market) from scratch.
// An existing closing point survives the recompute untouched.
func (s *LifecycleService) Rederive(ctx context.Context, gameID, market string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.LifecycleService.Rederive")
	defer span.End()

	items, err := s.snapshotRepo.ListByGameMarket(ctx, gameID, market)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	state := s.derive(gameID, market, items)
	if err := s.stateRepo.Upsert(ctx, state); err != nil {
		return fmt.Errorf("upsert line state: %w", err)
	}

	return nil
}

// GetLine returns the derived state for one market of a game.
func (s *LifecycleService) GetLine(ctx context.Context, gameID, market string) (*linestate.LineState, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LifecycleService.GetLine")
	defer span.End()

	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return nil, fmt.Errorf("%w: game id is required", ErrInvalidInput)
	}
	market = snapshot.NormalizeMarket(market)
	if !snapshot.IsValidMarket(market) {
		return nil, fmt.Errorf("%w: unknown market %q", ErrInvalidInput, market)
	}

	state, err := s.stateRepo.Get(ctx, gameID, market)
	if err != nil {
		return nil, fmt.Errorf("get line state: %w", err)
	}
	if state == nil {
		return nil, fmt.Errorf("%w: no line state for game=%s market=%s", ErrNotFound, gameID, market)
	}

	return state, nil
}

// ListLines returns every derived market for a game.
func (s *LifecycleService) ListLines(ctx context.Context, gameID string) ([]linestate.LineState, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LifecycleService.ListLines")
	defer span.End()

	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return nil, fmt.Errorf("%w: game id is required", ErrInvalidInput)
	}

	items, err := s.stateRepo.ListByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("list line states: %w", err)
	}

	return items, nil
}

// ListSnapshots exposes the raw snapshot log for one market, oldest first.
func (s *LifecycleService) ListSnapshots(ctx context.Context, gameID, market string) ([]snapshot.Snapshot, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LifecycleService.ListSnapshots")
	defer span.End()

	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return nil, fmt.Errorf("%w: game id is required", ErrInvalidInput)
	}
	market = snapshot.NormalizeMarket(market)
	if !snapshot.IsValidMarket(market) {
		return nil, fmt.Errorf("%w: unknown market %q", ErrInvalidInput, market)
	}

	items, err := s.snapshotRepo.ListByGameMarket(ctx, gameID, market)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].ObservedAt.Before(items[j].ObservedAt)
	})

	return items, nil
}

// LockGame freezes the closing point for every market of the game and stamps
// the locked-at time. Locking an already locked game is a no-op.
func (s *LifecycleService) LockGame(ctx context.Context, gameID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.LifecycleService.LockGame")
	defer span.End()

	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return fmt.Errorf("%w: game id is required", ErrInvalidInput)
	}

	item, exists, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return fmt.Errorf("get game: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: game=%s", ErrNotFound, gameID)
	}
	if item.Locked() {
		return nil
	}

	if err := s.stateRepo.Freeze(ctx, gameID); err != nil {
		return fmt.Errorf("freeze line states: %w", err)
	}
	if err := s.gameRepo.SetLockedAt(ctx, gameID, s.now()); err != nil {
		return fmt.Errorf("set locked at: %w", err)
	}

	return nil
}

type LockSweepResult struct {
	Scanned int      `json:"scanned"`
	Locked  int      `json:"locked"`
	Failed  []string `json:"failed,omitempty"`
}

// LockSweep locks every game whose scheduled start has passed. Failures are
// collected per game so one bad row cannot stall the sweep.
func (s *LifecycleService) LockSweep(ctx context.Context) (LockSweepResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LifecycleService.LockSweep")
	defer span.End()

	due, err := s.gameRepo.ListLockable(ctx, s.now())
	if err != nil {
		return LockSweepResult{}, fmt.Errorf("list lockable games: %w", err)
	}

	result := LockSweepResult{Scanned: len(due)}
	if len(due) == 0 {
		return result, nil
	}

	type sweepOutcome struct {
		gameID string
		err    error
	}

	outcomes := make([]sweepOutcome, len(due))
	workers := pool.New().WithMaxGoroutines(s.cfg.LockSweepWorkers)
	for i, item := range due {
		i, item := i, item
		workers.Go(func() {
			outcomes[i] = sweepOutcome{gameID: item.ID, err: s.LockGame(ctx, item.ID)}
		})
	}
	workers.Wait()

	for _, outcome := range outcomes {
		if outcome.err != nil {
			result.Failed = append(result.Failed, outcome.gameID)
			continue
		}
		result.Locked++
	}

	return result, nil
}

func (s *LifecycleService) derive(gameID, market string, items []snapshot.Snapshot) *linestate.LineState {
	sorted := make([]snapshot.Snapshot, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].ObservedAt.Equal(sorted[j].ObservedAt) {
			return sorted[i].ObservedAt.Before(sorted[j].ObservedAt)
		}
		ri, rj := s.rankOf(sorted[i].Bookmaker), s.rankOf(sorted[j].Bookmaker)
		if ri != rj {
			return ri < rj
		}
		return sorted[i].Bookmaker < sorted[j].Bookmaker
	})

	books := make(map[string]struct{}, 4)
	latestByBook := make(map[string]snapshot.Snapshot, 4)
	for _, item := range sorted {
		books[item.Bookmaker] = struct{}{}
		prev, ok := latestByBook[item.Bookmaker]
		if !ok || item.ObservedAt.After(prev.ObservedAt) {
			latestByBook[item.Bookmaker] = item
		}
	}

	return &linestate.LineState{
		GameID:         gameID,
		Market:         market,
		Opening:        toPoint(sorted[0]),
		Current:        toPoint(s.pickCurrent(sorted, latestByBook)),
		BookmakerCount: len(books),
		UpdatedAt:      s.now(),
	}
}

// pickCurrent walks books in rank order and takes the latest snapshot from
// the best-ranked book that is still fresh. When every book has gone quiet
// longer than the threshold, the newest snapshot overall wins.
func (s *LifecycleService) pickCurrent(sorted []snapshot.Snapshot, latestByBook map[string]snapshot.Snapshot) snapshot.Snapshot {
	cutoff := s.now().Add(-s.cfg.StalenessThreshold)

	books := make([]string, 0, len(latestByBook))
	for book := range latestByBook {
		books = append(books, book)
	}
	sort.SliceStable(books, func(i, j int) bool {
		ri, rj := s.rankOf(books[i]), s.rankOf(books[j])
		if ri != rj {
			return ri < rj
		}
		return books[i] < books[j]
	})

	for _, book := range books {
		latest := latestByBook[book]
		if !latest.ObservedAt.Before(cutoff) {
			return latest
		}
	}

	return sorted[len(sorted)-1]
}

func (s *LifecycleService) rankOf(bookmaker string) int {
	if rank, ok := s.bookRank[bookmaker]; ok {
		return rank
	}
	return len(s.bookRank)
}

func toPoint(item snapshot.Snapshot) linestate.Point {
	return linestate.Point{
		Value:      item.Value,
		PriceHome:  item.PriceHome,
		PriceAway:  item.PriceAway,
		Bookmaker:  item.Bookmaker,
		ObservedAt: item.ObservedAt,
	}
}
