package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oddsmux/lineledger/internal/domain/game"
	"github.com/oddsmux/lineledger/internal/domain/snapshot"
)

const (
	RecordStatusRecorded  = "recorded"
	RecordStatusStale     = "stale"
	RecordStatusDuplicate = "duplicate"
)

type RecordOutcome struct {
	Status string `json:"status"`
}

// lineDeriver recomputes derived state after a snapshot lands.
type lineDeriver interface {
	Rederive(ctx context.Context, gameID, market string) error
}

// SnapshotService validates and appends odds observations. Observations must
// arrive with strictly increasing observed_at per (game, market, bookmaker);
// anything at or behind the latest stored time is reported stale and dropped
// without touching derived state.
type SnapshotService struct {
	gameRepo     game.Repository
	snapshotRepo snapshot.Repository
	deriver      lineDeriver
}

func NewSnapshotService(gameRepo game.Repository, snapshotRepo snapshot.Repository, deriver lineDeriver) *SnapshotService {
	return &SnapshotService{
		gameRepo:     gameRepo,
		snapshotRepo: snapshotRepo,
		deriver:      deriver,
	}
}

func (s *SnapshotService) Record(ctx context.Context, item snapshot.Snapshot) (RecordOutcome, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SnapshotService.Record")
	defer span.End()

	item.Market = snapshot.NormalizeMarket(item.Market)
	item.Bookmaker = snapshot.NormalizeBookmaker(item.Bookmaker)
	if err := validateSnapshot(item); err != nil {
		return RecordOutcome{}, err
	}

	_, exists, err := s.gameRepo.GetByID(ctx, item.GameID)
	if err != nil {
		return RecordOutcome{}, fmt.Errorf("get game: %w", err)
	}
	if !exists {
		return RecordOutcome{}, fmt.Errorf("%w: game=%s", ErrNotFound, item.GameID)
	}

	latest, err := s.snapshotRepo.LatestObservedAt(ctx, item.GameID, item.Market, item.Bookmaker)
	if err != nil {
		return RecordOutcome{}, fmt.Errorf("get latest observed at: %w", err)
	}
	if !latest.IsZero() && !item.ObservedAt.After(latest) {
		return RecordOutcome{Status: RecordStatusStale}, nil
	}

	inserted, err := s.snapshotRepo.Insert(ctx, item)
	if err != nil {
		return RecordOutcome{}, fmt.Errorf("insert snapshot: %w", err)
	}
	if !inserted {
		return RecordOutcome{Status: RecordStatusDuplicate}, nil
	}

	if err := s.deriver.Rederive(ctx, item.GameID, item.Market); err != nil {
		return RecordOutcome{}, fmt.Errorf("rederive line state: %w", err)
	}

	return RecordOutcome{Status: RecordStatusRecorded}, nil
}

func validateSnapshot(item snapshot.Snapshot) error {
	if strings.TrimSpace(item.GameID) == "" {
		return fmt.Errorf("%w: game id is required", ErrInvalidInput)
	}
	if !snapshot.IsValidMarket(item.Market) {
		return fmt.Errorf("%w: unknown market %q", ErrInvalidInput, item.Market)
	}
	if item.Bookmaker == "" {
		return fmt.Errorf("%w: bookmaker is required", ErrInvalidInput)
	}
	if item.ObservedAt.IsZero() {
		return fmt.Errorf("%w: observed at is required", ErrInvalidInput)
	}
	if item.ObservedAt.After(time.Now().UTC().Add(5 * time.Minute)) {
		return fmt.Errorf("%w: observed at is in the future", ErrInvalidInput)
	}
	if item.PriceHome == 0 || item.PriceAway == 0 {
		return fmt.Errorf("%w: both prices are required", ErrInvalidInput)
	}
	if item.Value.IsNegative() && item.Market == snapshot.MarketTotal {
		return fmt.Errorf("%w: total line cannot be negative", ErrInvalidInput)
	}
	return nil
}
