package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"

	"github.com/oddsmux/lineledger/internal/domain/archive"
	"github.com/oddsmux/lineledger/internal/domain/game"
	"github.com/oddsmux/lineledger/internal/domain/linestate"
	"github.com/oddsmux/lineledger/internal/domain/snapshot"
	"github.com/oddsmux/lineledger/internal/platform/id"
)

type ArchiveConfig struct {
	// MarketWorkers caps the fan-out when grading a game's markets.
	MarketWorkers int
}

func (c ArchiveConfig) withDefaults() ArchiveConfig {
	if c.MarketWorkers <= 0 {
		c.MarketWorkers = 4
	}
	return c
}

// ArchiveService moves finished games out of live tracking. Each market that
// produced snapshots becomes one immutable historical record annotated with
// the graded outcome; live state rows are removed afterwards.
type ArchiveService struct {
	gameRepo     game.Repository
	snapshotRepo snapshot.Repository
	stateRepo    linestate.Repository
	archiveRepo  archive.Repository
	idGen        id.Generator
	cfg          ArchiveConfig
	now          func() time.Time
}

func NewArchiveService(
	gameRepo game.Repository,
	snapshotRepo snapshot.Repository,
	stateRepo linestate.Repository,
	archiveRepo archive.Repository,
	idGen id.Generator,
	cfg ArchiveConfig,
) *ArchiveService {
	return &ArchiveService{
		gameRepo:     gameRepo,
		snapshotRepo: snapshotRepo,
		stateRepo:    stateRepo,
		archiveRepo:  archiveRepo,
		idGen:        idGen,
		cfg:          cfg.withDefaults(),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Archive grades and stores every snapshotted market of a final game, then
// drops the live state rows. Re-invoking after a successful archive returns
// ErrAlreadyArchived without writing anything. A market that produced
// snapshots but never froze a closing line fails the whole transition with
// ErrIncompleteLifecycle so feed coverage gaps surface instead of vanishing.
func (s *ArchiveService) Archive(ctx context.Context, gameID string) ([]archive.HistoricalRecord, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ArchiveService.Archive")
	defer span.End()

	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return nil, fmt.Errorf("%w: game id is required", ErrInvalidInput)
	}

	item, exists, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("get game: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: game=%s", ErrNotFound, gameID)
	}
	if !game.IsFinalStatus(item.Status) || !item.HasFinalScore() {
		return nil, fmt.Errorf("%w: game=%s is not final with scores", ErrInvalidInput, gameID)
	}

	archived, err := s.archiveRepo.ExistsForGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("check existing archive: %w", err)
	}
	if archived {
		return nil, fmt.Errorf("%w: game=%s", ErrAlreadyArchived, gameID)
	}

	markets, err := s.snapshotRepo.ListMarketsByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("list snapshotted markets: %w", err)
	}
	if len(markets) == 0 {
		// Never tracked; nothing to grade.
		return nil, nil
	}
	sort.Strings(markets)

	outcomes := make([]marketGrade, len(markets))
	workers := pool.New().WithMaxGoroutines(s.cfg.MarketWorkers)
	for i, market := range markets {
		i, market := i, market
		workers.Go(func() {
			outcomes[i] = s.gradeMarket(ctx, item, market)
		})
	}
	workers.Wait()

	var incomplete []string
	records := make([]archive.HistoricalRecord, 0, len(markets))
	for i, outcome := range outcomes {
		if outcome.err != nil {
			return nil, outcome.err
		}
		if outcome.incomplete {
			incomplete = append(incomplete, markets[i])
			continue
		}
		records = append(records, outcome.record)
	}
	if len(incomplete) > 0 {
		return nil, fmt.Errorf("%w: game=%s markets=%s have snapshots but no frozen closing line",
			ErrIncompleteLifecycle, gameID, strings.Join(incomplete, ","))
	}

	if err := s.archiveRepo.InsertBatch(ctx, records); err != nil {
		return nil, fmt.Errorf("insert historical records: %w", err)
	}
	if err := s.stateRepo.DeleteByGame(ctx, gameID); err != nil {
		return nil, fmt.Errorf("delete live line states: %w", err)
	}

	return records, nil
}

// History returns the archived records for a game, optionally narrowed to
// one market.
func (s *ArchiveService) History(ctx context.Context, gameID, market string) ([]archive.HistoricalRecord, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ArchiveService.History")
	defer span.End()

	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return nil, fmt.Errorf("%w: game id is required", ErrInvalidInput)
	}

	if market != "" {
		market = snapshot.NormalizeMarket(market)
		if !snapshot.IsValidMarket(market) {
			return nil, fmt.Errorf("%w: unknown market %q", ErrInvalidInput, market)
		}
		record, err := s.archiveRepo.GetByGameMarket(ctx, gameID, market)
		if err != nil {
			return nil, fmt.Errorf("get historical record: %w", err)
		}
		if record == nil {
			return nil, fmt.Errorf("%w: no history for game=%s market=%s", ErrNotFound, gameID, market)
		}
		return []archive.HistoricalRecord{*record}, nil
	}

	items, err := s.archiveRepo.ListByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("list historical records: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no history for game=%s", ErrNotFound, gameID)
	}

	return items, nil
}

type marketGrade struct {
	record     archive.HistoricalRecord
	incomplete bool
	err        error
}

func (s *ArchiveService) gradeMarket(ctx context.Context, item game.Game, market string) (out marketGrade) {
	state, err := s.stateRepo.Get(ctx, item.ID, market)
	if err != nil {
		out.err = fmt.Errorf("get line state: %w", err)
		return out
	}
	if state == nil || !state.Locked() {
		out.incomplete = true
		return out
	}

	count, err := s.snapshotRepo.CountByGameMarket(ctx, item.ID, market)
	if err != nil {
		out.err = fmt.Errorf("count snapshots: %w", err)
		return out
	}

	recordID, err := s.idGen.NewID()
	if err != nil {
		out.err = fmt.Errorf("generate record id: %w", err)
		return out
	}

	closing := state.Closing
	out.record = archive.HistoricalRecord{
		ID:             recordID,
		GameID:         item.ID,
		Sport:          item.Sport,
		Market:         market,
		OpeningValue:   state.Opening.Value,
		ClosingValue:   closing.Value,
		Movement:       closing.Value.Sub(state.Opening.Value),
		Outcome:        gradeOutcomeFor(market, closing.Value, *item.HomeScore, *item.AwayScore),
		HomeScore:      *item.HomeScore,
		AwayScore:      *item.AwayScore,
		BookmakerCount: state.BookmakerCount,
		SnapshotCount:  count,
		ArchivedAt:     s.now(),
	}
	return out
}

// gradeOutcomeFor applies the closing line to the final score. The spread
// value is the home handicap: home covers when home_score plus the spread
// beats the away score, with exact equality graded as a push rather than a
// miss. Totals compare the combined score against the closing number the
// same way.
func gradeOutcomeFor(market string, closing decimal.Decimal, homeScore, awayScore int) string {
	home := decimal.NewFromInt(int64(homeScore))
	away := decimal.NewFromInt(int64(awayScore))

	switch market {
	case snapshot.MarketSpread:
		adjusted := home.Add(closing)
		switch adjusted.Cmp(away) {
		case 1:
			return archive.OutcomeHomeCovered
		case -1:
			return archive.OutcomeAwayCovered
		default:
			return archive.OutcomePush
		}
	case snapshot.MarketTotal:
		combined := home.Add(away)
		switch combined.Cmp(closing) {
		case 1:
			return archive.OutcomeWentOver
		case -1:
			return archive.OutcomeWentUnder
		default:
			return archive.OutcomePush
		}
	case snapshot.MarketMoneyline:
		switch {
		case homeScore > awayScore:
			return archive.OutcomeHomeWin
		case awayScore > homeScore:
			return archive.OutcomeAwayWin
		default:
			return archive.OutcomePush
		}
	default:
		return archive.OutcomeUngraded
	}
}
