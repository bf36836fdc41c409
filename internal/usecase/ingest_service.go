package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/shopspring/decimal"

	"github.com/oddsmux/lineledger/internal/domain/snapshot"
)

type OddsLine struct {
	Market     string
	Bookmaker  string
	ObservedAt time.Time
	Value      decimal.Decimal
	PriceHome  int
	PriceAway  int
}

type OddsEvent struct {
	ExternalID string
	Sport      string
	HomeTeam   string
	AwayTeam   string
	StartsAt   time.Time
	Lines      []OddsLine
}

type IngestInput struct {
	Provider   string
	Events     []OddsEvent
	MaxWorkers int
}

type IngestResult struct {
	EventCount     int               `json:"event_count"`
	SuccessCount   int               `json:"success_count"`
	StaleCount     int               `json:"stale_count"`
	UnmatchedCount int               `json:"unmatched_count"`
	AmbiguousCount int               `json:"ambiguous_count"`
	FailedCount    int               `json:"failed_count"`
	WorkerCount    int               `json:"worker_count"`
	Events         []IngestEventRow `json:"events"`
}

type IngestEventRow struct {
	Index      int    `json:"index"`
	ExternalID string `json:"external_id"`
	GameID     string `json:"game_id,omitempty"`
	Status     string `json:"status"`
	Recorded   int    `json:"recorded"`
	Stale      int    `json:"stale"`
	DurationMs int64  `json:"duration_ms"`
	Message    string `json:"message,omitempty"`
}

const (
	ingestStatusSuccess   = "success"
	ingestStatusStale     = "stale"
	ingestStatusUnmatched = "unmatched"
	ingestStatusAmbiguous = "ambiguous"
	ingestStatusFailed    = "failed"

	defaultIngestWorkers = 8
	maxIngestWorkers     = 64
	maxIngestBatchSize   = 500
)

// IngestConfig carries the operator tuning for the ingest worker pool.
type IngestConfig struct {
	// MaxWorkers is the fan-out used when a batch does not request one.
	MaxWorkers int
}

// IngestService fans a provider's odds batch across a worker pool. Each
// event resolves identity then appends its lines; an event's failure is
// reported in its own row and never aborts sibling events.
type IngestService struct {
	resolver  identityResolver
	snapshots *SnapshotService
	cfg       IngestConfig
}

func NewIngestService(resolver identityResolver, snapshots *SnapshotService, cfg IngestConfig) *IngestService {
	return &IngestService{
		resolver:  resolver,
		snapshots: snapshots,
		cfg:       cfg,
	}
}

func (s *IngestService) IngestOdds(ctx context.Context, input IngestInput) (IngestResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestService.IngestOdds")
	defer span.End()

	input.Provider = strings.TrimSpace(input.Provider)
	if input.Provider == "" {
		return IngestResult{}, fmt.Errorf("%w: provider is required", ErrInvalidInput)
	}
	if len(input.Events) == 0 {
		return IngestResult{}, fmt.Errorf("%w: events are required", ErrInvalidInput)
	}
	if len(input.Events) > maxIngestBatchSize {
		return IngestResult{}, fmt.Errorf("%w: batch exceeds %d events", ErrInvalidInput, maxIngestBatchSize)
	}

	requested := input.MaxWorkers
	if requested <= 0 {
		requested = s.cfg.MaxWorkers
	}
	workerCount := normalizeIngestWorkerCount(requested, len(input.Events))
	result := IngestResult{
		EventCount:  len(input.Events),
		WorkerCount: workerCount,
		Events:      make([]IngestEventRow, 0, len(input.Events)),
	}

	rows := make(chan IngestEventRow, len(input.Events))

	var successCount, staleCount, unmatchedCount, ambiguousCount, failedCount atomic.Int32

	workerPool, err := ants.NewPool(workerCount)
	if err != nil {
		return IngestResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer workerPool.Release()

	var workers sync.WaitGroup
	for i, event := range input.Events {
		i, event := i, event
		workers.Add(1)
		if err := workerPool.Submit(func() {
			defer workers.Done()

			start := time.Now()
			row := s.ingestEvent(ctx, input.Provider, i, event)
			row.DurationMs = time.Since(start).Milliseconds()

			switch row.Status {
			case ingestStatusSuccess:
				successCount.Add(1)
			case ingestStatusStale:
				staleCount.Add(1)
			case ingestStatusUnmatched:
				unmatchedCount.Add(1)
			case ingestStatusAmbiguous:
				ambiguousCount.Add(1)
			default:
				failedCount.Add(1)
			}

			rows <- row
		}); err != nil {
			workers.Done()
			return IngestResult{}, fmt.Errorf("submit event to worker pool: %w", err)
		}
	}

	workers.Wait()
	close(rows)

	for row := range rows {
		result.Events = append(result.Events, row)
	}
	sort.SliceStable(result.Events, func(i, j int) bool {
		return result.Events[i].Index < result.Events[j].Index
	})

	result.SuccessCount = int(successCount.Load())
	result.StaleCount = int(staleCount.Load())
	result.UnmatchedCount = int(unmatchedCount.Load())
	result.AmbiguousCount = int(ambiguousCount.Load())
	result.FailedCount = int(failedCount.Load())

	return result, nil
}

func (s *IngestService) ingestEvent(ctx context.Context, provider string, index int, event OddsEvent) IngestEventRow {
	row := IngestEventRow{
		Index:      index,
		ExternalID: event.ExternalID,
	}

	if len(event.Lines) == 0 {
		row.Status = ingestStatusFailed
		row.Message = "event carries no lines"
		return row
	}

	gameID, err := s.resolver.Resolve(ctx, ExternalEvent{
		Provider:   provider,
		ExternalID: event.ExternalID,
		Sport:      event.Sport,
		HomeTeam:   event.HomeTeam,
		AwayTeam:   event.AwayTeam,
		StartsAt:   event.StartsAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrAmbiguousMatch):
			row.Status = ingestStatusAmbiguous
		case errors.Is(err, ErrNotFound):
			row.Status = ingestStatusUnmatched
		default:
			row.Status = ingestStatusFailed
		}
		row.Message = err.Error()
		return row
	}
	row.GameID = gameID

	var firstErr error
	for _, line := range event.Lines {
		outcome, err := s.snapshots.Record(ctx, snapshot.Snapshot{
			GameID:     gameID,
			Market:     line.Market,
			Bookmaker:  line.Bookmaker,
			ObservedAt: line.ObservedAt,
			Value:      line.Value,
			PriceHome:  line.PriceHome,
			PriceAway:  line.PriceAway,
		})
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if outcome.Status == RecordStatusRecorded {
			row.Recorded++
			continue
		}
		row.Stale++
	}

	switch {
	case row.Recorded > 0:
		row.Status = ingestStatusSuccess
	case firstErr != nil:
		row.Status = ingestStatusFailed
		row.Message = firstErr.Error()
	default:
		row.Status = ingestStatusStale
	}
	if firstErr != nil && row.Status == ingestStatusSuccess {
		row.Message = firstErr.Error()
	}

	return row
}

func normalizeIngestWorkerCount(requested, taskCount int) int {
	count := requested
	if count <= 0 {
		count = defaultIngestWorkers
	}
	if count > maxIngestWorkers {
		count = maxIngestWorkers
	}
	if count > taskCount {
		count = taskCount
	}
	if count < 1 {
		count = 1
	}
	return count
}
