package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oddsmux/lineledger/internal/domain/game"
)

// ResultEvent is a score/status update from the stats provider.
type ResultEvent struct {
	Provider   string
	ExternalID string
	Sport      string
	HomeTeam   string
	AwayTeam   string
	StartsAt   time.Time
	Status     string
	HomeScore  *int
	AwayScore  *int
}

type identityResolver interface {
	Resolve(ctx context.Context, event ExternalEvent) (string, error)
}

// ResultsService applies provider score updates to canonical games. A
// transition into a final status with scores triggers the archival
// transition for the game; a result landing on an already archived game is
// treated as a repeat delivery, not an error.
type ResultsService struct {
	resolver  identityResolver
	gameRepo  game.Repository
	lifecycle *LifecycleService
	archiver  *ArchiveService
}

func NewResultsService(resolver identityResolver, gameRepo game.Repository, lifecycle *LifecycleService, archiver *ArchiveService) *ResultsService {
	return &ResultsService{
		resolver:  resolver,
		gameRepo:  gameRepo,
		lifecycle: lifecycle,
		archiver:  archiver,
	}
}

type ApplyResultOutcome struct {
	GameID   string `json:"game_id"`
	Status   string `json:"status"`
	Archived bool   `json:"archived"`
}

func (s *ResultsService) Apply(ctx context.Context, event ResultEvent) (ApplyResultOutcome, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ResultsService.Apply")
	defer span.End()

	if strings.TrimSpace(event.Status) == "" {
		return ApplyResultOutcome{}, fmt.Errorf("%w: game status is required", ErrInvalidInput)
	}
	status := game.NormalizeStatus(event.Status)

	gameID, err := s.resolver.Resolve(ctx, ExternalEvent{
		Provider:   event.Provider,
		ExternalID: event.ExternalID,
		Sport:      event.Sport,
		HomeTeam:   event.HomeTeam,
		AwayTeam:   event.AwayTeam,
		StartsAt:   event.StartsAt,
	})
	if err != nil {
		return ApplyResultOutcome{}, err
	}

	if err := s.gameRepo.UpdateStatus(ctx, gameID, status); err != nil {
		return ApplyResultOutcome{}, fmt.Errorf("update game status: %w", err)
	}

	outcome := ApplyResultOutcome{GameID: gameID, Status: status}
	if !game.IsFinalStatus(status) {
		return outcome, nil
	}
	if event.HomeScore == nil || event.AwayScore == nil {
		return ApplyResultOutcome{}, fmt.Errorf("%w: final result requires both scores", ErrInvalidInput)
	}

	if err := s.gameRepo.SetFinalScore(ctx, gameID, *event.HomeScore, *event.AwayScore); err != nil {
		return ApplyResultOutcome{}, fmt.Errorf("set final score: %w", err)
	}

	// A final result on a game the sweep never locked still needs its
	// closing frozen before grading.
	if err := s.lifecycle.LockGame(ctx, gameID); err != nil {
		return ApplyResultOutcome{}, err
	}

	if _, err := s.archiver.Archive(ctx, gameID); err != nil {
		if errors.Is(err, ErrAlreadyArchived) {
			return outcome, nil
		}
		return ApplyResultOutcome{}, err
	}
	outcome.Archived = true

	return outcome, nil
}

type ResultBatchRow struct {
	Index    int    `json:"index"`
	GameID   string `json:"game_id,omitempty"`
	Status   string `json:"status"`
	Archived bool   `json:"archived"`
	Message  string `json:"message,omitempty"`
}

type ResultBatchOutcome struct {
	EventCount   int              `json:"event_count"`
	AppliedCount int              `json:"applied_count"`
	FailedCount  int              `json:"failed_count"`
	Events       []ResultBatchRow `json:"events"`
}

// ApplyBatch processes provider transitions one by one and reports a row per
// event; a bad event never blocks its siblings.
func (s *ResultsService) ApplyBatch(ctx context.Context, events []ResultEvent) (ResultBatchOutcome, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ResultsService.ApplyBatch")
	defer span.End()

	if len(events) == 0 {
		return ResultBatchOutcome{}, fmt.Errorf("%w: events are required", ErrInvalidInput)
	}

	result := ResultBatchOutcome{
		EventCount: len(events),
		Events:     make([]ResultBatchRow, 0, len(events)),
	}
	for i, event := range events {
		row := ResultBatchRow{Index: i}
		outcome, err := s.Apply(ctx, event)
		if err != nil {
			row.Status = "failed"
			row.Message = err.Error()
			result.FailedCount++
		} else {
			row.GameID = outcome.GameID
			row.Status = outcome.Status
			row.Archived = outcome.Archived
			result.AppliedCount++
		}
		result.Events = append(result.Events, row)
	}

	return result, nil
}
