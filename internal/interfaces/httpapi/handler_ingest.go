package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	"github.com/oddsmux/lineledger/internal/usecase"
)

type oddsLineRequest struct {
	Market     string    `json:"market" validate:"required"`
	Bookmaker  string    `json:"bookmaker" validate:"required"`
	ObservedAt time.Time `json:"observed_at" validate:"required"`
	Value      string    `json:"value"`
	PriceHome  int       `json:"price_home" validate:"required"`
	PriceAway  int       `json:"price_away" validate:"required"`
}

type oddsEventRequest struct {
	ExternalID string            `json:"external_id" validate:"required"`
	Sport      string            `json:"sport" validate:"required"`
	HomeTeam   string            `json:"home_team" validate:"required"`
	AwayTeam   string            `json:"away_team" validate:"required"`
	StartsAt   time.Time         `json:"starts_at" validate:"required"`
	Lines      []oddsLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type ingestOddsRequest struct {
	Provider   string             `json:"provider" validate:"required"`
	MaxWorkers int                `json:"max_workers" validate:"omitempty,min=1,max=64"`
	Events     []oddsEventRequest `json:"events" validate:"required,min=1,max=500,dive"`
}

type resultEventRequest struct {
	ExternalID string    `json:"external_id" validate:"required"`
	Sport      string    `json:"sport" validate:"required"`
	HomeTeam   string    `json:"home_team" validate:"required"`
	AwayTeam   string    `json:"away_team" validate:"required"`
	StartsAt   time.Time `json:"starts_at" validate:"required"`
	Status     string    `json:"status" validate:"required"`
	HomeScore  *int      `json:"home_score"`
	AwayScore  *int      `json:"away_score"`
}

type ingestResultsRequest struct {
	Provider string               `json:"provider" validate:"required"`
	Events   []resultEventRequest `json:"events" validate:"required,min=1,max=500,dive"`
}

func (h *Handler) IngestOdds(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.IngestOdds")
	defer span.End()

	var req ingestOddsRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	input := usecase.IngestInput{
		Provider:   req.Provider,
		MaxWorkers: req.MaxWorkers,
		Events:     make([]usecase.OddsEvent, 0, len(req.Events)),
	}
	for _, event := range req.Events {
		lines := make([]usecase.OddsLine, 0, len(event.Lines))
		for _, line := range event.Lines {
			value, err := parseLineValue(line.Value)
			if err != nil {
				writeError(ctx, w, err)
				return
			}
			lines = append(lines, usecase.OddsLine{
				Market:     line.Market,
				Bookmaker:  line.Bookmaker,
				ObservedAt: line.ObservedAt,
				Value:      value,
				PriceHome:  line.PriceHome,
				PriceAway:  line.PriceAway,
			})
		}
		input.Events = append(input.Events, usecase.OddsEvent{
			ExternalID: event.ExternalID,
			Sport:      event.Sport,
			HomeTeam:   event.HomeTeam,
			AwayTeam:   event.AwayTeam,
			StartsAt:   event.StartsAt,
			Lines:      lines,
		})
	}

	result, err := h.ingestService.IngestOdds(ctx, input)
	if err != nil {
		h.logger.WarnContext(ctx, "ingest odds failed", "provider", req.Provider, "events", len(req.Events), "error", err)
		writeError(ctx, w, err)
		return
	}

	h.logger.InfoContext(ctx, "odds batch processed",
		"provider", req.Provider,
		"events", result.EventCount,
		"success", result.SuccessCount,
		"stale", result.StaleCount,
		"unmatched", result.UnmatchedCount,
		"ambiguous", result.AmbiguousCount,
		"failed", result.FailedCount,
	)
	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) IngestResults(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.IngestResults")
	defer span.End()

	var req ingestResultsRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	events := make([]usecase.ResultEvent, 0, len(req.Events))
	for _, event := range req.Events {
		events = append(events, usecase.ResultEvent{
			Provider:   req.Provider,
			ExternalID: event.ExternalID,
			Sport:      event.Sport,
			HomeTeam:   event.HomeTeam,
			AwayTeam:   event.AwayTeam,
			StartsAt:   event.StartsAt,
			Status:     event.Status,
			HomeScore:  event.HomeScore,
			AwayScore:  event.AwayScore,
		})
	}

	result, err := h.resultsService.ApplyBatch(ctx, events)
	if err != nil {
		h.logger.WarnContext(ctx, "ingest results failed", "provider", req.Provider, "events", len(req.Events), "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func decodeJSONBody(r *http.Request, out any) error {
	decoder := jsoniter.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", usecase.ErrInvalidInput)
		}
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func parseLineValue(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: invalid line value %q", usecase.ErrInvalidInput, raw)
	}
	return value, nil
}
