package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/oddsmux/lineledger/internal/domain/archive"
	"github.com/oddsmux/lineledger/internal/domain/linestate"
	"github.com/oddsmux/lineledger/internal/domain/snapshot"
	"github.com/oddsmux/lineledger/internal/domain/unresolved"
	"github.com/oddsmux/lineledger/internal/usecase"
)

type Handler struct {
	identityService  *usecase.IdentityService
	lifecycleService *usecase.LifecycleService
	archiveService   *usecase.ArchiveService
	ingestService    *usecase.IngestService
	resultsService   *usecase.ResultsService
	logger           *slog.Logger
	validator        *validator.Validate
}

func NewHandler(
	identityService *usecase.IdentityService,
	lifecycleService *usecase.LifecycleService,
	archiveService *usecase.ArchiveService,
	ingestService *usecase.IngestService,
	resultsService *usecase.ResultsService,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		identityService:  identityService,
		lifecycleService: lifecycleService,
		archiveService:   archiveService,
		ingestService:    ingestService,
		resultsService:   resultsService,
		logger:           logger,
		validator:        validator.New(),
	}
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) GetGameLine(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetGameLine")
	defer span.End()

	gameID := r.PathValue("gameID")
	market := r.PathValue("market")

	state, err := h.lifecycleService.GetLine(ctx, gameID, market)
	if err != nil {
		h.logger.WarnContext(ctx, "get game line failed", "game_id", gameID, "market", market, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, lineStateToDTO(*state))
}

func (h *Handler) ListGameLines(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListGameLines")
	defer span.End()

	gameID := r.PathValue("gameID")

	states, err := h.lifecycleService.ListLines(ctx, gameID)
	if err != nil {
		h.logger.WarnContext(ctx, "list game lines failed", "game_id", gameID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]lineStateDTO, 0, len(states))
	for _, state := range states {
		items = append(items, lineStateToDTO(state))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) ListGameSnapshots(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListGameSnapshots")
	defer span.End()

	gameID := r.PathValue("gameID")
	market := r.PathValue("market")

	items, err := h.lifecycleService.ListSnapshots(ctx, gameID, market)
	if err != nil {
		h.logger.WarnContext(ctx, "list game snapshots failed", "game_id", gameID, "market", market, "error", err)
		writeError(ctx, w, err)
		return
	}

	limit := parseLimitQuery(r, len(items))
	if len(items) > limit {
		// Most recent window of the series.
		items = items[len(items)-limit:]
	}

	out := make([]snapshotDTO, 0, len(items))
	for _, item := range items {
		out = append(out, snapshotToDTO(item))
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) GetGameHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetGameHistory")
	defer span.End()

	gameID := r.PathValue("gameID")
	market := r.PathValue("market")

	records, err := h.archiveService.History(ctx, gameID, market)
	if err != nil {
		h.logger.WarnContext(ctx, "get game history failed", "game_id", gameID, "market", market, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, historicalRecordToDTO(records[0]))
}

func (h *Handler) ListGameHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListGameHistory")
	defer span.End()

	gameID := r.PathValue("gameID")

	records, err := h.archiveService.History(ctx, gameID, "")
	if err != nil {
		h.logger.WarnContext(ctx, "list game history failed", "game_id", gameID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]historicalRecordDTO, 0, len(records))
	for _, record := range records {
		items = append(items, historicalRecordToDTO(record))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) ListUnresolvedEvents(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListUnresolvedEvents")
	defer span.End()

	limit := parseLimitQuery(r, 100)
	items, err := h.identityService.ListUnresolved(ctx, limit)
	if err != nil {
		h.logger.WarnContext(ctx, "list unresolved events failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]unresolvedEventDTO, 0, len(items))
	for _, item := range items {
		out = append(out, unresolvedEventToDTO(item))
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

func parseLimitQuery(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}

type linePointDTO struct {
	Value      string    `json:"value"`
	PriceHome  int       `json:"price_home"`
	PriceAway  int       `json:"price_away"`
	Bookmaker  string    `json:"bookmaker"`
	ObservedAt time.Time `json:"observed_at"`
}

type lineStateDTO struct {
	GameID         string        `json:"game_id"`
	Market         string        `json:"market"`
	Opening        linePointDTO  `json:"opening"`
	Current        linePointDTO  `json:"current"`
	Closing        *linePointDTO `json:"closing,omitempty"`
	Movement       string        `json:"movement"`
	BookmakerCount int           `json:"bookmaker_count"`
	Locked         bool          `json:"locked"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

type snapshotDTO struct {
	Bookmaker  string    `json:"bookmaker"`
	ObservedAt time.Time `json:"observed_at"`
	Value      string    `json:"value"`
	PriceHome  int       `json:"price_home"`
	PriceAway  int       `json:"price_away"`
}

type historicalRecordDTO struct {
	GameID         string    `json:"game_id"`
	Sport          string    `json:"sport"`
	Market         string    `json:"market"`
	OpeningValue   string    `json:"opening_value"`
	ClosingValue   string    `json:"closing_value"`
	Movement       string    `json:"movement"`
	Outcome        string    `json:"outcome"`
	HomeScore      int       `json:"home_score"`
	AwayScore      int       `json:"away_score"`
	BookmakerCount int       `json:"bookmaker_count"`
	SnapshotCount  int       `json:"snapshot_count"`
	ArchivedAt     time.Time `json:"archived_at"`
}

type unresolvedEventDTO struct {
	ID         string    `json:"id"`
	Provider   string    `json:"provider"`
	ExternalID string    `json:"external_id"`
	Sport      string    `json:"sport"`
	HomeTeam   string    `json:"home_team"`
	AwayTeam   string    `json:"away_team"`
	StartsAt   time.Time `json:"starts_at"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
	Attempts   int       `json:"attempts"`
}

func linePointToDTO(point linestate.Point) linePointDTO {
	return linePointDTO{
		Value:      point.Value.String(),
		PriceHome:  point.PriceHome,
		PriceAway:  point.PriceAway,
		Bookmaker:  point.Bookmaker,
		ObservedAt: point.ObservedAt,
	}
}

func lineStateToDTO(state linestate.LineState) lineStateDTO {
	dto := lineStateDTO{
		GameID:         state.GameID,
		Market:         state.Market,
		Opening:        linePointToDTO(state.Opening),
		Current:        linePointToDTO(state.Current),
		Movement:       state.Movement().String(),
		BookmakerCount: state.BookmakerCount,
		Locked:         state.Locked(),
		UpdatedAt:      state.UpdatedAt,
	}
	if state.Closing != nil {
		closing := linePointToDTO(*state.Closing)
		dto.Closing = &closing
	}
	return dto
}

func snapshotToDTO(item snapshot.Snapshot) snapshotDTO {
	return snapshotDTO{
		Bookmaker:  item.Bookmaker,
		ObservedAt: item.ObservedAt,
		Value:      item.Value.String(),
		PriceHome:  item.PriceHome,
		PriceAway:  item.PriceAway,
	}
}

func historicalRecordToDTO(record archive.HistoricalRecord) historicalRecordDTO {
	return historicalRecordDTO{
		GameID:         record.GameID,
		Sport:          record.Sport,
		Market:         record.Market,
		OpeningValue:   record.OpeningValue.String(),
		ClosingValue:   record.ClosingValue.String(),
		Movement:       record.Movement.String(),
		Outcome:        record.Outcome,
		HomeScore:      record.HomeScore,
		AwayScore:      record.AwayScore,
		BookmakerCount: record.BookmakerCount,
		SnapshotCount:  record.SnapshotCount,
		ArchivedAt:     record.ArchivedAt,
	}
}

func unresolvedEventToDTO(item unresolved.Event) unresolvedEventDTO {
	return unresolvedEventDTO{
		ID:         item.ID,
		Provider:   item.Provider,
		ExternalID: item.ExternalID,
		Sport:      item.Sport,
		HomeTeam:   item.HomeTeam,
		AwayTeam:   item.AwayTeam,
		StartsAt:   item.StartsAt,
		Reason:     item.Reason,
		CreatedAt:  item.CreatedAt,
		Attempts:   item.Attempts,
	}
}
