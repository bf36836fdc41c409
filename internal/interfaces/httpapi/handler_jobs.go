package httpapi

import (
	"errors"
	"net/http"

	"github.com/oddsmux/lineledger/internal/usecase"
)

func (h *Handler) RunLockSweepJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunLockSweepJob")
	defer span.End()

	result, err := h.lifecycleService.LockSweep(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "lock sweep job failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	h.logger.InfoContext(ctx, "lock sweep completed", "scanned", result.Scanned, "locked", result.Locked, "failed", len(result.Failed))
	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) RunReconcileJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunReconcileJob")
	defer span.End()

	limit := parseLimitQuery(r, 200)
	result, err := h.identityService.Reconcile(ctx, limit)
	if err != nil {
		h.logger.WarnContext(ctx, "reconcile job failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	h.logger.InfoContext(ctx, "reconcile completed", "scanned", result.Scanned, "resolved", result.Resolved, "pending", result.Pending)
	writeSuccess(ctx, w, http.StatusOK, result)
}

type archiveJobResponse struct {
	GameID          string                `json:"game_id"`
	AlreadyArchived bool                  `json:"already_archived"`
	Records         []historicalRecordDTO `json:"records"`
}

func (h *Handler) RunArchiveJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunArchiveJob")
	defer span.End()

	gameID := r.PathValue("gameID")

	records, err := h.archiveService.Archive(ctx, gameID)
	if err != nil {
		// Replays of the archive job are successes for the caller.
		if errors.Is(err, usecase.ErrAlreadyArchived) {
			writeSuccess(ctx, w, http.StatusOK, archiveJobResponse{
				GameID:          gameID,
				AlreadyArchived: true,
				Records:         []historicalRecordDTO{},
			})
			return
		}
		h.logger.WarnContext(ctx, "archive job failed", "game_id", gameID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]historicalRecordDTO, 0, len(records))
	for _, record := range records {
		items = append(items, historicalRecordToDTO(record))
	}

	writeSuccess(ctx, w, http.StatusOK, archiveJobResponse{
		GameID:  gameID,
		Records: items,
	})
}
