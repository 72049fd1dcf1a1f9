package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/owcfantasy/scoring-api/internal/models"
)

const historyDefaultLimit = 50

// Player handles GET /api/v1/players/{osu_id}: the current standing plus
// a slice of recent archived scores, fetched concurrently.
func (h *Handler) Player(w http.ResponseWriter, r *http.Request) {
	osuID, err := strconv.ParseInt(chi.URLParam(r, "osu_id"), 10, 64)
	if err != nil || osuID <= 0 {
		h.errorResponse(w, http.StatusBadRequest, "Invalid osu_id")
		return
	}

	var (
		standing *models.PlayerStanding
		history  []models.PlayerHistoryRow
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		standing, err = h.ledger.PlayerStanding(ctx, osuID)
		return err
	})
	g.Go(func() error {
		if h.history == nil {
			return nil
		}
		rows, err := h.history.PlayerHistory(ctx, h.tournament, osuID, historyDefaultLimit)
		if err != nil {
			// The archive is best effort on the write side too; a cold
			// archive should not hide the standing.
			h.logger.Warnw("Failed to load player history", "osu_id", osuID, "error", err)
			return nil
		}
		history = rows
		return nil
	})

	if err := g.Wait(); err != nil {
		h.logger.Warnw("Failed to load player", "osu_id", osuID, "error", err)
		h.errorResponse(w, http.StatusNotFound, "Player not found")
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"player":  standing,
		"history": history,
	})
}

// PlayerHistory handles GET /api/v1/players/{osu_id}/history.
func (h *Handler) PlayerHistory(w http.ResponseWriter, r *http.Request) {
	osuID, err := strconv.ParseInt(chi.URLParam(r, "osu_id"), 10, 64)
	if err != nil || osuID <= 0 {
		h.errorResponse(w, http.StatusBadRequest, "Invalid osu_id")
		return
	}
	if h.history == nil {
		h.errorResponse(w, http.StatusServiceUnavailable, "History archive unavailable")
		return
	}

	limit := limitParam(r, historyDefaultLimit, 500)
	rows, err := h.history.PlayerHistory(r.Context(), h.tournament, osuID, limit)
	if err != nil {
		h.logger.Errorw("Failed to load player history", "osu_id", osuID, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to load history")
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"osu_id":  osuID,
		"history": rows,
	})
}
