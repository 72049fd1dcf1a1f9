package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/owcfantasy/scoring-api/internal/run"
)

// MaxBodySize limits the size of request bodies to 1MB
const MaxBodySize = 1048576

// runTimeout bounds a detached scoring run.
const runTimeout = 10 * time.Minute

type startRunRequest struct {
	Tournament string  `json:"tournament" validate:"omitempty,min=2,max=64"`
	MatchIDs   []int64 `json:"match_ids" validate:"max=64,dive,gt=0"`
}

// StartRun handles POST /api/v1/runs. The run executes detached from the
// request; the response carries the run id to poll. An empty match list
// is accepted and completes as a zero-effect run.
func (h *Handler) StartRun(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)

	var req startRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "match_ids must hold at most 64 positive match ids")
		return
	}

	runID := run.NewRunID()
	h.logger.Infow("Starting run",
		"run_id", runID,
		"tournament", req.Tournament,
		"matches", len(req.MatchIDs),
	)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		if _, err := h.runs.Run(ctx, runID, req.Tournament, req.MatchIDs); err != nil {
			h.logger.Errorw("Run failed", "run_id", runID, "error", err)
		}
	}()

	h.jsonResponse(w, http.StatusAccepted, map[string]interface{}{
		"run_id":  runID,
		"matches": len(req.MatchIDs),
	})
}

// RunStatus handles GET /api/v1/runs/{run_id}.
func (h *Handler) RunStatus(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")

	fields, err := h.runs.Status(r.Context(), runID)
	if err != nil {
		h.logger.Errorw("Failed to read run status", "run_id", runID, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to read run status")
		return
	}
	if len(fields) == 0 {
		h.errorResponse(w, http.StatusNotFound, "Unknown run id")
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"run_id": runID,
		"status": fields,
	})
}
