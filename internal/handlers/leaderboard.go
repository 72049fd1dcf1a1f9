package handlers

import "net/http"

const (
	leaderboardDefaultLimit = 25
	leaderboardMaxLimit     = 100
)

// PlayerLeaderboard handles GET /api/v1/leaderboard/players.
func (h *Handler) PlayerLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := limitParam(r, leaderboardDefaultLimit, leaderboardMaxLimit)

	players, err := h.ledger.TopPlayers(r.Context(), limit)
	if err != nil {
		h.logger.Errorw("Failed to load player leaderboard", "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to load leaderboard")
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"players": players,
	})
}

// UserLeaderboard handles GET /api/v1/leaderboard/users.
func (h *Handler) UserLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := limitParam(r, leaderboardDefaultLimit, leaderboardMaxLimit)

	users, err := h.ledger.TopUsers(r.Context(), limit)
	if err != nil {
		h.logger.Errorw("Failed to load user leaderboard", "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to load leaderboard")
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"users": users,
	})
}
