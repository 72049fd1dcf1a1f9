// Package ledger is the persistence adapter for scoring state: player
// aggregates are overwritten per run, owner fantasy scores only ever move
// by additive deltas floored at zero. Connection pooling, retries and
// transactions are the pool's business, not the engine's.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/owcfantasy/scoring-api/internal/models"
)

type Ledger struct {
	pg     PgPool
	logger *zap.SugaredLogger
}

func New(pg PgPool, logger *zap.Logger) *Ledger {
	return &Ledger{pg: pg, logger: logger.Sugar()}
}

// ResolvePlayers maps external osu! ids to ledger player rows. Ids with
// no row are simply absent from the result; the caller drops their
// aggregates at the write stage.
func (l *Ledger) ResolvePlayers(ctx context.Context, osuIDs []int64) (map[int64]models.PlayerRef, error) {
	if len(osuIDs) == 0 {
		return map[int64]models.PlayerRef{}, nil
	}

	rows, err := l.pg.Query(ctx, `
		SELECT id, osu_id, username
		FROM players
		WHERE osu_id = ANY($1)
	`, osuIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve players: %w", err)
	}
	defer rows.Close()

	refs := make(map[int64]models.PlayerRef)
	for rows.Next() {
		var ref models.PlayerRef
		if err := rows.Scan(&ref.InternalID, &ref.OsuID, &ref.Username); err != nil {
			return nil, fmt.Errorf("scan player ref: %w", err)
		}
		refs[ref.OsuID] = ref
	}
	return refs, rows.Err()
}

// PlayerRefsByInternalID is the reverse lookup used when expanding a
// roster into external ids for booster evaluation.
func (l *Ledger) PlayerRefsByInternalID(ctx context.Context, internalIDs []int64) (map[int64]models.PlayerRef, error) {
	if len(internalIDs) == 0 {
		return map[int64]models.PlayerRef{}, nil
	}

	rows, err := l.pg.Query(ctx, `
		SELECT id, osu_id, username
		FROM players
		WHERE id = ANY($1)
	`, internalIDs)
	if err != nil {
		return nil, fmt.Errorf("player refs: %w", err)
	}
	defer rows.Close()

	refs := make(map[int64]models.PlayerRef)
	for rows.Next() {
		var ref models.PlayerRef
		if err := rows.Scan(&ref.InternalID, &ref.OsuID, &ref.Username); err != nil {
			return nil, fmt.Errorf("scan player ref: %w", err)
		}
		refs[ref.InternalID] = ref
	}
	return refs, rows.Err()
}

// Teams returns every fantasy team registered for a tournament, with the
// booster assignment parsed out of its JSON column.
func (l *Ledger) Teams(ctx context.Context, tournament string) ([]models.FantasyTeam, error) {
	rows, err := l.pg.Query(ctx, `
		SELECT user_osu_id, player_ids, COALESCE(boosters, '{}'::jsonb)
		FROM fantasy_teams
		WHERE tournament = $1 AND cardinality(player_ids) > 0
	`, tournament)
	if err != nil {
		return nil, fmt.Errorf("load teams: %w", err)
	}
	defer rows.Close()

	var teams []models.FantasyTeam
	for rows.Next() {
		team := models.FantasyTeam{Tournament: tournament}
		var boosterJSON []byte
		if err := rows.Scan(&team.OwnerID, &team.PlayerIDs, &boosterJSON); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		team.Boosters = parseBoosters(boosterJSON, l.logger)
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

// parseBoosters decodes {"<player_id>": <booster_id>} JSON. A malformed
// column logs a warning and behaves as no assignments.
func parseBoosters(raw []byte, logger *zap.SugaredLogger) map[int64]int {
	out := make(map[int64]int)
	if len(raw) == 0 {
		return out
	}
	var byKey map[string]int
	if err := json.Unmarshal(raw, &byKey); err != nil {
		logger.Warnw("Malformed boosters column, ignoring", "error", err)
		return out
	}
	for k, v := range byKey {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil || v == 0 {
			continue
		}
		out[id] = v
	}
	return out
}

// WritePlayerAggregates overwrites each resolved player's p-score,
// match count and map count. Aggregates for osu! ids with no ledger row
// are dropped here (there is no destination), and one row's failure only
// skips that row. Returns how many rows were written.
func (l *Ledger) WritePlayerAggregates(ctx context.Context, refs map[int64]models.PlayerRef, aggs map[int64]models.AggregatedPlayerScore) (int, error) {
	written := 0
	for osuID, agg := range aggs {
		ref, ok := refs[osuID]
		if !ok {
			l.logger.Debugw("No ledger row for player, dropping aggregate", "osu_id", osuID)
			continue
		}

		_, err := l.pg.Exec(ctx, `
			UPDATE players
			SET p_score = $1, matches_played = $2, total_maps_played = $3
			WHERE id = $4
		`, agg.PScore, agg.Matches, agg.TotalMaps, ref.InternalID)
		if err != nil {
			l.logger.Errorw("Failed to write player aggregate",
				"player", ref.Username, "osu_id", osuID, "error", err)
			continue
		}

		written++
		l.logger.Infow("Updated player",
			"player", ref.Username,
			"p_score", agg.PScore,
			"matches", agg.Matches,
			"maps", agg.TotalMaps,
		)
	}
	return written, nil
}

// ApplyOwnerDelta adds a fantasy-score delta to an owner's running total,
// floored at zero. The single UPDATE keeps the read-modify-write atomic
// per row. Returns the new score.
func (l *Ledger) ApplyOwnerDelta(ctx context.Context, ownerID int64, delta int) (int64, error) {
	var newScore int64
	err := l.pg.QueryRow(ctx, `
		UPDATE users
		SET score = GREATEST(0, score + $1), updated_at = NOW()
		WHERE osu_id = $2
		RETURNING score
	`, delta, ownerID).Scan(&newScore)
	if err != nil {
		return 0, fmt.Errorf("apply delta for owner %d: %w", ownerID, err)
	}
	return newScore, nil
}

// TopUsers returns the fantasy leaderboard, highest score first.
func (l *Ledger) TopUsers(ctx context.Context, limit int) ([]models.UserScore, error) {
	rows, err := l.pg.Query(ctx, `
		SELECT osu_id, username, COALESCE(avatar_url, ''), score, updated_at
		FROM users
		ORDER BY score DESC, username ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("top users: %w", err)
	}
	defer rows.Close()

	users := []models.UserScore{}
	for rows.Next() {
		var u models.UserScore
		if err := rows.Scan(&u.OsuID, &u.Username, &u.AvatarURL, &u.Score, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// TopPlayers returns the player leaderboard ordered by p-score.
func (l *Ledger) TopPlayers(ctx context.Context, limit int) ([]models.PlayerStanding, error) {
	rows, err := l.pg.Query(ctx, `
		SELECT id, osu_id, username, COALESCE(team, ''),
		       COALESCE(p_score, 0), COALESCE(matches_played, 0), COALESCE(total_maps_played, 0)
		FROM players
		ORDER BY p_score DESC NULLS LAST, username ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("top players: %w", err)
	}
	defer rows.Close()

	players := []models.PlayerStanding{}
	for rows.Next() {
		var p models.PlayerStanding
		if err := rows.Scan(&p.InternalID, &p.OsuID, &p.Username, &p.Team, &p.PScore, &p.Matches, &p.TotalMaps); err != nil {
			return nil, fmt.Errorf("scan player standing: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// PlayerStanding returns a single player's current aggregate by osu! id.
func (l *Ledger) PlayerStanding(ctx context.Context, osuID int64) (*models.PlayerStanding, error) {
	var p models.PlayerStanding
	err := l.pg.QueryRow(ctx, `
		SELECT id, osu_id, username, COALESCE(team, ''),
		       COALESCE(p_score, 0), COALESCE(matches_played, 0), COALESCE(total_maps_played, 0)
		FROM players
		WHERE osu_id = $1
	`, osuID).Scan(&p.InternalID, &p.OsuID, &p.Username, &p.Team, &p.PScore, &p.Matches, &p.TotalMaps)
	if err != nil {
		return nil, fmt.Errorf("player standing %d: %w", osuID, err)
	}
	return &p, nil
}
