package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/owcfantasy/scoring-api/internal/models"
)

// Archive writes per-map scores into ClickHouse so player history
// survives the overwrite semantics of the relational ledger.
type Archive struct {
	conn   driver.Conn
	logger *zap.SugaredLogger
}

func NewArchive(conn driver.Conn, logger *zap.Logger) *Archive {
	return &Archive{conn: conn, logger: logger.Sugar()}
}

// InsertMapScores batches every individual map score of one processed
// match into fantasy_stats.map_scores.
func (a *Archive) InsertMapScores(ctx context.Context, tournament string, nm *models.NormalizedMatch, playedAt time.Time) error {
	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO fantasy_stats.map_scores
		(tournament, match_id, map_ordinal, beatmap_id, difficulty,
		 user_id, score, max_combo, mods, rank, team, played_at)
	`)
	if err != nil {
		return fmt.Errorf("prepare map_scores batch: %w", err)
	}

	rows := 0
	for _, m := range nm.Maps {
		for _, e := range m.Entries {
			if e.UserID == 0 {
				continue
			}
			team := ""
			if p, ok := nm.Profiles[e.UserID]; ok {
				team = p.Team
			}
			if err := batch.Append(
				tournament,
				nm.MatchID,
				int32(m.Ordinal),
				m.BeatmapID,
				m.Difficulty,
				e.UserID,
				e.Score,
				int32(e.MaxCombo),
				e.Mods,
				e.Rank,
				team,
				playedAt,
			); err != nil {
				return fmt.Errorf("append map score: %w", err)
			}
			rows++
		}
	}

	if rows == 0 {
		return batch.Abort()
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send map_scores batch: %w", err)
	}

	a.logger.Infow("Archived map scores",
		"match_id", nm.MatchID,
		"rows", rows,
	)
	return nil
}

// PlayerHistory reads back one player's archived scores for a
// tournament, newest match first.
func (a *Archive) PlayerHistory(ctx context.Context, tournament string, userID int64, limit int) ([]models.PlayerHistoryRow, error) {
	rows, err := a.conn.Query(ctx, `
		SELECT match_id, map_ordinal, beatmap_id, difficulty,
		       score, max_combo, rank, team, played_at
		FROM fantasy_stats.map_scores
		WHERE tournament = ? AND user_id = ?
		ORDER BY played_at DESC, match_id DESC, map_ordinal ASC
		LIMIT ?
	`, tournament, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("player history: %w", err)
	}
	defer rows.Close()

	history := []models.PlayerHistoryRow{}
	for rows.Next() {
		var (
			h          models.PlayerHistoryRow
			mapOrdinal int32
			maxCombo   int32
		)
		if err := rows.Scan(&h.MatchID, &mapOrdinal, &h.BeatmapID, &h.Difficulty,
			&h.Score, &maxCombo, &h.Rank, &h.Team, &h.PlayedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		h.MapOrdinal = int(mapOrdinal)
		h.MaxCombo = int(maxCombo)
		history = append(history, h)
	}
	return history, rows.Err()
}
