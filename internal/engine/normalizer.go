// Package engine implements the scoring pipeline core: match-event
// normalization, the p-score formula, the booster rule table and the
// cross-match aggregator. Everything in this package is pure and
// deterministic; all I/O lives in the adapters that feed it.
package engine

import "github.com/owcfantasy/scoring-api/internal/models"

// Normalize converts a raw event list into the ordered map list and the
// per-player match profiles. Events without a game payload are dropped.
// A game with zero score entries still occupies a slot in the map list
// (it counts toward the total-maps denominator) but contributes nothing
// else. Duplicate entries for the same player on one map are not
// deduplicated; the feed guarantees one entry per player per map.
func Normalize(matchID int64, events []models.MatchEvent) *models.NormalizedMatch {
	nm := &models.NormalizedMatch{
		MatchID:  matchID,
		Profiles: make(map[int64]*models.PlayerMatchProfile),
	}

	for i := range events {
		game := events[i].Game
		if game == nil {
			continue
		}

		m := models.Map{
			Ordinal: len(nm.Maps),
			GameID:  game.ID,
			Entries: game.Scores,
		}
		if game.Beatmap != nil {
			m.BeatmapID = game.Beatmap.ID
			m.Difficulty = game.Beatmap.Version
		}
		nm.Maps = append(nm.Maps, m)

		for _, entry := range game.Scores {
			if entry.UserID == 0 {
				continue
			}

			p, ok := nm.Profiles[entry.UserID]
			if !ok {
				p = &models.PlayerMatchProfile{UserID: entry.UserID}
				nm.Profiles[entry.UserID] = p
			}

			p.MapsPlayed++
			p.Scores = append(p.Scores, models.PlayedScore{
				MapOrdinal: m.Ordinal,
				Entry:      entry,
				Difficulty: resolveDifficulty(entry, m),
			})
			// First non-empty team label wins; later observations never override.
			if p.Team == "" && entry.Match.Team != "" {
				p.Team = entry.Match.Team
			}
		}
	}

	return nm
}

// resolveDifficulty prefers the per-score beatmap label, falling back to
// the map's own beatmap when the score omits it.
func resolveDifficulty(entry models.ScoreEntry, m models.Map) string {
	if entry.Beatmap != nil && entry.Beatmap.Version != "" {
		return entry.Beatmap.Version
	}
	return m.Difficulty
}
