package models

// Map is one played beatmap within a normalized match, in play order.
// A map with zero score entries stays in the list (it counts toward the
// match's total-maps denominator) but contributes no ratios.
type Map struct {
	Ordinal    int    // 0-based position in the match
	GameID     int64
	BeatmapID  int64
	Difficulty string // beatmap version label, used by the tiebreaker booster
	Entries    []ScoreEntry
}

// PlayedScore is one of a player's results inside a PlayerMatchProfile,
// tagged with the map it was set on.
type PlayedScore struct {
	MapOrdinal int
	Entry      ScoreEntry
	Difficulty string
}

// PlayerMatchProfile is the per-(player, match) view built by the
// normalizer: the player's scores in play order, their map count and the
// first non-empty team label observed.
type PlayerMatchProfile struct {
	UserID     int64
	MapsPlayed int
	Team       string
	Scores     []PlayedScore
}

// NormalizedMatch is the normalizer output for one match.
type NormalizedMatch struct {
	MatchID  int64
	Maps     []Map
	Profiles map[int64]*PlayerMatchProfile
}

// TotalMaps is the total-maps-in-match denominator, including maps with
// no qualifying scores.
func (m *NormalizedMatch) TotalMaps() int {
	return len(m.Maps)
}

// PScoreResult is the calculator output for one (player, match).
type PScoreResult struct {
	PScore     float64
	MapsPlayed int
	TotalMaps  int
}

// BoosterOutcome is the evaluator output for one assigned booster.
type BoosterOutcome struct {
	Activated bool
	Points    int
}

// AggregatedPlayerScore spans all matches in a processing batch.
// PScore is the maps-weighted mean of the per-match p-scores.
type AggregatedPlayerScore struct {
	UserID     int64
	PScore     float64
	Matches    int
	TotalMaps  int
}

// PlayerRef links a player's external osu! id to the ledger row.
type PlayerRef struct {
	InternalID int64
	OsuID      int64
	Username   string
}

// FantasyTeam is one owner's roster for a tournament. Boosters maps an
// internal player id to the assigned booster id; absent or zero means no
// booster for that player.
type FantasyTeam struct {
	OwnerID    int64
	Tournament string
	PlayerIDs  []int64
	Boosters   map[int64]int
}

// OwnerDelta is the additive fantasy-score change computed for one owner
// in a run. Applied to the ledger as score = max(0, score + sum).
type OwnerDelta struct {
	OwnerID       int64
	BoosterPoints int
	BaseDelta     int
}
