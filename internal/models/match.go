package models

import "time"

// MatchData is the fully-assembled payload for one tournament match as
// returned by the osu! API, after pagination has been resolved by the
// match source adapter.
type MatchData struct {
	Match  MatchInfo    `json:"match"`
	Events []MatchEvent `json:"events"`
}

type MatchInfo struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// MatchEvent is one unit of the raw match feed. Events carrying a Game are
// played maps; everything else (joins, leaves, host changes) is inert and
// ignored by the normalizer.
type MatchEvent struct {
	ID        int64       `json:"id"`
	Timestamp *time.Time  `json:"timestamp,omitempty"`
	Detail    EventDetail `json:"detail"`
	Game      *Game       `json:"game,omitempty"`
}

type EventDetail struct {
	Type string `json:"type"`
}

// IsGame reports whether the event carries a played map.
func (e *MatchEvent) IsGame() bool {
	return e.Game != nil
}

// Game is one beatmap instance played within a match.
type Game struct {
	ID      int64        `json:"id"`
	Mode    string       `json:"mode,omitempty"`
	Beatmap *Beatmap     `json:"beatmap,omitempty"`
	Scores  []ScoreEntry `json:"scores"`
}

type Beatmap struct {
	ID         int64       `json:"id"`
	Version    string      `json:"version"`
	Beatmapset *Beatmapset `json:"beatmapset,omitempty"`
}

type Beatmapset struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
}

// ScoreEntry is one player's result on one map. Optional fields may be
// absent in the feed and unmarshal to their zero values.
type ScoreEntry struct {
	UserID   int64          `json:"user_id"`
	Score    int64          `json:"score"`
	MaxCombo int            `json:"max_combo"`
	Mods     []string       `json:"mods,omitempty"`
	Rank     string         `json:"rank,omitempty"`
	Accuracy float64        `json:"accuracy,omitempty"`
	Passed   bool           `json:"passed,omitempty"`
	Match    ScoreMatchInfo `json:"match"`
	Beatmap  *Beatmap       `json:"beatmap,omitempty"`
}

// ScoreMatchInfo carries the per-score lobby context (team slot).
type ScoreMatchInfo struct {
	Slot int    `json:"slot"`
	Team string `json:"team,omitempty"`
	Pass bool   `json:"pass,omitempty"`
}
