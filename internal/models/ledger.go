package models

import "time"

// PlayerStanding is one row of the player leaderboard read model.
type PlayerStanding struct {
	InternalID int64   `json:"id"`
	OsuID      int64   `json:"osu_id"`
	Username   string  `json:"username"`
	Team       string  `json:"team,omitempty"`
	PScore     float64 `json:"p_score"`
	Matches    int     `json:"matches_played"`
	TotalMaps  int     `json:"total_maps_played"`
}

// UserScore is one row of the fantasy leaderboard read model.
type UserScore struct {
	OsuID     int64     `json:"osu_id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Score     int64     `json:"score"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PlayerHistoryRow is one archived per-map score, read back from the
// score archive.
type PlayerHistoryRow struct {
	MatchID    int64     `json:"match_id"`
	MapOrdinal int       `json:"map_ordinal"`
	BeatmapID  int64     `json:"beatmap_id"`
	Difficulty string    `json:"difficulty,omitempty"`
	Score      int64     `json:"score"`
	MaxCombo   int       `json:"max_combo"`
	Rank       string    `json:"rank,omitempty"`
	Team       string    `json:"team,omitempty"`
	PlayedAt   time.Time `json:"played_at"`
}
