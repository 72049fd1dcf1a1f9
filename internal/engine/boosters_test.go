package engine

import (
	"testing"

	"github.com/owcfantasy/scoring-api/internal/models"
)

func rankedEntry(userID, score int64, combo int, mods []string, rank, team string) models.ScoreEntry {
	return models.ScoreEntry{
		UserID:   userID,
		Score:    score,
		MaxCombo: combo,
		Mods:     mods,
		Rank:     rank,
		Match:    models.ScoreMatchInfo{Team: team},
	}
}

// twoTeamMatch builds a two-map match where red wins both map contests.
func twoTeamMatch(t *testing.T) *models.NormalizedMatch {
	t.Helper()
	events := []models.MatchEvent{
		gameEvent(1, "Insane",
			entry(1, 600000, "red"), entry(2, 500000, "red"),
			entry(3, 400000, "blue"), entry(4, 300000, "blue")),
		gameEvent(2, "Extra",
			entry(1, 700000, "red"), entry(2, 100000, "red"),
			entry(3, 350000, "blue"), entry(4, 350000, "blue")),
	}
	return Normalize(1, events)
}

func TestEvaluateBoosterUnknownID(t *testing.T) {
	nm := twoTeamMatch(t)
	got := EvaluateBooster(99, nm.Profiles[1], nm, nil)
	if got.Activated || got.Points != 0 {
		t.Errorf("unknown booster id = %+v, want inactive zero", got)
	}
}

func TestBoosterBenchwarmer(t *testing.T) {
	nm := twoTeamMatch(t)

	got := EvaluateBooster(BoosterBenchwarmer, nil, nm, nil)
	if !got.Activated || got.Points != 5 {
		t.Errorf("non-participant = %+v, want activated +5", got)
	}

	got = EvaluateBooster(BoosterBenchwarmer, nm.Profiles[1], nm, nil)
	if got.Activated || got.Points != 0 {
		t.Errorf("participant = %+v, want inactive 0", got)
	}
}

func TestBoosterCaptain(t *testing.T) {
	nm := twoTeamMatch(t)

	got := EvaluateBooster(BoosterCaptain, nm.Profiles[1], nm, nil)
	if !got.Activated || got.Points != 5 {
		t.Errorf("red player = %+v, want activated +5", got)
	}

	got = EvaluateBooster(BoosterCaptain, nm.Profiles[3], nm, nil)
	if got.Activated || got.Points != -5 {
		t.Errorf("blue player = %+v, want inactive -5", got)
	}
}

func TestWinningTeamCountsMapWinsNotTotals(t *testing.T) {
	// Blue wins one blowout map; red wins the other two narrowly.
	events := []models.MatchEvent{
		gameEvent(1, "a", entry(1, 100, "red"), entry(2, 90, "blue")),
		gameEvent(2, "b", entry(1, 100, "red"), entry(2, 90, "blue")),
		gameEvent(3, "c", entry(1, 100, "red"), entry(2, 1000000, "blue")),
	}
	nm := Normalize(1, events)

	if got := winningTeam(nm); got != "red" {
		t.Errorf("winningTeam = %q, want red (map wins beat aggregate score)", got)
	}
}

func TestWinningTeamDeterministicTieBreaks(t *testing.T) {
	tests := []struct {
		name   string
		events []models.MatchEvent
		want   string
	}{
		{
			name: "equal map sums go to lexicographically smallest label",
			events: []models.MatchEvent{
				gameEvent(1, "a", entry(1, 100, "red"), entry(2, 100, "blue")),
			},
			want: "blue",
		},
		{
			name: "equal map wins break by total score",
			events: []models.MatchEvent{
				gameEvent(1, "a", entry(1, 100, "red"), entry(2, 50, "blue")),
				gameEvent(2, "b", entry(1, 10, "red"), entry(2, 500, "blue")),
			},
			want: "blue",
		},
		{
			name:   "no team contests",
			events: []models.MatchEvent{gameEvent(1, "a", entry(1, 100, ""))},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := winningTeam(Normalize(1, tt.events)); got != tt.want {
				t.Errorf("winningTeam = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBoosterNoob(t *testing.T) {
	nm := twoTeamMatch(t)
	dist := map[int64]float64{1: 1.4, 3: 0.8, 4: 0.8}

	// Both tied minimum players get the bonus.
	for _, userID := range []int64{3, 4} {
		got := EvaluateBooster(BoosterNoob, nm.Profiles[userID], nm, dist)
		if !got.Activated || got.Points != 5 {
			t.Errorf("player %d = %+v, want activated +5", userID, got)
		}
	}

	got := EvaluateBooster(BoosterNoob, nm.Profiles[1], nm, dist)
	if got.Activated || got.Points != -2 {
		t.Errorf("top player = %+v, want inactive -2", got)
	}

	// Minimum above 1.0 never activates.
	high := map[int64]float64{1: 1.2, 3: 1.1}
	got = EvaluateBooster(BoosterNoob, nm.Profiles[3], nm, high)
	if got.Activated {
		t.Errorf("minimum above 1.0 activated: %+v", got)
	}

	// Absent player defaults to 1.0.
	p9 := &models.PlayerMatchProfile{UserID: 9, MapsPlayed: 1}
	got = EvaluateBooster(BoosterNoob, p9, nm, map[int64]float64{1: 1.5, 2: 1.2})
	if got.Activated {
		t.Errorf("defaulted 1.0 is not the minimum here, got %+v", got)
	}
	got = EvaluateBooster(BoosterNoob, p9, nm, map[int64]float64{1: 1.5, 2: 1.0})
	if !got.Activated {
		t.Errorf("defaulted 1.0 ties the minimum 1.0, want activated, got %+v", got)
	}
}

func TestBoosterWysi(t *testing.T) {
	nm := &models.NormalizedMatch{}
	tests := []struct {
		name   string
		scores []models.PlayedScore
		want   bool
	}{
		{"score contains 727", []models.PlayedScore{{Entry: rankedEntry(1, 872700, 500, nil, "A", "")}}, true},
		{"combo exactly 727", []models.PlayedScore{{Entry: rankedEntry(1, 100, 727, nil, "A", "")}}, true},
		{"neither", []models.PlayedScore{{Entry: rankedEntry(1, 100, 726, nil, "A", "")}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &models.PlayerMatchProfile{UserID: 1, MapsPlayed: len(tt.scores), Scores: tt.scores}
			got := EvaluateBooster(BoosterWysi, p, nm, nil)
			if got.Activated != tt.want {
				t.Errorf("activated = %v, want %v", got.Activated, tt.want)
			}
			if !tt.want && got.Points != 0 {
				t.Errorf("miss points = %d, want 0", got.Points)
			}
		})
	}
}

func TestBoosterOneMapWonder(t *testing.T) {
	events := []models.MatchEvent{
		gameEvent(1, "a", entry(1, 900, "red"), entry(2, 500, "blue")),
		gameEvent(2, "b", entry(2, 700, "blue")),
	}
	nm := Normalize(1, events)

	got := EvaluateBooster(BoosterOneMapWonder, nm.Profiles[1], nm, nil)
	if !got.Activated || got.Points != 5 {
		t.Errorf("single-map top scorer = %+v, want activated +5", got)
	}

	// Player 2 played two maps: condition requires exactly one.
	got = EvaluateBooster(BoosterOneMapWonder, nm.Profiles[2], nm, nil)
	if got.Activated || got.Points != -5 {
		t.Errorf("two-map player = %+v, want inactive -5", got)
	}
}

func TestBoosterTheyPickedDT(t *testing.T) {
	nm := &models.NormalizedMatch{}
	tests := []struct {
		name string
		mods []string
		rank string
		want bool
	}{
		{"DT with B", []string{"HD", "DT"}, "B", true},
		{"NC with D", []string{"NC"}, "D", true},
		{"DT with A", []string{"DT"}, "A", false},
		{"no speed mod with C", []string{"HR"}, "C", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &models.PlayerMatchProfile{UserID: 1, MapsPlayed: 1, Scores: []models.PlayedScore{
				{Entry: rankedEntry(1, 100, 100, tt.mods, tt.rank, "")},
			}}
			got := EvaluateBooster(BoosterTheyPickedDT, p, nm, nil)
			if got.Activated != tt.want {
				t.Errorf("activated = %v, want %v", got.Activated, tt.want)
			}
		})
	}
}

func TestBoosterFaker(t *testing.T) {
	nm := twoTeamMatch(t)

	got := EvaluateBooster(BoosterFaker, nm.Profiles[1], nm, map[int64]float64{1: 1.9, 3: 0.7})
	if !got.Activated || got.Points != 5 {
		t.Errorf("top at 1.9 = %+v, want activated +5", got)
	}

	// Maximum below the 1.8 bar never activates.
	got = EvaluateBooster(BoosterFaker, nm.Profiles[1], nm, map[int64]float64{1: 1.7, 3: 0.7})
	if got.Activated || got.Points != -5 {
		t.Errorf("top at 1.7 = %+v, want inactive -5", got)
	}
}

func TestBoosterGambling(t *testing.T) {
	nm := &models.NormalizedMatch{}
	mk := func(ranks ...string) *models.PlayerMatchProfile {
		p := &models.PlayerMatchProfile{UserID: 1, MapsPlayed: len(ranks)}
		for i, r := range ranks {
			p.Scores = append(p.Scores, models.PlayedScore{MapOrdinal: i, Entry: rankedEntry(1, 100, 100, nil, r, "")})
		}
		return p
	}

	tests := []struct {
		name  string
		ranks []string
		want  bool
	}{
		{"three in a row", []string{"A", "S", "SH", "SS", "B"}, true},
		{"broken streak", []string{"S", "S", "A", "S", "S"}, false},
		{"too few maps", []string{"S", "S"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateBooster(BoosterGambling, mk(tt.ranks...), nm, nil)
			if got.Activated != tt.want {
				t.Errorf("activated = %v, want %v", got.Activated, tt.want)
			}
			if tt.want && got.Points != 10 || !tt.want && got.Points != -10 {
				t.Errorf("points = %d", got.Points)
			}
		})
	}
}

func TestBoosterOver900kStrictThreshold(t *testing.T) {
	nm := &models.NormalizedMatch{}
	tests := []struct {
		score int64
		want  bool
	}{
		{900000, false}, // exactly the threshold does NOT activate
		{900001, true},
		{899999, false},
	}

	for _, tt := range tests {
		p := &models.PlayerMatchProfile{UserID: 1, MapsPlayed: 1, Scores: []models.PlayedScore{
			{Entry: rankedEntry(1, tt.score, 100, nil, "A", "")},
		}}
		got := EvaluateBooster(BoosterOver900k, p, nm, nil)
		if got.Activated != tt.want {
			t.Errorf("score %d: activated = %v, want %v", tt.score, got.Activated, tt.want)
		}
	}
}

func TestBoosterTiebreakHype(t *testing.T) {
	nm := &models.NormalizedMatch{}
	tests := []struct {
		difficulty string
		want       bool
	}{
		{"Destin Victorica", true},
		{"TIEBREAKER", true},
		{"welcome to tb hell", true},
		{"Insane", false},
		{"", false},
	}

	for _, tt := range tests {
		p := &models.PlayerMatchProfile{UserID: 1, MapsPlayed: 1, Scores: []models.PlayedScore{
			{Entry: rankedEntry(1, 100, 100, nil, "A", ""), Difficulty: tt.difficulty},
		}}
		got := EvaluateBooster(BoosterTiebreakHype, p, nm, nil)
		if got.Activated != tt.want {
			t.Errorf("difficulty %q: activated = %v, want %v", tt.difficulty, got.Activated, tt.want)
		}
	}
}

func TestBoosterOverworkingAndBenchwarmerExclusion(t *testing.T) {
	nm := twoTeamMatch(t)

	got := EvaluateBooster(BoosterOverworking, nm.Profiles[1], nm, nil)
	if !got.Activated || got.Points != 5 {
		t.Errorf("full attendance = %+v, want activated +5", got)
	}

	// A sitting player always hits booster 1's positive branch and, if
	// assigned booster 11 instead, its negative branch.
	sitter := &models.PlayerMatchProfile{UserID: 9}
	b1 := EvaluateBooster(BoosterBenchwarmer, sitter, nm, nil)
	b11 := EvaluateBooster(BoosterOverworking, sitter, nm, nil)
	if !b1.Activated || b11.Activated {
		t.Errorf("sitter: booster1 = %+v, booster11 = %+v", b1, b11)
	}
	if b11.Points != -5 {
		t.Errorf("sitter booster11 points = %d, want -5", b11.Points)
	}

	// Degenerate zero-map match: booster 11 cannot activate either way.
	empty := Normalize(1, nil)
	b11 = EvaluateBooster(BoosterOverworking, sitter, empty, nil)
	if b11.Activated {
		t.Errorf("zero-map match activated booster 11: %+v", b11)
	}
}

func TestBoosterInconsistent(t *testing.T) {
	nm := &models.NormalizedMatch{}
	mk := func(combos ...int) *models.PlayerMatchProfile {
		p := &models.PlayerMatchProfile{UserID: 1, MapsPlayed: len(combos)}
		for i, c := range combos {
			p.Scores = append(p.Scores, models.PlayedScore{MapOrdinal: i, Entry: rankedEntry(1, 100, c, nil, "A", "")})
		}
		return p
	}

	got := EvaluateBooster(BoosterInconsistent, mk(500, 999), nm, nil)
	if !got.Activated || got.Points != 5 {
		t.Errorf("all combos under 1000 = %+v, want activated +5", got)
	}

	got = EvaluateBooster(BoosterInconsistent, mk(500, 1000), nm, nil)
	if got.Activated || got.Points != -5 {
		t.Errorf("combo reaching 1000 = %+v, want inactive -5", got)
	}

	got = EvaluateBooster(BoosterInconsistent, mk(), nm, nil)
	if got.Activated || got.Points != -5 {
		t.Errorf("no maps played = %+v, want inactive -5", got)
	}
}
