package engine

import (
	"sort"
	"strconv"
	"strings"

	"github.com/owcfantasy/scoring-api/internal/models"
)

// Booster ids. Exactly one booster applies per (player, match); assignment
// lives in the fantasy-team roster.
const (
	BoosterBenchwarmer   = 1  // no participation
	BoosterCaptain       = 2  // winning side
	BoosterNoob          = 3  // lowest p-score in the lobby
	BoosterWysi          = 4  // score or combo contains 727
	BoosterOneMapWonder  = 5  // plays one map and top scores it
	BoosterTheyPickedDT  = 6  // low grade on a doubled-speed map
	BoosterFaker         = 7  // highest p-score in the lobby
	BoosterGambling      = 8  // three S-grade maps in a row
	BoosterOver900k      = 9  // any score above 900k
	BoosterTiebreakHype  = 10 // played the tiebreaker map
	BoosterOverworking   = 11 // played every map in the lobby
	BoosterInconsistent  = 12 // combo never reaches 1000
)

// bigScoreThreshold is strict: a score of exactly 900000 does not activate.
const bigScoreThreshold = 900000

const streakLength = 3

const lowComboCeiling = 1000

// tiebreakerLabels are matched case-insensitively as substrings of the
// beatmap difficulty label.
var tiebreakerLabels = []string{"destin victorica", "nostalgia", "tiebreaker", "tb"}

// doubleTimeMods are the doubled-speed modifier family.
var doubleTimeMods = map[string]bool{"DT": true, "NC": true}

// boosterInput bundles everything a predicate may inspect: the player's
// own profile, the whole normalized match and the finalized per-match
// p-score distribution.
type boosterInput struct {
	profile *models.PlayerMatchProfile
	match   *models.NormalizedMatch
	pscores map[int64]float64
}

type boosterFunc func(in boosterInput) models.BoosterOutcome

// boosterTable keys the twelve predicates by id so each rule can be unit
// tested in isolation instead of living in one branch ladder.
var boosterTable = map[int]boosterFunc{
	BoosterBenchwarmer:  boosterBenchwarmer,
	BoosterCaptain:      boosterCaptain,
	BoosterNoob:         boosterNoob,
	BoosterWysi:         boosterWysi,
	BoosterOneMapWonder: boosterOneMapWonder,
	BoosterTheyPickedDT: boosterTheyPickedDT,
	BoosterFaker:        boosterFaker,
	BoosterGambling:     boosterGambling,
	BoosterOver900k:     boosterOver900k,
	BoosterTiebreakHype: boosterTiebreakHype,
	BoosterOverworking:  boosterOverworking,
	BoosterInconsistent: boosterInconsistent,
}

// EvaluateBooster runs one booster predicate for a player in a match.
// The p-score distribution must be final for the whole match before any
// evaluation (boosters 3 and 7 compare against its extremes). Unknown
// booster ids yield (false, 0). A nil profile is treated as a
// non-participant.
func EvaluateBooster(id int, profile *models.PlayerMatchProfile, nm *models.NormalizedMatch, pscores map[int64]float64) models.BoosterOutcome {
	fn, ok := boosterTable[id]
	if !ok {
		return models.BoosterOutcome{}
	}
	if profile == nil {
		profile = &models.PlayerMatchProfile{}
	}
	return fn(boosterInput{profile: profile, match: nm, pscores: pscores})
}

// Booster 1: activates only for a player who sat the whole match out.
func boosterBenchwarmer(in boosterInput) models.BoosterOutcome {
	if in.profile.MapsPlayed == 0 {
		return models.BoosterOutcome{Activated: true, Points: 5}
	}
	return models.BoosterOutcome{}
}

// Booster 2: the winning side is decided by counting per-map team-score
// contests, not aggregate score, so one blowout map cannot dominate.
func boosterCaptain(in boosterInput) models.BoosterOutcome {
	winner := winningTeam(in.match)
	if in.profile.Team != "" && winner != "" && in.profile.Team == winner {
		return models.BoosterOutcome{Activated: true, Points: 5}
	}
	return models.BoosterOutcome{Points: -5}
}

// Booster 3: lowest p-score in the lobby, and that minimum is at most 1.0.
// A player absent from the distribution defaults to 1.0.
func boosterNoob(in boosterInput) models.BoosterOutcome {
	if len(in.pscores) == 0 {
		return models.BoosterOutcome{Points: -2}
	}
	min := 0.0
	first := true
	for _, v := range in.pscores {
		if first || v < min {
			min = v
			first = false
		}
	}
	own, ok := in.pscores[in.profile.UserID]
	if !ok {
		own = 1.0
	}
	if own == min && own <= 1.0 {
		return models.BoosterOutcome{Activated: true, Points: 5}
	}
	return models.BoosterOutcome{Points: -2}
}

// Booster 4: any raw score whose decimal text contains "727", or a max
// combo of exactly 727.
func boosterWysi(in boosterInput) models.BoosterOutcome {
	for _, s := range in.profile.Scores {
		if strings.Contains(strconv.FormatInt(s.Entry.Score, 10), "727") || s.Entry.MaxCombo == 727 {
			return models.BoosterOutcome{Activated: true, Points: 7}
		}
	}
	return models.BoosterOutcome{}
}

// Booster 5: exactly one map played, and that score is the match-wide
// maximum on the map it was set on.
func boosterOneMapWonder(in boosterInput) models.BoosterOutcome {
	if in.profile.MapsPlayed == 1 && len(in.profile.Scores) == 1 {
		played := in.profile.Scores[0]
		if played.MapOrdinal < len(in.match.Maps) {
			if played.Entry.Score == mapMaxScore(in.match.Maps[played.MapOrdinal]) {
				return models.BoosterOutcome{Activated: true, Points: 5}
			}
		}
	}
	return models.BoosterOutcome{Points: -5}
}

// Booster 6: a doubled-speed map (DT/NC) graded B, C or D.
func boosterTheyPickedDT(in boosterInput) models.BoosterOutcome {
	for _, s := range in.profile.Scores {
		if !hasDoubleTime(s.Entry.Mods) {
			continue
		}
		switch s.Entry.Rank {
		case "B", "C", "D":
			return models.BoosterOutcome{Activated: true, Points: 6}
		}
	}
	return models.BoosterOutcome{Points: -2}
}

// Booster 7: highest p-score in the lobby, and that maximum reaches 1.8.
// A player absent from the distribution defaults to 0.
func boosterFaker(in boosterInput) models.BoosterOutcome {
	if len(in.pscores) == 0 {
		return models.BoosterOutcome{Points: -5}
	}
	max := 0.0
	first := true
	for _, v := range in.pscores {
		if first || v > max {
			max = v
			first = false
		}
	}
	own := in.pscores[in.profile.UserID]
	if own == max && own >= 1.8 {
		return models.BoosterOutcome{Activated: true, Points: 5}
	}
	return models.BoosterOutcome{Points: -5}
}

// Booster 8: three consecutive played maps (play order) all graded S, SS
// or SH.
func boosterGambling(in boosterInput) models.BoosterOutcome {
	scores := in.profile.Scores
	for i := 0; i+streakLength <= len(scores); i++ {
		streak := true
		for j := i; j < i+streakLength; j++ {
			if !isHighGrade(scores[j].Entry.Rank) {
				streak = false
				break
			}
		}
		if streak {
			return models.BoosterOutcome{Activated: true, Points: 10}
		}
	}
	return models.BoosterOutcome{Points: -10}
}

// Booster 9: any single map score strictly above 900,000.
func boosterOver900k(in boosterInput) models.BoosterOutcome {
	for _, s := range in.profile.Scores {
		if s.Entry.Score > bigScoreThreshold {
			return models.BoosterOutcome{Activated: true, Points: 5}
		}
	}
	return models.BoosterOutcome{Points: -5}
}

// Booster 10: any played map whose difficulty label matches a known
// tiebreaker name.
func boosterTiebreakHype(in boosterInput) models.BoosterOutcome {
	for _, s := range in.profile.Scores {
		label := strings.ToLower(s.Difficulty)
		if label == "" {
			continue
		}
		for _, tb := range tiebreakerLabels {
			if strings.Contains(label, tb) {
				return models.BoosterOutcome{Activated: true, Points: 3}
			}
		}
	}
	return models.BoosterOutcome{}
}

// Booster 11: played every map in the lobby.
func boosterOverworking(in boosterInput) models.BoosterOutcome {
	total := in.match.TotalMaps()
	if in.profile.MapsPlayed == total && total > 0 {
		return models.BoosterOutcome{Activated: true, Points: 5}
	}
	return models.BoosterOutcome{Points: -5}
}

// Booster 12: played at least one map and never reached a 1000 combo.
func boosterInconsistent(in boosterInput) models.BoosterOutcome {
	if in.profile.MapsPlayed == 0 {
		return models.BoosterOutcome{Points: -5}
	}
	for _, s := range in.profile.Scores {
		if s.Entry.MaxCombo >= lowComboCeiling {
			return models.BoosterOutcome{Points: -5}
		}
	}
	return models.BoosterOutcome{Activated: true, Points: 5}
}

func isHighGrade(rank string) bool {
	switch rank {
	case "S", "SS", "SH":
		return true
	}
	return false
}

func hasDoubleTime(mods []string) bool {
	for _, m := range mods {
		if doubleTimeMods[m] {
			return true
		}
	}
	return false
}

// mapMaxScore returns the highest raw score on a map, 0 when empty.
func mapMaxScore(m models.Map) int64 {
	var max int64
	for _, e := range m.Entries {
		if e.Score > max {
			max = e.Score
		}
	}
	return max
}

// winningTeam decides the match winner by counting map wins: each map is
// credited to the team with the higher summed score on it. Equal sums on
// a map go to the lexicographically smallest team label; equal map-win
// counts break by total summed score across all maps, then by label.
// Returns "" when no map produced a team contest.
func winningTeam(nm *models.NormalizedMatch) string {
	mapWins := make(map[string]int)
	totals := make(map[string]int64)

	for _, m := range nm.Maps {
		teamSums := make(map[string]int64)
		for _, e := range m.Entries {
			if e.Match.Team == "" {
				continue
			}
			teamSums[e.Match.Team] += e.Score
			totals[e.Match.Team] += e.Score
		}
		if len(teamSums) == 0 {
			continue
		}
		mapWins[mapWinner(teamSums)]++
	}

	if len(mapWins) == 0 {
		return ""
	}

	teams := make([]string, 0, len(mapWins))
	for t := range mapWins {
		teams = append(teams, t)
	}
	sort.Slice(teams, func(i, j int) bool {
		a, b := teams[i], teams[j]
		if mapWins[a] != mapWins[b] {
			return mapWins[a] > mapWins[b]
		}
		if totals[a] != totals[b] {
			return totals[a] > totals[b]
		}
		return a < b
	})
	return teams[0]
}

func mapWinner(teamSums map[string]int64) string {
	var winner string
	var best int64
	for team, sum := range teamSums {
		if winner == "" || sum > best || (sum == best && team < winner) {
			winner = team
			best = sum
		}
	}
	return winner
}
