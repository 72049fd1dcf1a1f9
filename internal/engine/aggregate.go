package engine

import (
	"math"

	"github.com/owcfantasy/scoring-api/internal/models"
)

// MatchComputation pairs a normalized match with its finalized p-score
// results. It is the unit the aggregator consumes; construction order
// does not matter (accumulation is commutative).
type MatchComputation struct {
	Match   *models.NormalizedMatch
	PScores map[int64]models.PScoreResult
}

// AggregatePlayerScores combines per-match p-scores across a batch into
// one aggregate per player, weighting each match's p-score by the number
// of maps the player played in it. Players whose total weight is zero are
// omitted entirely (the weighted mean is undefined for them).
func AggregatePlayerScores(batch []MatchComputation) map[int64]models.AggregatedPlayerScore {
	type acc struct {
		weightedSum float64
		weight      int
		matches     int
	}
	players := make(map[int64]*acc)

	for _, mc := range batch {
		for userID, r := range mc.PScores {
			a, ok := players[userID]
			if !ok {
				a = &acc{}
				players[userID] = a
			}
			a.weightedSum += r.PScore * float64(r.MapsPlayed)
			a.weight += r.MapsPlayed
			a.matches++
		}
	}

	out := make(map[int64]models.AggregatedPlayerScore, len(players))
	for userID, a := range players {
		if a.weight == 0 {
			continue
		}
		out[userID] = models.AggregatedPlayerScore{
			UserID:    userID,
			PScore:    a.weightedSum / float64(a.weight),
			Matches:   a.matches,
			TotalMaps: a.weight,
		}
	}
	return out
}

// SumBoosterPoints evaluates the assigned boosters for one owner across
// the whole batch and returns the summed points. Assignments map an
// external player id to a booster id; zero means no booster. A player
// with zero maps played in a given match is skipped for that match, not
// penalized.
func SumBoosterPoints(batch []MatchComputation, assignments map[int64]int) int {
	var total int

	for _, mc := range batch {
		dist := Distribution(mc.PScores)
		for userID, boosterID := range assignments {
			if boosterID == 0 {
				continue
			}
			profile, ok := mc.Match.Profiles[userID]
			if !ok || profile.MapsPlayed == 0 {
				continue
			}
			outcome := EvaluateBooster(boosterID, profile, mc.Match, dist)
			total += outcome.Points
		}
	}

	return total
}

// Base-delta bounds: a team averaging p-score 0.0 maps to -50, 1.0 to 0,
// 2.0 to +50.
const (
	baseDeltaScale = 50.0
	baseDeltaCap   = 50
)

// BaseDelta maps a fantasy team's average aggregated p-score to the
// owner's base score change, clamped to [-50, +50] and rounded.
func BaseDelta(pscores []float64) int {
	if len(pscores) == 0 {
		return 0
	}

	var sum float64
	for _, p := range pscores {
		sum += p
	}
	avg := sum / float64(len(pscores))

	change := (avg - 1.0) * baseDeltaScale
	if change > baseDeltaCap {
		change = baseDeltaCap
	}
	if change < -baseDeltaCap {
		change = -baseDeltaCap
	}
	return int(math.Round(change))
}

// ApplyFloor applies an additive delta to a running fantasy score,
// flooring the result at zero. Scores are never overwritten, only moved.
func ApplyFloor(current int64, delta int) int64 {
	next := current + int64(delta)
	if next < 0 {
		return 0
	}
	return next
}
