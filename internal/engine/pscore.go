package engine

import (
	"math"
	"sort"

	"github.com/owcfantasy/scoring-api/internal/models"
)

// ComputePScores calculates the per-player performance score for one
// normalized match:
//
//	pscore = (Σ Sᵢ/Mᵢ) / n · √(n / N̄)
//
// where Sᵢ is the player's score on map i, Mᵢ the median of all non-zero
// scores on that map, n the number of maps the player set a non-zero score
// on, and N̄ the mean maps-played count over every player who scored at
// least once in the match. Dividing by the per-map median normalizes for
// map difficulty; the √(n/N̄) term damps small-sample ratios.
//
// Maps whose median is zero (or that have no qualifying scores) are
// excluded entirely. Players with n = 0 are absent from the result.
func ComputePScores(nm *models.NormalizedMatch) map[int64]models.PScoreResult {
	if len(nm.Maps) == 0 || len(nm.Profiles) == 0 {
		return map[int64]models.PScoreResult{}
	}

	// N̄: mean maps-played over all players with at least one score entry.
	// This counts every entry, including zero scores, matching the
	// normalizer's maps-played counter.
	var total int
	for _, p := range nm.Profiles {
		total += p.MapsPlayed
	}
	nMean := float64(total) / float64(len(nm.Profiles))

	type acc struct {
		ratioSum float64
		n        int
	}
	players := make(map[int64]*acc)

	for _, m := range nm.Maps {
		median := medianScore(m.Entries)
		if median == 0 {
			continue
		}
		for _, entry := range m.Entries {
			if entry.UserID == 0 || entry.Score == 0 {
				continue
			}
			a, ok := players[entry.UserID]
			if !ok {
				a = &acc{}
				players[entry.UserID] = a
			}
			a.ratioSum += float64(entry.Score) / median
			a.n++
		}
	}

	results := make(map[int64]models.PScoreResult, len(players))
	totalMaps := nm.TotalMaps()

	for userID, a := range players {
		if a.n == 0 {
			continue
		}
		avgRatio := a.ratioSum / float64(a.n)
		norm := 1.0
		if nMean > 0 {
			norm = math.Sqrt(float64(a.n) / nMean)
		}
		results[userID] = models.PScoreResult{
			PScore:     avgRatio * norm,
			MapsPlayed: a.n,
			TotalMaps:  totalMaps,
		}
	}

	return results
}

// medianScore returns the median of the non-zero scores on a map, or 0
// when no score qualifies.
func medianScore(entries []models.ScoreEntry) float64 {
	scores := make([]int64, 0, len(entries))
	for _, e := range entries {
		if e.Score != 0 {
			scores = append(scores, e.Score)
		}
	}
	if len(scores) == 0 {
		return 0
	}

	sort.Slice(scores, func(i, j int) bool { return scores[i] < scores[j] })

	mid := len(scores) / 2
	if len(scores)%2 == 1 {
		return float64(scores[mid])
	}
	return float64(scores[mid-1]+scores[mid]) / 2
}

// Distribution flattens per-match results into the p-score distribution
// consumed by the booster evaluator.
func Distribution(results map[int64]models.PScoreResult) map[int64]float64 {
	dist := make(map[int64]float64, len(results))
	for userID, r := range results {
		dist[userID] = r.PScore
	}
	return dist
}
