// Package run orchestrates a scoring run: fetch the requested matches,
// normalize and score them concurrently, then settle player aggregates
// and owner fantasy deltas against the ledger in one pass.
package run

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/owcfantasy/scoring-api/internal/engine"
	"github.com/owcfantasy/scoring-api/internal/models"
)

var (
	matchesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scoring_matches_processed_total",
		Help: "Matches fetched and scored successfully",
	})
	matchesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scoring_matches_failed_total",
		Help: "Matches skipped because fetch or normalization failed",
	})
	ownerDeltas = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scoring_owner_delta",
		Help:    "Per-owner fantasy score delta applied by a run",
		Buckets: []float64{-100, -50, -20, -5, 0, 5, 20, 50, 100, 200},
	})
	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scoring_run_duration_seconds",
		Help:    "Wall time of a full scoring run",
		Buckets: prometheus.DefBuckets,
	})
)

// MatchSource resolves a match id into its full event list.
type MatchSource interface {
	FetchMatch(ctx context.Context, matchID int64) (*models.MatchData, error)
}

// Roster is the relational-ledger slice a run needs.
type Roster interface {
	Teams(ctx context.Context, tournament string) ([]models.FantasyTeam, error)
	ResolvePlayers(ctx context.Context, osuIDs []int64) (map[int64]models.PlayerRef, error)
	PlayerRefsByInternalID(ctx context.Context, internalIDs []int64) (map[int64]models.PlayerRef, error)
	WritePlayerAggregates(ctx context.Context, refs map[int64]models.PlayerRef, aggs map[int64]models.AggregatedPlayerScore) (int, error)
	ApplyOwnerDelta(ctx context.Context, ownerID int64, delta int) (int64, error)
}

// ScoreArchive receives per-map scores after a match is settled.
type ScoreArchive interface {
	InsertMapScores(ctx context.Context, tournament string, nm *models.NormalizedMatch, playedAt time.Time) error
}

// StatusStore is the slice of redis used to publish run progress.
type StatusStore interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

type Config struct {
	Tournament string
	Workers    int
	StatusTTL  time.Duration
	Source     MatchSource
	Roster     Roster
	Archive    ScoreArchive
	Status     StatusStore
	Logger     *zap.Logger
}

type Service struct {
	tournament string
	workers    int
	statusTTL  time.Duration
	source     MatchSource
	roster     Roster
	archive    ScoreArchive
	status     StatusStore
	logger     *zap.SugaredLogger
}

func New(cfg Config) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.StatusTTL <= 0 {
		cfg.StatusTTL = 24 * time.Hour
	}
	return &Service{
		tournament: cfg.Tournament,
		workers:    cfg.Workers,
		statusTTL:  cfg.StatusTTL,
		source:     cfg.Source,
		roster:     cfg.Roster,
		archive:    cfg.Archive,
		status:     cfg.Status,
		logger:     cfg.Logger.Sugar(),
	}
}

// Summary is the outcome of one scoring run.
type Summary struct {
	RunID            string `json:"run_id"`
	Tournament       string `json:"tournament"`
	MatchesRequested int    `json:"matches_requested"`
	MatchesProcessed int    `json:"matches_processed"`
	MatchesSkipped   int    `json:"matches_skipped"`
	PlayersUpdated   int    `json:"players_updated"`
	OwnersUpdated    int    `json:"owners_updated"`
}

// NewRunID mints the identifier under which a run's status is published.
func NewRunID() string {
	return uuid.NewString()
}

// Run executes a full scoring run for the given matches. An empty
// tournament falls back to the configured default. Individual match
// failures are logged and skipped; the run fails only when the ledger
// itself is unreachable. Zero match ids is an accepted no-op.
func (s *Service) Run(ctx context.Context, runID, tournament string, matchIDs []int64) (*Summary, error) {
	start := time.Now()
	defer func() { runDuration.Observe(time.Since(start).Seconds()) }()

	if tournament == "" {
		tournament = s.tournament
	}

	summary := &Summary{
		RunID:            runID,
		Tournament:       tournament,
		MatchesRequested: len(matchIDs),
	}

	if len(matchIDs) == 0 {
		s.setStatus(ctx, runID, "done", summary)
		return summary, nil
	}

	s.setStatus(ctx, runID, "running", summary)

	teams, err := s.roster.Teams(ctx, tournament)
	if err != nil {
		s.setStatus(ctx, runID, "failed", summary)
		return nil, fmt.Errorf("load rosters: %w", err)
	}

	batch, skipped := s.scoreMatches(ctx, matchIDs)
	summary.MatchesProcessed = len(batch)
	summary.MatchesSkipped = skipped

	if len(batch) == 0 {
		s.logger.Warnw("No matches could be scored", "run_id", runID, "requested", len(matchIDs))
		s.setStatus(ctx, runID, "done", summary)
		return summary, nil
	}

	// All per-match p-scores are final from here on. Aggregation and
	// booster evaluation both read the complete batch.
	aggs := engine.AggregatePlayerScores(batch)

	osuIDs := make([]int64, 0, len(aggs))
	for id := range aggs {
		osuIDs = append(osuIDs, id)
	}
	refs, err := s.roster.ResolvePlayers(ctx, osuIDs)
	if err != nil {
		s.setStatus(ctx, runID, "failed", summary)
		return nil, fmt.Errorf("resolve players: %w", err)
	}

	written, err := s.roster.WritePlayerAggregates(ctx, refs, aggs)
	if err != nil {
		s.setStatus(ctx, runID, "failed", summary)
		return nil, fmt.Errorf("write aggregates: %w", err)
	}
	summary.PlayersUpdated = written

	summary.OwnersUpdated = s.settleOwners(ctx, teams, batch, aggs)

	s.archiveMatches(ctx, tournament, batch)

	s.setStatus(ctx, runID, "done", summary)
	s.logger.Infow("Run complete",
		"run_id", runID,
		"matches", summary.MatchesProcessed,
		"skipped", summary.MatchesSkipped,
		"players", summary.PlayersUpdated,
		"owners", summary.OwnersUpdated,
		"took", time.Since(start),
	)
	return summary, nil
}

// scoreMatches fetches, normalizes and p-scores the requested matches
// with bounded concurrency. A failed match is skipped, not fatal.
func (s *Service) scoreMatches(ctx context.Context, matchIDs []int64) ([]engine.MatchComputation, int) {
	var (
		mu      sync.Mutex
		batch   []engine.MatchComputation
		skipped int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, matchID := range matchIDs {
		matchID := matchID
		g.Go(func() error {
			data, err := s.source.FetchMatch(gctx, matchID)
			if err != nil {
				s.logger.Warnw("Skipping match", "match_id", matchID, "error", err)
				matchesFailed.Inc()
				mu.Lock()
				skipped++
				mu.Unlock()
				return nil
			}

			nm := engine.Normalize(matchID, data.Events)
			pscores := engine.ComputePScores(nm)
			matchesProcessed.Inc()

			mu.Lock()
			batch = append(batch, engine.MatchComputation{Match: nm, PScores: pscores})
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return batch, skipped
}

// settleOwners computes and applies each owner's delta: booster points
// plus the clamped base change from the team's average p-score. An
// owner whose roster cannot be expanded, or whose update fails, is
// skipped without touching the others.
func (s *Service) settleOwners(ctx context.Context, teams []models.FantasyTeam, batch []engine.MatchComputation, aggs map[int64]models.AggregatedPlayerScore) int {
	settled := 0

	for _, team := range teams {
		refs, err := s.roster.PlayerRefsByInternalID(ctx, team.PlayerIDs)
		if err != nil {
			s.logger.Errorw("Failed to expand roster", "owner", team.OwnerID, "error", err)
			continue
		}

		// Rosters and booster picks are stored by internal player id;
		// the engine keys everything by osu! id.
		var pscores []float64
		assignments := make(map[int64]int)
		for _, internalID := range team.PlayerIDs {
			ref, ok := refs[internalID]
			if !ok {
				continue
			}
			if agg, ok := aggs[ref.OsuID]; ok {
				pscores = append(pscores, agg.PScore)
			}
			if boosterID, ok := team.Boosters[internalID]; ok {
				assignments[ref.OsuID] = boosterID
			}
		}

		boosterPoints := engine.SumBoosterPoints(batch, assignments)
		baseDelta := engine.BaseDelta(pscores)
		delta := boosterPoints + baseDelta

		newScore, err := s.roster.ApplyOwnerDelta(ctx, team.OwnerID, delta)
		if err != nil {
			s.logger.Errorw("Failed to apply owner delta", "owner", team.OwnerID, "error", err)
			continue
		}

		ownerDeltas.Observe(float64(delta))
		settled++
		s.logger.Infow("Settled owner",
			"owner", team.OwnerID,
			"boosters", boosterPoints,
			"base", baseDelta,
			"score", newScore,
		)
	}

	return settled
}

// archiveMatches pushes per-map scores to the archive. Best effort: the
// run already settled, a cold archive only loses history.
func (s *Service) archiveMatches(ctx context.Context, tournament string, batch []engine.MatchComputation) {
	if s.archive == nil {
		return
	}
	now := time.Now().UTC()
	for _, mc := range batch {
		if err := s.archive.InsertMapScores(ctx, tournament, mc.Match, now); err != nil {
			s.logger.Warnw("Failed to archive match", "match_id", mc.Match.MatchID, "error", err)
		}
	}
}

func statusKey(runID string) string {
	return "run:" + runID
}

func (s *Service) setStatus(ctx context.Context, runID, state string, sum *Summary) {
	if s.status == nil {
		return
	}
	key := statusKey(runID)
	err := s.status.HSet(ctx, key,
		"state", state,
		"tournament", sum.Tournament,
		"requested", sum.MatchesRequested,
		"processed", sum.MatchesProcessed,
		"skipped", sum.MatchesSkipped,
		"players_updated", sum.PlayersUpdated,
		"owners_updated", sum.OwnersUpdated,
	).Err()
	if err != nil {
		s.logger.Warnw("Failed to publish run status", "run_id", runID, "error", err)
		return
	}
	s.status.Expire(ctx, key, s.statusTTL)
}

// Status reads a run's published progress. A missing run id returns an
// empty map and no error, matching redis HGETALL semantics.
func (s *Service) Status(ctx context.Context, runID string) (map[string]string, error) {
	if s.status == nil {
		return nil, fmt.Errorf("run status store not configured")
	}
	fields, err := s.status.HGetAll(ctx, statusKey(runID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read run status: %w", err)
	}
	return fields, nil
}
