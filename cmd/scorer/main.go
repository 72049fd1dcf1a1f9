// Command scorer runs one scoring pass from the command line, without
// going through the API. With -dry-run it fetches and scores the matches
// but prints the aggregates instead of touching the ledger.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/owcfantasy/scoring-api/internal/config"
	"github.com/owcfantasy/scoring-api/internal/engine"
	"github.com/owcfantasy/scoring-api/internal/ledger"
	"github.com/owcfantasy/scoring-api/internal/osuapi"
	"github.com/owcfantasy/scoring-api/internal/run"
)

func main() {
	var (
		matchList  = flag.String("matches", "", "comma-separated match ids")
		matchFile  = flag.String("match-file", "", "file with one match id per line")
		dryRun     = flag.Bool("dry-run", false, "score and print, do not write")
		baseScores = flag.Bool("base-scores", false, "apply only the base p-score delta per owner, skipping boosters")
		timeout    = flag.Duration("timeout", 10*time.Minute, "overall deadline")
	)
	flag.Parse()

	matchIDs, err := collectMatchIDs(*matchList, *matchFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if len(matchIDs) == 0 {
		fmt.Fprintln(os.Stderr, "no match ids given (use -matches or -match-file)")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	source := osuapi.New(osuapi.Config{
		ClientID:     cfg.OsuClientID,
		ClientSecret: cfg.OsuClientSecret,
		APIBase:      cfg.OsuAPIBase,
		TokenURL:     cfg.OsuTokenURL,
		Timeout:      cfg.FetchTimeout,
		MaxPages:     cfg.MaxMatchPages,
		Logger:       logger,
	})

	if *dryRun {
		if err := dryRunScore(ctx, source, matchIDs); err != nil {
			sugar.Fatalw("Dry run failed", "error", err)
		}
		return
	}

	pg, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		sugar.Fatalw("Failed to create postgres pool", "error", err)
	}
	defer pg.Close()

	if *baseScores {
		if err := applyBaseScores(ctx, source, ledger.New(pg, logger), cfg.Tournament, matchIDs, sugar); err != nil {
			sugar.Fatalw("Base score pass failed", "error", err)
		}
		return
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		sugar.Fatalw("Invalid redis url", "error", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	runs := run.New(run.Config{
		Tournament: cfg.Tournament,
		Workers:    cfg.FetchWorkers,
		StatusTTL:  cfg.RunStatusTTL,
		Source:     source,
		Roster:     ledger.New(pg, logger),
		Status:     rdb,
		Logger:     logger,
	})

	summary, err := runs.Run(ctx, run.NewRunID(), "", matchIDs)
	if err != nil {
		sugar.Fatalw("Run failed", "error", err)
	}

	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(out))
}

type aggRow struct {
	UserID    int64   `json:"user_id"`
	PScore    float64 `json:"p_score"`
	Matches   int     `json:"matches"`
	TotalMaps int     `json:"total_maps"`
}

// dryRunScore computes per-player aggregates in memory and prints them,
// highest p-score first.
func dryRunScore(ctx context.Context, source *osuapi.Client, matchIDs []int64) error {
	batch, err := scoreBatch(ctx, source, matchIDs)
	if err != nil {
		return err
	}

	aggs := engine.AggregatePlayerScores(batch)
	rows := make([]aggRow, 0, len(aggs))
	for _, a := range aggs {
		rows = append(rows, aggRow{a.UserID, a.PScore, a.Matches, a.TotalMaps})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].PScore > rows[j].PScore })

	out, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// applyBaseScores runs only the base-delta half of a settlement: score
// the matches, aggregate, and move each owner's score by the clamped
// team-average change. Booster points are left untouched.
func applyBaseScores(ctx context.Context, source *osuapi.Client, store *ledger.Ledger, tournament string, matchIDs []int64, sugar *zap.SugaredLogger) error {
	batch, err := scoreBatch(ctx, source, matchIDs)
	if err != nil {
		return err
	}
	aggs := engine.AggregatePlayerScores(batch)

	teams, err := store.Teams(ctx, tournament)
	if err != nil {
		return err
	}

	for _, team := range teams {
		refs, err := store.PlayerRefsByInternalID(ctx, team.PlayerIDs)
		if err != nil {
			sugar.Errorw("Failed to expand roster", "owner", team.OwnerID, "error", err)
			continue
		}

		var pscores []float64
		for _, internalID := range team.PlayerIDs {
			ref, ok := refs[internalID]
			if !ok {
				continue
			}
			if agg, ok := aggs[ref.OsuID]; ok {
				pscores = append(pscores, agg.PScore)
			}
		}

		delta := engine.BaseDelta(pscores)
		newScore, err := store.ApplyOwnerDelta(ctx, team.OwnerID, delta)
		if err != nil {
			sugar.Errorw("Failed to apply base delta", "owner", team.OwnerID, "error", err)
			continue
		}
		sugar.Infow("Applied base delta", "owner", team.OwnerID, "delta", delta, "score", newScore)
	}
	return nil
}

func scoreBatch(ctx context.Context, source *osuapi.Client, matchIDs []int64) ([]engine.MatchComputation, error) {
	var batch []engine.MatchComputation
	for _, matchID := range matchIDs {
		data, err := source.FetchMatch(ctx, matchID)
		if err != nil {
			return nil, fmt.Errorf("fetch match %d: %w", matchID, err)
		}
		nm := engine.Normalize(matchID, data.Events)
		batch = append(batch, engine.MatchComputation{
			Match:   nm,
			PScores: engine.ComputePScores(nm),
		})
	}
	return batch, nil
}

func collectMatchIDs(list, file string) ([]int64, error) {
	var ids []int64
	seen := make(map[int64]bool)

	add := func(raw string) error {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid match id %q", raw)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
		return nil
	}

	for _, part := range strings.Split(list, ",") {
		if err := add(part); err != nil {
			return nil, err
		}
	}

	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("open match file: %w", err)
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if err := add(scanner.Text()); err != nil {
				return nil, err
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read match file: %w", err)
		}
	}

	return ids, nil
}
