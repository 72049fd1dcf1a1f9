// Package handlers is the HTTP surface: scoring runs, player standings
// and the two leaderboards, plus health and metrics.
package handlers

import (
	"context"
	"net/http"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/owcfantasy/scoring-api/internal/models"
	"github.com/owcfantasy/scoring-api/internal/run"
)

// RunService starts scoring runs and reports their progress.
type RunService interface {
	Run(ctx context.Context, runID, tournament string, matchIDs []int64) (*run.Summary, error)
	Status(ctx context.Context, runID string) (map[string]string, error)
}

// LedgerReader serves the relational read models.
type LedgerReader interface {
	PlayerStanding(ctx context.Context, osuID int64) (*models.PlayerStanding, error)
	TopPlayers(ctx context.Context, limit int) ([]models.PlayerStanding, error)
	TopUsers(ctx context.Context, limit int) ([]models.UserScore, error)
}

// HistoryReader serves archived per-map scores.
type HistoryReader interface {
	PlayerHistory(ctx context.Context, tournament string, userID int64, limit int) ([]models.PlayerHistoryRow, error)
}

type Config struct {
	Postgres       *pgxpool.Pool
	ClickHouse     driver.Conn
	Redis          *redis.Client
	Logger         *zap.Logger
	Runs           RunService
	Ledger         LedgerReader
	History        HistoryReader
	Tournament     string
	AllowedOrigins []string
}

type Handler struct {
	pg         *pgxpool.Pool
	ch         driver.Conn
	redis      *redis.Client
	logger     *zap.SugaredLogger
	validator  *validator.Validate
	runs       RunService
	ledger     LedgerReader
	history    HistoryReader
	tournament string
	origins    []string
}

func New(cfg Config) *Handler {
	return &Handler{
		pg:         cfg.Postgres,
		ch:         cfg.ClickHouse,
		redis:      cfg.Redis,
		logger:     cfg.Logger.Sugar(),
		validator:  validator.New(),
		runs:       cfg.Runs,
		ledger:     cfg.Ledger,
		history:    cfg.History,
		tournament: cfg.Tournament,
		origins:    cfg.AllowedOrigins,
	}
}

// Routes assembles the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/runs", h.StartRun)
		r.Get("/runs/{run_id}", h.RunStatus)

		r.Get("/players/{osu_id}", h.Player)
		r.Get("/players/{osu_id}/history", h.PlayerHistory)

		r.Get("/leaderboard/players", h.PlayerLeaderboard)
		r.Get("/leaderboard/users", h.UserLeaderboard)
	})

	return r
}
