package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Port int
	Env  string

	// CORS
	AllowedOrigins []string

	// Database URLs
	PostgresURL   string
	ClickHouseURL string
	RedisURL      string

	// osu! API credentials (client-credentials grant)
	OsuClientID     string
	OsuClientSecret string
	OsuAPIBase      string
	OsuTokenURL     string

	// Scoring runs
	Tournament     string
	FetchWorkers   int
	FetchTimeout   time.Duration
	MaxMatchPages  int
	ArchiveBatch   int
	RunStatusTTL   time.Duration
}

// Load loads configuration from environment variables.
// It returns an error if critical configuration is missing.
func Load() (*Config, error) {
	cfg := &Config{
		Port: getEnvInt("PORT", 8080),
		Env:  getEnv("ENV", "development"),

		OsuAPIBase:  getEnv("OSU_API_BASE", "https://osu.ppy.sh/api/v2"),
		OsuTokenURL: getEnv("OSU_TOKEN_URL", "https://osu.ppy.sh/oauth/token"),

		Tournament:    getEnv("TOURNAMENT", "owc2025"),
		FetchWorkers:  getEnvInt("FETCH_WORKERS", 4),
		FetchTimeout:  getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
		MaxMatchPages: getEnvInt("MAX_MATCH_PAGES", 20),
		ArchiveBatch:  getEnvInt("ARCHIVE_BATCH", 500),
		RunStatusTTL:  getEnvDuration("RUN_STATUS_TTL", 24*time.Hour),
	}

	// CORS
	origins := getEnv("ALLOWED_ORIGINS", "http://localhost:3000")
	rawOrigins := strings.Split(origins, ",")
	for _, o := range rawOrigins {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	// Critical configuration - fail if missing
	var err error
	if cfg.PostgresURL, err = getEnvRequired("POSTGRES_URL"); err != nil {
		return nil, err
	}
	if cfg.ClickHouseURL, err = getEnvRequired("CLICKHOUSE_URL"); err != nil {
		return nil, err
	}
	if cfg.RedisURL, err = getEnvRequired("REDIS_URL"); err != nil {
		return nil, err
	}
	if cfg.OsuClientID, err = getEnvRequired("OSU_CLIENT_ID"); err != nil {
		return nil, err
	}
	if cfg.OsuClientSecret, err = getEnvRequired("OSU_CLIENT_SECRET"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvRequired(key string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("missing required environment variable: %s", key)
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
