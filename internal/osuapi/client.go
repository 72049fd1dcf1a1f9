// Package osuapi is the match source adapter: it resolves a match id into
// a fully-assembled event list via the osu! API v2, handling the
// client-credentials OAuth grant and the `before`-cursor pagination so the
// engine only ever sees complete batches.
package osuapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/owcfantasy/scoring-api/internal/models"
)

const (
	pageLimit   = 100
	tokenKey    = "osu:token"
	tokenMargin = 60 * time.Second
)

// TokenCache is the slice of redis used for caching the app token.
type TokenCache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

type Config struct {
	ClientID     string
	ClientSecret string
	APIBase      string
	TokenURL     string
	Timeout      time.Duration
	MaxPages     int
	Cache        TokenCache
	Logger       *zap.Logger
}

type Client struct {
	http         *http.Client
	clientID     string
	clientSecret string
	apiBase      string
	tokenURL     string
	maxPages     int
	cache        TokenCache
	logger       *zap.SugaredLogger
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 20
	}
	return &Client{
		http:         &http.Client{Timeout: cfg.Timeout},
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		apiBase:      strings.TrimRight(cfg.APIBase, "/"),
		tokenURL:     cfg.TokenURL,
		maxPages:     cfg.MaxPages,
		cache:        cfg.Cache,
		logger:       cfg.Logger.Sugar(),
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// token returns a valid app access token, preferring the cached one.
func (c *Client) token(ctx context.Context) (string, error) {
	if c.cache != nil {
		if tok, err := c.cache.Get(ctx, tokenKey).Result(); err == nil && tok != "" {
			return tok, nil
		}
	}

	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"grant_type":    {"client_credentials"},
		"scope":         {"public"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("token request failed: %d %s", resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("no access_token in token response")
	}

	if c.cache != nil && tr.ExpiresIn > 0 {
		ttl := time.Duration(tr.ExpiresIn)*time.Second - tokenMargin
		if ttl > 0 {
			if err := c.cache.Set(ctx, tokenKey, tr.AccessToken, ttl).Err(); err != nil {
				c.logger.Warnw("Failed to cache osu token", "error", err)
			}
		}
	}

	return tr.AccessToken, nil
}

// FetchMatch retrieves one match with all of its events. The API returns
// at most 100 events per page; older pages are walked with the `before`
// cursor (earliest event id seen so far) until a short page, a page of
// pure duplicates, or the page cap.
func (c *Client) FetchMatch(ctx context.Context, matchID int64) (*models.MatchData, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	match, err := c.fetchPage(ctx, tok, matchID, 0)
	if err != nil {
		return nil, err
	}

	allEvents := match.Events
	page := 1

	for len(allEvents) > 0 && len(allEvents)%pageLimit == 0 && page < c.maxPages {
		earliest := allEvents[0].ID
		for _, e := range allEvents {
			if e.ID < earliest {
				earliest = e.ID
			}
		}

		page++
		c.logger.Debugw("Fetching match page", "match_id", matchID, "page", page, "before", earliest)

		pageData, err := c.fetchPage(ctx, tok, matchID, earliest)
		if err != nil {
			c.logger.Warnw("Failed to fetch match page", "match_id", matchID, "page", page, "error", err)
			break
		}
		if len(pageData.Events) == 0 {
			break
		}

		seen := make(map[int64]bool, len(allEvents))
		for _, e := range allEvents {
			seen[e.ID] = true
		}
		var fresh []models.MatchEvent
		for _, e := range pageData.Events {
			if !seen[e.ID] {
				fresh = append(fresh, e)
			}
		}
		if len(fresh) == 0 {
			break
		}

		allEvents = append(allEvents, fresh...)

		if len(pageData.Events) < pageLimit {
			break
		}
	}

	match.Events = allEvents

	games := 0
	for i := range allEvents {
		if allEvents[i].IsGame() {
			games++
		}
	}
	c.logger.Infow("Fetched match",
		"match_id", matchID,
		"events", len(allEvents),
		"games", games,
		"pages", page,
	)

	return match, nil
}

func (c *Client) fetchPage(ctx context.Context, token string, matchID, before int64) (*models.MatchData, error) {
	u := fmt.Sprintf("%s/matches/%d?limit=%d", c.apiBase, matchID, pageLimit)
	if before > 0 {
		u += "&before=" + strconv.FormatInt(before, 10)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build match request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch match %d: %w", matchID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("fetch match %d: token invalid or expired", matchID)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch match %d: %d %s", matchID, resp.StatusCode, string(body))
	}

	var match models.MatchData
	if err := json.NewDecoder(resp.Body).Decode(&match); err != nil {
		return nil, fmt.Errorf("decode match %d: %w", matchID, err)
	}

	return &match, nil
}
