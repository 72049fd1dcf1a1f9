package osuapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"go.uber.org/zap"

	"github.com/owcfantasy/scoring-api/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(Config{
		ClientID:     "id",
		ClientSecret: "secret",
		APIBase:      srv.URL + "/api/v2",
		TokenURL:     srv.URL + "/oauth/token",
		Logger:       zap.NewNop(),
	})
	return c, srv
}

func writeEvents(w http.ResponseWriter, ids []int64) {
	events := make([]models.MatchEvent, 0, len(ids))
	for _, id := range ids {
		events = append(events, models.MatchEvent{ID: id})
	}
	json.NewEncoder(w).Encode(models.MatchData{
		Match:  models.MatchInfo{ID: 1},
		Events: events,
	})
}

func TestFetchMatchSinglePage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("token method = %s, want POST", r.Method)
		}
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	})
	mux.HandleFunc("/api/v2/matches/1", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("auth header = %q", got)
		}
		writeEvents(w, []int64{5, 6, 7})
	})

	c, _ := newTestClient(t, mux)

	match, err := c.FetchMatch(context.Background(), 1)
	if err != nil {
		t.Fatalf("FetchMatch: %v", err)
	}
	if len(match.Events) != 3 {
		t.Errorf("events = %d, want 3", len(match.Events))
	}
}

func TestFetchMatchPaginatesWithBeforeCursor(t *testing.T) {
	// First page: exactly 100 events (ids 101..200) triggers pagination.
	// Second page (before=101): 40 older events, short page ends the walk.
	var secondBefore string

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	})
	mux.HandleFunc("/api/v2/matches/9", func(w http.ResponseWriter, r *http.Request) {
		before := r.URL.Query().Get("before")
		if before == "" {
			ids := make([]int64, 0, 100)
			for i := int64(101); i <= 200; i++ {
				ids = append(ids, i)
			}
			writeEvents(w, ids)
			return
		}
		secondBefore = before
		ids := make([]int64, 0, 40)
		for i := int64(61); i <= 100; i++ {
			ids = append(ids, i)
		}
		writeEvents(w, ids)
	})

	c, _ := newTestClient(t, mux)

	match, err := c.FetchMatch(context.Background(), 9)
	if err != nil {
		t.Fatalf("FetchMatch: %v", err)
	}
	if secondBefore != "101" {
		t.Errorf("before cursor = %q, want 101 (earliest event id)", secondBefore)
	}
	if len(match.Events) != 140 {
		t.Errorf("events = %d, want 140", len(match.Events))
	}
}

func TestFetchMatchStopsOnDuplicatePage(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	})
	mux.HandleFunc("/api/v2/matches/3", func(w http.ResponseWriter, r *http.Request) {
		calls++
		// Always serve the same 100 events; page 2 is pure duplicates.
		ids := make([]int64, 0, 100)
		for i := int64(1); i <= 100; i++ {
			ids = append(ids, i)
		}
		writeEvents(w, ids)
	})

	c, _ := newTestClient(t, mux)

	match, err := c.FetchMatch(context.Background(), 3)
	if err != nil {
		t.Fatalf("FetchMatch: %v", err)
	}
	if calls != 2 {
		t.Errorf("page fetches = %d, want 2 (stop on all-duplicate page)", calls)
	}
	if len(match.Events) != 100 {
		t.Errorf("events = %d, want 100", len(match.Events))
	}
}

func TestFetchMatchErrors(t *testing.T) {
	tests := []struct {
		name        string
		tokenStatus int
		matchStatus int
	}{
		{"token failure", http.StatusInternalServerError, http.StatusOK},
		{"unauthorized match", http.StatusOK, http.StatusUnauthorized},
		{"missing match", http.StatusOK, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
				if tt.tokenStatus != http.StatusOK {
					w.WriteHeader(tt.tokenStatus)
					return
				}
				json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
			})
			mux.HandleFunc("/api/v2/matches/", func(w http.ResponseWriter, r *http.Request) {
				if tt.matchStatus != http.StatusOK {
					w.WriteHeader(tt.matchStatus)
					fmt.Fprint(w, "nope")
					return
				}
				writeEvents(w, []int64{1})
			})

			c, _ := newTestClient(t, mux)
			if _, err := c.FetchMatch(context.Background(), 12); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestFetchPageBeforeParam(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/matches/5", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != strconv.Itoa(pageLimit) {
			t.Errorf("limit = %q, want %d", got, pageLimit)
		}
		if got := r.URL.Query().Get("before"); got != "77" {
			t.Errorf("before = %q, want 77", got)
		}
		writeEvents(w, nil)
	})

	c, _ := newTestClient(t, mux)
	if _, err := c.fetchPage(context.Background(), "tok", 5, 77); err != nil {
		t.Fatalf("fetchPage: %v", err)
	}
}
