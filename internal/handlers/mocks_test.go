package handlers

import (
	"context"
	"sync"

	"github.com/owcfantasy/scoring-api/internal/models"
	"github.com/owcfantasy/scoring-api/internal/run"
)

type MockRunService struct {
	mu         sync.Mutex
	RunCalls   [][]int64
	RunDone    chan struct{}
	StatusMap  map[string]map[string]string
	StatusErr  error
}

func (m *MockRunService) Run(ctx context.Context, runID, tournament string, matchIDs []int64) (*run.Summary, error) {
	m.mu.Lock()
	m.RunCalls = append(m.RunCalls, matchIDs)
	m.mu.Unlock()
	if m.RunDone != nil {
		close(m.RunDone)
	}
	return &run.Summary{RunID: runID, MatchesProcessed: len(matchIDs)}, nil
}

func (m *MockRunService) Status(ctx context.Context, runID string) (map[string]string, error) {
	if m.StatusErr != nil {
		return nil, m.StatusErr
	}
	return m.StatusMap[runID], nil
}

type MockLedgerReader struct {
	Standing    *models.PlayerStanding
	StandingErr error
	Players     []models.PlayerStanding
	Users       []models.UserScore
	LastLimit   int
}

func (m *MockLedgerReader) PlayerStanding(ctx context.Context, osuID int64) (*models.PlayerStanding, error) {
	if m.StandingErr != nil {
		return nil, m.StandingErr
	}
	return m.Standing, nil
}

func (m *MockLedgerReader) TopPlayers(ctx context.Context, limit int) ([]models.PlayerStanding, error) {
	m.LastLimit = limit
	return m.Players, nil
}

func (m *MockLedgerReader) TopUsers(ctx context.Context, limit int) ([]models.UserScore, error) {
	m.LastLimit = limit
	return m.Users, nil
}

type MockHistoryReader struct {
	Rows []models.PlayerHistoryRow
	Err  error
}

func (m *MockHistoryReader) PlayerHistory(ctx context.Context, tournament string, userID int64, limit int) ([]models.PlayerHistoryRow, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Rows, nil
}
