package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/boredtap/engine/internal/config"
	"github.com/boredtap/engine/internal/domain"
	"github.com/boredtap/engine/internal/service"
	"github.com/boredtap/engine/internal/websocket"
)

type stubLedger struct{}

func (stubLedger) IncrementDailyValue(_ context.Context, _, _ string, delta int64) (int64, error) {
	return delta, nil
}
func (stubLedger) GetDailyValue(_ context.Context, _, _ string) (int64, error) { return 0, nil }
func (stubLedger) GetAllEntries(_ context.Context, _ string) (domain.DailyLedger, error) {
	return domain.DailyLedger{}, nil
}
func (stubLedger) AllEntries(_ context.Context) (map[string]domain.DailyLedger, error) {
	return map[string]domain.DailyLedger{}, nil
}

// stubProfiles serves one user and always loses the streak CAS.
type stubProfiles struct {
	user domain.UserAccount
}

func (s *stubProfiles) GetUser(_ context.Context, userID string) (*domain.UserAccount, error) {
	if userID != s.user.ID {
		return nil, domain.ErrUserNotFound
	}
	copied := s.user
	return &copied, nil
}
func (s *stubProfiles) GetUsers(_ context.Context, _ []string) (map[string]domain.UserAccount, error) {
	return map[string]domain.UserAccount{}, nil
}
func (s *stubProfiles) ListUsersByCoins(_ context.Context) ([]domain.UserAccount, error) {
	return nil, nil
}
func (s *stubProfiles) AtomicIncrementCoins(_ context.Context, userID string, _ int64) (bool, error) {
	return userID == s.user.ID, nil
}
func (s *stubProfiles) SetLevel(_ context.Context, _ string, _ int, _ string) error { return nil }
func (s *stubProfiles) AtomicSetStreak(_ context.Context, _ string, _, _ domain.StreakState) (bool, error) {
	return false, nil
}

type stubClans struct{}

func (stubClans) ListActiveClans(_ context.Context) ([]domain.Clan, error)  { return nil, nil }
func (stubClans) ListClansByCoins(_ context.Context) ([]domain.Clan, error) { return nil, nil }
func (stubClans) ClanMemberIDs(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}
func (stubClans) AtomicGuardedUpdate(_ context.Context, _, _ string, _ int64) (bool, error) {
	return false, nil
}
func (stubClans) ReRank(_ context.Context, _ []string) error { return nil }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := service.NewEngine(
		stubLedger{},
		&stubProfiles{user: domain.UserAccount{ID: "u1", Username: "alice", Level: 1}},
		stubClans{},
		&config.EngineConfig{DailyStreakReward: 500, ClanShareDivisor: 1000},
		logger,
	)
	hub := websocket.NewHub(logger)
	return NewHandler(engine, hub, logger).Router()
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGrantCoinsInvalidEventReturns400(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/coins",
		`{"user_id":"u1","amount":0,"type":"tap"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Success {
		t.Error("success = true, want false")
	}
}

func TestApplyStreakActionConflictReturns409(t *testing.T) {
	router := newTestRouter(t)

	// The stub profile store always loses the streak compare-and-swap,
	// so the engine's retry is exhausted and the conflict surfaces.
	rec := doRequest(t, router, http.MethodPost, "/api/v1/earn/streak/u1", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestApplyStreakActionUnknownUserReturns404(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/earn/streak/nobody", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
