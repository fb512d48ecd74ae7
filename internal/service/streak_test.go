package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boredtap/engine/internal/domain"
)

var streakBase = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func streakUser(last *time.Time, current, longest int) domain.UserAccount {
	return domain.UserAccount{
		ID:       "u1",
		Username: "alice",
		Level:    1,
		Streak: domain.StreakState{
			CurrentStreak:  current,
			LongestStreak:  longest,
			LastActionDate: last,
		},
	}
}

func TestApplyStreakActionFirstAction(t *testing.T) {
	fx := newTestEngine(t)
	fx.profiles.add(streakUser(nil, 0, 0))

	result, err := fx.engine.ApplyStreakAction(context.Background(), "u1", streakBase)
	if err != nil {
		t.Fatalf("ApplyStreakAction: %v", err)
	}
	if !result.RewardGranted {
		t.Fatal("expected reward on first action")
	}
	if result.State.CurrentStreak != 1 || result.State.LongestStreak != 1 {
		t.Errorf("streak = %d/%d, want 1/1", result.State.CurrentStreak, result.State.LongestStreak)
	}

	user, _ := fx.profiles.GetUser(context.Background(), "u1")
	if user.TotalCoins != 500 {
		t.Errorf("total coins = %d, want 500", user.TotalCoins)
	}
	if got := fx.ledger.entries["u1"][domain.DayKey(streakBase)]; got != 500 {
		t.Errorf("ledger entry = %d, want 500", got)
	}
}

func TestApplyStreakActionWithinGrace(t *testing.T) {
	fx := newTestEngine(t)
	last := streakBase
	fx.profiles.add(streakUser(&last, 3, 5))

	now := streakBase.Add(1 * time.Hour)
	result, err := fx.engine.ApplyStreakAction(context.Background(), "u1", now)
	if err != nil {
		t.Fatalf("ApplyStreakAction: %v", err)
	}
	if result.RewardGranted {
		t.Fatal("expected no reward inside the grace window")
	}
	if result.WaitRemaining != 23*time.Hour {
		t.Errorf("wait remaining = %v, want 23h", result.WaitRemaining)
	}
	if result.State.CurrentStreak != 3 {
		t.Errorf("current streak = %d, want unchanged 3", result.State.CurrentStreak)
	}

	// No coins move on an ineligible attempt.
	user, _ := fx.profiles.GetUser(context.Background(), "u1")
	if user.TotalCoins != 0 {
		t.Errorf("total coins = %d, want 0", user.TotalCoins)
	}
}

func TestEvaluateStreakBoundaries(t *testing.T) {
	last := streakBase

	tests := []struct {
		name        string
		elapsed     time.Duration
		wantGranted bool
		wantCurrent int
		wantLongest int
		wantWait    time.Duration
	}{
		{"just before grace ends", 23*time.Hour + 59*time.Minute, false, 3, 5, 1 * time.Minute},
		{"exactly at grace boundary", 24 * time.Hour, true, 4, 5, 0},
		{"late but within deadline", 47 * time.Hour, true, 4, 5, 0},
		{"exactly at deadline", 48 * time.Hour, true, 4, 5, 0},
		{"just past deadline", 48*time.Hour + 1*time.Minute, true, 1, 5, 0},
		{"long gone", 10 * 24 * time.Hour, true, 1, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prior := domain.StreakState{
				CurrentStreak:  3,
				LongestStreak:  5,
				LastActionDate: &last,
			}
			result := evaluateStreak(prior, streakBase.Add(tt.elapsed))
			if result.RewardGranted != tt.wantGranted {
				t.Fatalf("granted = %v, want %v", result.RewardGranted, tt.wantGranted)
			}
			if result.State.CurrentStreak != tt.wantCurrent {
				t.Errorf("current = %d, want %d", result.State.CurrentStreak, tt.wantCurrent)
			}
			if result.State.LongestStreak != tt.wantLongest {
				t.Errorf("longest = %d, want %d", result.State.LongestStreak, tt.wantLongest)
			}
			if !tt.wantGranted && result.WaitRemaining != tt.wantWait {
				t.Errorf("wait = %v, want %v", result.WaitRemaining, tt.wantWait)
			}
		})
	}
}

func TestEvaluateStreakRaisesLongest(t *testing.T) {
	last := streakBase
	prior := domain.StreakState{
		CurrentStreak:  5,
		LongestStreak:  5,
		LastActionDate: &last,
	}
	result := evaluateStreak(prior, streakBase.Add(25*time.Hour))
	if result.State.CurrentStreak != 6 || result.State.LongestStreak != 6 {
		t.Errorf("streak = %d/%d, want 6/6", result.State.CurrentStreak, result.State.LongestStreak)
	}
}

func TestApplyStreakActionBrokenKeepsLongest(t *testing.T) {
	fx := newTestEngine(t)
	last := streakBase
	fx.profiles.add(streakUser(&last, 7, 7))

	result, err := fx.engine.ApplyStreakAction(context.Background(), "u1", streakBase.Add(72*time.Hour))
	if err != nil {
		t.Fatalf("ApplyStreakAction: %v", err)
	}
	if !result.RewardGranted {
		t.Fatal("expected reward after a broken streak restarts")
	}
	if result.State.CurrentStreak != 1 {
		t.Errorf("current streak = %d, want 1", result.State.CurrentStreak)
	}
	if result.State.LongestStreak != 7 {
		t.Errorf("longest streak = %d, want 7 kept", result.State.LongestStreak)
	}
}

func TestApplyStreakActionRetriesLostRace(t *testing.T) {
	fx := newTestEngine(t)
	fx.profiles.add(streakUser(nil, 0, 0))
	fx.profiles.failSetStreakTimes = 1

	result, err := fx.engine.ApplyStreakAction(context.Background(), "u1", streakBase)
	if err != nil {
		t.Fatalf("ApplyStreakAction after one lost race: %v", err)
	}
	if !result.RewardGranted {
		t.Fatal("expected reward after retry")
	}
}

func TestApplyStreakActionConcurrentUpdate(t *testing.T) {
	fx := newTestEngine(t)
	fx.profiles.add(streakUser(nil, 0, 0))
	fx.profiles.failSetStreakTimes = 2

	_, err := fx.engine.ApplyStreakAction(context.Background(), "u1", streakBase)
	if !errors.Is(err, domain.ErrConcurrentUpdate) {
		t.Fatalf("err = %v, want ErrConcurrentUpdate", err)
	}

	// No reward may be paid for a write that never committed.
	user, _ := fx.profiles.GetUser(context.Background(), "u1")
	if user.TotalCoins != 0 {
		t.Errorf("total coins = %d, want 0", user.TotalCoins)
	}
}

func TestGetStreakUnknownUser(t *testing.T) {
	fx := newTestEngine(t)
	_, err := fx.engine.GetStreak(context.Background(), "nobody")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}
