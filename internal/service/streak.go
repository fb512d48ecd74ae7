package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boredtap/engine/internal/domain"
)

const (
	// streakGrace is the minimum gap between qualifying actions.
	streakGrace = 24 * time.Hour
	// streakDeadline is the longest gap that still continues a streak.
	streakDeadline = 48 * time.Hour
)

// ApplyStreakAction evaluates one streak attempt at the given instant.
// The state machine re-derives everything from the stored timestamp:
//
//   - no prior action: streak starts at 1, reward granted
//   - within 24h of the last action: no change, countdown returned
//   - 24h..48h later on a new calendar date: streak continues
//   - more than 48h later: streak restarts at 1, longest kept
//
// The streak write is a compare-and-swap on the prior state; losing the
// race to a concurrent action is retried once by re-reading.
func (e *Engine) ApplyStreakAction(ctx context.Context, userID string, now time.Time) (*domain.StreakResult, error) {
	for attempt := 0; ; attempt++ {
		user, err := e.profiles.GetUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("reading streak state: %w", err)
		}

		result := evaluateStreak(user.Streak, now)
		if !result.RewardGranted {
			return result, nil
		}

		modified, err := e.profiles.AtomicSetStreak(ctx, userID, user.Streak, result.State)
		if err != nil {
			return nil, fmt.Errorf("updating streak state: %w", err)
		}
		if !modified {
			if attempt == 0 {
				continue
			}
			return nil, domain.ErrConcurrentUpdate
		}

		err = e.GrantCoins(ctx, domain.CoinEvent{
			UserID:    userID,
			Amount:    e.config.DailyStreakReward,
			Type:      domain.CoinEventStreak,
			Timestamp: now,
		})
		if err != nil {
			return nil, fmt.Errorf("granting streak reward: %w", err)
		}

		e.logger.Info("streak action applied",
			"user_id", userID,
			"current_streak", result.State.CurrentStreak,
			"longest_streak", result.State.LongestStreak,
		)
		return result, nil
	}
}

// GetStreak returns a user's current streak state without mutating it.
func (e *Engine) GetStreak(ctx context.Context, userID string) (*domain.StreakState, error) {
	user, err := e.profiles.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &user.Streak, nil
}

// evaluateStreak computes the next streak state from the prior one.
// Pure function; the caller owns persistence and the reward.
func evaluateStreak(prior domain.StreakState, now time.Time) *domain.StreakResult {
	if prior.LastActionDate == nil {
		ts := now
		return &domain.StreakResult{
			State: domain.StreakState{
				CurrentStreak:  1,
				LongestStreak:  max(1, prior.LongestStreak),
				LastActionDate: &ts,
			},
			RewardGranted: true,
		}
	}

	elapsed := now.Sub(*prior.LastActionDate)
	sameDay := domain.DayKey(now) == domain.DayKey(*prior.LastActionDate)

	switch {
	case elapsed > streakDeadline:
		// Broken: current restarts, longest is a high-water mark.
		ts := now
		return &domain.StreakResult{
			State: domain.StreakState{
				CurrentStreak:  1,
				LongestStreak:  prior.LongestStreak,
				LastActionDate: &ts,
			},
			RewardGranted: true,
		}

	case elapsed >= streakGrace && !sameDay:
		current := prior.CurrentStreak + 1
		ts := now
		return &domain.StreakResult{
			State: domain.StreakState{
				CurrentStreak:  current,
				LongestStreak:  max(current, prior.LongestStreak),
				LastActionDate: &ts,
			},
			RewardGranted: true,
		}

	default:
		// Still inside the grace window; not an error.
		wait := streakGrace - elapsed
		if wait < 0 {
			wait = 0
		}
		return &domain.StreakResult{
			State:         prior,
			RewardGranted: false,
			WaitRemaining: wait,
		}
	}
}
