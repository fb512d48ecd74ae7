package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/boredtap/engine/internal/domain"
)

// BuildLeaderboard reconstructs the standings for a window from the
// ledger, freshly on every call. Weekly and monthly scores are the
// maximum single-day value within a period, not the sum — this mirrors
// the shipped product behavior and must not be "fixed" here without a
// product decision.
func (e *Engine) BuildLeaderboard(ctx context.Context, window domain.Window) ([]domain.LeaderboardRow, error) {
	return e.BuildLeaderboardAt(ctx, window, time.Now())
}

// BuildLeaderboardAt is BuildLeaderboard with an explicit reference
// instant for the daily window.
func (e *Engine) BuildLeaderboardAt(ctx context.Context, window domain.Window, now time.Time) ([]domain.LeaderboardRow, error) {
	switch window {
	case domain.WindowAllTime:
		return e.buildAllTime(ctx)
	case domain.WindowDaily:
		return e.buildFromLedger(ctx, func(ledger domain.DailyLedger) int64 {
			return ledger[domain.DayKey(now)]
		})
	case domain.WindowWeekly:
		return e.buildFromLedger(ctx, periodMaxScore(domain.WeekKey))
	case domain.WindowMonthly:
		return e.buildFromLedger(ctx, periodMaxScore(domain.MonthKey))
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrInvalidWindow, window)
}

// buildAllTime ranks every profile by cumulative total.
func (e *Engine) buildAllTime(ctx context.Context) ([]domain.LeaderboardRow, error) {
	users, err := e.profiles.ListUsersByCoins(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	rows := make([]domain.LeaderboardRow, len(users))
	for i, user := range users {
		rows[i] = domain.LeaderboardRow{
			Rank:          int64(i + 1),
			UserID:        user.ID,
			Username:      user.Username,
			Level:         user.Level,
			LevelName:     user.LevelName,
			Coins:         user.TotalCoins,
			LongestStreak: user.Streak.LongestStreak,
		}
	}
	return rows, nil
}

// buildFromLedger scores every ledger with the given function, drops
// zero scores, joins against live profiles and assigns dense ranks.
// Users whose profile is gone are silently filtered, not errors.
func (e *Engine) buildFromLedger(ctx context.Context, score func(domain.DailyLedger) int64) ([]domain.LeaderboardRow, error) {
	ledgers, err := e.ledger.AllEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading ledgers: %w", err)
	}

	type scored struct {
		userID string
		coins  int64
	}
	var entries []scored
	for userID, ledger := range ledgers {
		if coins := score(ledger); coins > 0 {
			entries = append(entries, scored{userID: userID, coins: coins})
		}
	}

	// Descending by score; ties go to the lower user id so ordering is
	// deterministic across rebuilds.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].coins != entries[j].coins {
			return entries[i].coins > entries[j].coins
		}
		return entries[i].userID < entries[j].userID
	})

	userIDs := make([]string, len(entries))
	for i, entry := range entries {
		userIDs[i] = entry.userID
	}
	users, err := e.profiles.GetUsers(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("joining profiles: %w", err)
	}

	rows := make([]domain.LeaderboardRow, 0, len(entries))
	for _, entry := range entries {
		user, ok := users[entry.userID]
		if !ok {
			continue
		}
		rows = append(rows, domain.LeaderboardRow{
			Rank:          int64(len(rows) + 1),
			UserID:        user.ID,
			Username:      user.Username,
			Level:         user.Level,
			LevelName:     user.LevelName,
			Coins:         entry.coins,
			LongestStreak: user.Streak.LongestStreak,
		})
	}
	return rows, nil
}

// periodMaxScore groups a ledger's days with periodKey, takes the
// maximum single-day value within each period, and returns the best
// period's value as the score. Malformed day keys are skipped.
func periodMaxScore(periodKey func(time.Time) string) func(domain.DailyLedger) int64 {
	return func(ledger domain.DailyLedger) int64 {
		periods := make(map[string]int64)
		for day, coins := range ledger {
			date, err := domain.ParseDayKey(day)
			if err != nil {
				continue
			}
			key := periodKey(date)
			if coins > periods[key] {
				periods[key] = coins
			}
		}

		var best int64
		for _, coins := range periods {
			if coins > best {
				best = coins
			}
		}
		return best
	}
}

// PublishWindow pushes a freshly built leaderboard to subscribers.
// Best effort: build failures are logged, never surfaced to callers.
func (e *Engine) PublishWindow(ctx context.Context, window domain.Window) {
	if e.hub == nil {
		return
	}
	rows, err := e.BuildLeaderboard(ctx, window)
	if err != nil {
		e.logger.Warn("failed to build leaderboard for broadcast",
			"window", window,
			"error", err,
		)
		return
	}
	e.hub.BroadcastLeaderboardUpdate(string(window), rows)
}

// PublishStandings rebuilds and broadcasts every window. Called after
// the daily distribution so subscribers see the payout reflected.
func (e *Engine) PublishStandings(ctx context.Context) {
	for _, window := range []domain.Window{
		domain.WindowAllTime,
		domain.WindowDaily,
		domain.WindowWeekly,
		domain.WindowMonthly,
	} {
		e.PublishWindow(ctx, window)
	}
}
