package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boredtap/engine/internal/domain"
)

// GrantCoins applies one coin-earning action: it increments the user's
// cumulative total, appends to the daily ledger and re-resolves the
// user's level. Every coin-affecting path in the engine goes through
// here so the ledger stays a faithful parallel record of earnings.
func (e *Engine) GrantCoins(ctx context.Context, event domain.CoinEvent) error {
	if event.UserID == "" || event.Amount <= 0 {
		return domain.ErrInvalidCoinEvent
	}

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	modified, err := e.profiles.AtomicIncrementCoins(ctx, event.UserID, event.Amount)
	if err != nil {
		return fmt.Errorf("incrementing total coins: %w", err)
	}
	if !modified {
		return domain.ErrUserNotFound
	}

	if _, err := e.ledger.IncrementDailyValue(ctx, event.UserID, domain.DayKey(ts), event.Amount); err != nil {
		return fmt.Errorf("appending to ledger: %w", err)
	}

	if err := e.resolveLevelFor(ctx, event.UserID); err != nil {
		// The coins are committed; a failed level refresh corrects
		// itself on the next grant.
		e.logger.Warn("failed to refresh level after coin grant",
			"user_id", event.UserID,
			"error", err,
		)
	}

	e.logger.Debug("coins granted",
		"user_id", event.UserID,
		"amount", event.Amount,
		"type", event.Type,
	)
	return nil
}

// GrantCoinsBatch applies multiple coin events, isolating failures per
// event so one bad grant does not abort the batch.
func (e *Engine) GrantCoinsBatch(ctx context.Context, batch domain.BatchCoinEvents) error {
	for _, event := range batch.Events {
		if err := e.GrantCoins(ctx, event); err != nil {
			e.logger.Error("failed to grant coins in batch",
				"user_id", event.UserID,
				"type", event.Type,
				"error", err,
			)
			// Continue processing other events
		}
	}
	return nil
}

// resolveLevelFor re-reads the user's total and raises their level if
// a threshold was crossed.
func (e *Engine) resolveLevelFor(ctx context.Context, userID string) error {
	user, err := e.profiles.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	level, levelName := ResolveLevel(user.TotalCoins, user.Level)
	if level == user.Level {
		return nil
	}
	return e.profiles.SetLevel(ctx, userID, level, levelName)
}

// GetProfile returns a user's live game profile.
func (e *Engine) GetProfile(ctx context.Context, userID string) (*domain.UserAccount, error) {
	return e.profiles.GetUser(ctx, userID)
}
