package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boredtap/engine/internal/domain"
)

// RunDailyDistribution pays each active clan its share of the members'
// prior-day earnings: floor of aggregate earnings divided by the
// configured divisor, credited to the clan pool and flat to every
// member. The pool credit and the guard-date set happen in one atomic
// conditional update, so the job is safe to invoke any number of times
// per day; repeat runs distribute 0.
//
// Failures are isolated per clan and per member: the returned result
// carries the amounts that did commit plus the ids of clans whose
// processing errored.
func (e *Engine) RunDailyDistribution(ctx context.Context, now time.Time) (*domain.DistributionResult, error) {
	previousDay := domain.DayKey(now.AddDate(0, 0, -1))

	clans, err := e.clans.ListActiveClans(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing active clans: %w", err)
	}

	result := &domain.DistributionResult{
		Day:         previousDay,
		Distributed: make(map[string]int64, len(clans)),
	}

	for _, clan := range clans {
		if clan.LastEarnDate == previousDay {
			// Already distributed for that day.
			result.Distributed[clan.ID] = 0
			continue
		}

		share, err := e.distributeToClan(ctx, clan, previousDay, now)
		if err != nil {
			e.logger.Error("clan distribution failed",
				"clan_id", clan.ID,
				"day", previousDay,
				"error", err,
			)
			result.FailedClans = append(result.FailedClans, clan.ID)
			continue
		}
		result.Distributed[clan.ID] = share
	}

	if err := e.reRankClans(ctx); err != nil {
		// Ranks refresh on the next run; payouts above are committed.
		e.logger.Error("clan re-rank failed", "error", err)
	}

	e.logger.Info("daily distribution completed",
		"day", previousDay,
		"clans", len(clans),
		"failed", len(result.FailedClans),
	)
	return result, nil
}

// distributeToClan pays one clan and its members for previousDay.
// Member payouts land on now's ledger entry, not the previous day's.
func (e *Engine) distributeToClan(ctx context.Context, clan domain.Clan, previousDay string, now time.Time) (int64, error) {
	memberIDs, err := e.clans.ClanMemberIDs(ctx, clan.ID)
	if err != nil {
		return 0, fmt.Errorf("listing members: %w", err)
	}

	var earnings int64
	for _, memberID := range memberIDs {
		value, err := e.ledger.GetDailyValue(ctx, memberID, previousDay)
		if err != nil {
			return 0, fmt.Errorf("reading member ledger: %w", err)
		}
		earnings += value
	}

	share := earnings / e.config.ClanShareDivisor

	// The guard decides eligibility: zero rows means another run (or a
	// concurrent clan deletion) got here first, and no member may be
	// paid for an update that did not commit.
	modified, err := e.clans.AtomicGuardedUpdate(ctx, clan.ID, previousDay, share)
	if err != nil {
		return 0, fmt.Errorf("guarded clan update: %w", err)
	}
	if !modified {
		return 0, nil
	}

	if share > 0 {
		for _, memberID := range memberIDs {
			err := e.GrantCoins(ctx, domain.CoinEvent{
				UserID:    memberID,
				Amount:    share,
				Type:      domain.CoinEventClanShare,
				Timestamp: now,
			})
			if err != nil {
				// Isolated per member; remaining payouts still run.
				e.logger.Error("member payout failed",
					"clan_id", clan.ID,
					"user_id", memberID,
					"amount", share,
					"error", err,
				)
			}
		}
	}

	return share, nil
}

// reRankClans assigns dense ranks over every clan, active or not,
// ordered by pool balance descending.
func (e *Engine) reRankClans(ctx context.Context) error {
	clans, err := e.clans.ListClansByCoins(ctx)
	if err != nil {
		return fmt.Errorf("listing clans for re-rank: %w", err)
	}

	orderedIDs := make([]string, len(clans))
	for i, clan := range clans {
		orderedIDs[i] = clan.ID
	}
	return e.clans.ReRank(ctx, orderedIDs)
}

// TopClans returns the current clan standings, active clans only,
// ordered by pool balance descending.
func (e *Engine) TopClans(ctx context.Context, limit int) ([]domain.ClanStanding, error) {
	clans, err := e.clans.ListClansByCoins(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing clans: %w", err)
	}

	standings := make([]domain.ClanStanding, 0, limit)
	for _, clan := range clans {
		if clan.Status != domain.ClanStatusActive {
			continue
		}
		standings = append(standings, domain.ClanStanding{
			Rank:       clan.Rank,
			ClanID:     clan.ID,
			Name:       clan.Name,
			TotalCoins: clan.TotalCoins,
			Members:    clan.Members,
		})
		if len(standings) == limit {
			break
		}
	}
	return standings, nil
}
