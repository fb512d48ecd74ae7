package domain

import "time"

// UserAccount represents a player profile as stored in the profile store.
type UserAccount struct {
	ID         string      `json:"id"`
	Username   string      `json:"username"`
	TotalCoins int64       `json:"total_coins"`
	Level      int         `json:"level"`
	LevelName  string      `json:"level_name"`
	Streak     StreakState `json:"streak"`
	ClanID     string      `json:"clan_id,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// StreakState holds a user's consecutive-day action streak.
// LongestStreak is a historical high-water mark and never decreases.
type StreakState struct {
	CurrentStreak  int        `json:"current_streak"`
	LongestStreak  int        `json:"longest_streak"`
	LastActionDate *time.Time `json:"last_action_date,omitempty"`
}

// StreakResult is the outcome of a streak action attempt.
// When RewardGranted is false the action fell inside the grace window
// and WaitRemaining holds the time until the next qualifying action.
type StreakResult struct {
	State         StreakState   `json:"state"`
	RewardGranted bool          `json:"reward_granted"`
	WaitRemaining time.Duration `json:"wait_remaining,omitempty"`
}

// CoinEventType identifies what earned the coins.
type CoinEventType string

const (
	CoinEventTap       CoinEventType = "tap"
	CoinEventTask      CoinEventType = "task"
	CoinEventReferral  CoinEventType = "referral"
	CoinEventStreak    CoinEventType = "streak"
	CoinEventClanShare CoinEventType = "clan_share"
)

// CoinEvent represents a single coin-earning action to be applied to
// the ledger and the user's cumulative total.
type CoinEvent struct {
	UserID    string                 `json:"user_id"`
	Amount    int64                  `json:"amount"`
	Type      CoinEventType          `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// BatchCoinEvents represents multiple coin events.
type BatchCoinEvents struct {
	Events []CoinEvent `json:"events"`
}
