package domain

import "fmt"

// Window represents a leaderboard time scope.
type Window string

const (
	WindowAllTime Window = "all_time"
	WindowDaily   Window = "daily"
	WindowWeekly  Window = "weekly"
	WindowMonthly Window = "monthly"
)

// ParseWindow validates a window name from the API surface.
func ParseWindow(s string) (Window, error) {
	switch Window(s) {
	case WindowAllTime, WindowDaily, WindowWeekly, WindowMonthly:
		return Window(s), nil
	}
	return "", fmt.Errorf("%w: unknown window %q", ErrInvalidWindow, s)
}

// LeaderboardRow is one ranked standing, joined with the live profile.
// Rows are derived fresh on every build and never persisted.
type LeaderboardRow struct {
	Rank          int64  `json:"rank"`
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	Level         int    `json:"level"`
	LevelName     string `json:"level_name"`
	Coins         int64  `json:"coins"`
	LongestStreak int    `json:"longest_streak"`
}

// ClanStanding is one clan's position in the clan ranking.
type ClanStanding struct {
	Rank       int    `json:"rank"`
	ClanID     string `json:"clan_id"`
	Name       string `json:"name"`
	TotalCoins int64  `json:"total_coins"`
	Members    int    `json:"members"`
}
