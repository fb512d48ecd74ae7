package domain

import "time"

// ClanStatus represents the lifecycle state of a clan.
type ClanStatus string

const (
	ClanStatusPending ClanStatus = "pending"
	ClanStatusActive  ClanStatus = "active"
	ClanStatusDisband ClanStatus = "disband"
)

// Clan represents a clan and its coin pool.
// LastEarnDate guards the daily revenue share: once set to day D the
// distribution for D must never run again.
type Clan struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Creator      string     `json:"creator,omitempty"`
	TotalCoins   int64      `json:"total_coins"`
	Members      int        `json:"members"`
	Rank         int        `json:"rank"`
	Status       ClanStatus `json:"status"`
	LastEarnDate string     `json:"last_earn_date,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// DistributionResult is the outcome of one daily revenue-share run.
// Distributed maps clan id to the amount credited to that clan's pool;
// clans skipped by the guard date appear with amount 0. FailedClans
// lists clans whose processing errored and was isolated.
type DistributionResult struct {
	Day         string           `json:"day"`
	Distributed map[string]int64 `json:"distributed"`
	FailedClans []string         `json:"failed_clans,omitempty"`
}
