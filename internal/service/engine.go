package service

import (
	"context"
	"log/slog"

	"github.com/boredtap/engine/internal/config"
	"github.com/boredtap/engine/internal/domain"
)

// LedgerStore is the per-user, per-date coin ledger collaborator.
// Implementations must provide atomic increment-by-key.
type LedgerStore interface {
	IncrementDailyValue(ctx context.Context, userID, day string, delta int64) (int64, error)
	GetDailyValue(ctx context.Context, userID, day string) (int64, error)
	GetAllEntries(ctx context.Context, userID string) (domain.DailyLedger, error)
	AllEntries(ctx context.Context) (map[string]domain.DailyLedger, error)
}

// ProfileStore is the user profile collaborator.
type ProfileStore interface {
	GetUser(ctx context.Context, userID string) (*domain.UserAccount, error)
	GetUsers(ctx context.Context, userIDs []string) (map[string]domain.UserAccount, error)
	ListUsersByCoins(ctx context.Context) ([]domain.UserAccount, error)
	AtomicIncrementCoins(ctx context.Context, userID string, delta int64) (bool, error)
	SetLevel(ctx context.Context, userID string, level int, levelName string) error
	AtomicSetStreak(ctx context.Context, userID string, expected, next domain.StreakState) (bool, error)
}

// ClanStore is the clan collaborator. AtomicGuardedUpdate must pair the
// pool credit with the guard-date set in a single atomic operation.
type ClanStore interface {
	ListActiveClans(ctx context.Context) ([]domain.Clan, error)
	ListClansByCoins(ctx context.Context) ([]domain.Clan, error)
	ClanMemberIDs(ctx context.Context, clanID string) ([]string, error)
	AtomicGuardedUpdate(ctx context.Context, clanID, day string, coinDelta int64) (bool, error)
	ReRank(ctx context.Context, orderedClanIDs []string) error
}

// Broadcaster pushes freshly built standings to connected clients.
type Broadcaster interface {
	BroadcastLeaderboardUpdate(window string, rows []domain.LeaderboardRow)
}

// Engine implements the gamification ledger and ranking operations:
// streak tracking, level resolution, the daily clan revenue share and
// leaderboard reconstruction.
type Engine struct {
	ledger   LedgerStore
	profiles ProfileStore
	clans    ClanStore
	config   *config.EngineConfig
	logger   *slog.Logger
	hub      Broadcaster
}

// NewEngine creates a new gamification engine. The config is copied
// and normalized so a zero-valued EngineConfig that bypassed
// config.Load still gets working constants (a zero divisor would
// otherwise panic the distribution job).
func NewEngine(
	ledger LedgerStore,
	profiles ProfileStore,
	clans ClanStore,
	cfg *config.EngineConfig,
	logger *slog.Logger,
) *Engine {
	engineCfg := *cfg
	if engineCfg.DailyStreakReward <= 0 {
		engineCfg.DailyStreakReward = 500
	}
	if engineCfg.ClanShareDivisor <= 0 {
		engineCfg.ClanShareDivisor = 1000
	}

	return &Engine{
		ledger:   ledger,
		profiles: profiles,
		clans:    clans,
		config:   &engineCfg,
		logger:   logger,
	}
}

// SetHub attaches a broadcaster for leaderboard pushes
func (e *Engine) SetHub(hub Broadcaster) {
	e.hub = hub
}
