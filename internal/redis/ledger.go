package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/boredtap/engine/internal/config"
	"github.com/boredtap/engine/internal/domain"
	"github.com/redis/go-redis/v9"
)

// LedgerStore provides Redis-based access to the per-user daily coin
// ledger. Each user owns one hash keyed by calendar date; values only
// ever grow through atomic increments.
type LedgerStore struct {
	client *redis.Client
	logger *slog.Logger
}

// NewLedgerStore creates a new Redis ledger store
func NewLedgerStore(cfg *config.RedisConfig, logger *slog.Logger) (*LedgerStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &LedgerStore{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (s *LedgerStore) Close() error {
	return s.client.Close()
}

// Client returns the underlying Redis client
func (s *LedgerStore) Client() *redis.Client {
	return s.client
}

// dailyKey returns the Redis key for a user's daily coin hash
func (s *LedgerStore) dailyKey(userID string) string {
	return fmt.Sprintf("ledger:%s:daily", userID)
}

// usersKey returns the Redis key of the set indexing users with a ledger
func (s *LedgerStore) usersKey() string {
	return "ledger:users"
}

// IncrementDailyValue atomically adds delta coins to the user's entry
// for the given day key, creating the entry on first use.
func (s *LedgerStore) IncrementDailyValue(ctx context.Context, userID, day string, delta int64) (int64, error) {
	pipe := s.client.Pipeline()
	incrCmd := pipe.HIncrBy(ctx, s.dailyKey(userID), day, delta)
	pipe.SAdd(ctx, s.usersKey(), userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("incrementing daily value: %w", err)
	}
	return incrCmd.Val(), nil
}

// GetDailyValue returns the coins a user earned on the given day,
// or 0 if no entry exists.
func (s *LedgerStore) GetDailyValue(ctx context.Context, userID, day string) (int64, error) {
	val, err := s.client.HGet(ctx, s.dailyKey(userID), day).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("getting daily value: %w", err)
	}
	coins, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing daily value: %w", err)
	}
	return coins, nil
}

// GetAllEntries returns a user's full date-to-coins mapping.
func (s *LedgerStore) GetAllEntries(ctx context.Context, userID string) (domain.DailyLedger, error) {
	result, err := s.client.HGetAll(ctx, s.dailyKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("getting ledger entries: %w", err)
	}

	ledger := make(domain.DailyLedger, len(result))
	for day, val := range result {
		coins, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			s.logger.Warn("skipping malformed ledger value",
				"user_id", userID,
				"day", day,
				"value", val,
			)
			continue
		}
		ledger[day] = coins
	}
	return ledger, nil
}

// AllEntries returns the ledgers of every user that has ever earned
// coins. Reads are pipelined; the result is an eventually-consistent
// snapshot, not point-in-time.
func (s *LedgerStore) AllEntries(ctx context.Context) (map[string]domain.DailyLedger, error) {
	userIDs, err := s.client.SMembers(ctx, s.usersKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("listing ledger users: %w", err)
	}

	pipe := s.client.Pipeline()
	cmds := make(map[string]*redis.MapStringStringCmd, len(userIDs))
	for _, userID := range userIDs {
		cmds[userID] = pipe.HGetAll(ctx, s.dailyKey(userID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("reading ledgers: %w", err)
	}

	ledgers := make(map[string]domain.DailyLedger, len(userIDs))
	for userID, cmd := range cmds {
		result := cmd.Val()
		if len(result) == 0 {
			continue
		}
		ledger := make(domain.DailyLedger, len(result))
		for day, val := range result {
			coins, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				continue
			}
			ledger[day] = coins
		}
		ledgers[userID] = ledger
	}
	return ledgers, nil
}

// DeleteLedger removes a user's ledger entirely. Only used when the
// surrounding application deletes the user.
func (s *LedgerStore) DeleteLedger(ctx context.Context, userID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.dailyKey(userID))
	pipe.SRem(ctx, s.usersKey(), userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("deleting ledger: %w", err)
	}
	return nil
}
