package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/boredtap/engine/internal/config"
	"github.com/boredtap/engine/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL-based access to user profiles and clans.
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool returns the underlying connection pool
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(64) PRIMARY KEY,
			username VARCHAR(255) NOT NULL,
			total_coins BIGINT NOT NULL DEFAULT 0,
			level INT NOT NULL DEFAULT 1,
			level_name VARCHAR(32) NOT NULL DEFAULT 'Novice',
			current_streak INT NOT NULL DEFAULT 0,
			longest_streak INT NOT NULL DEFAULT 0,
			last_action_date TIMESTAMPTZ,
			clan_id VARCHAR(64),
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS clans (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL UNIQUE,
			creator VARCHAR(64),
			total_coins BIGINT NOT NULL DEFAULT 0,
			members INT NOT NULL DEFAULT 0,
			rank INT NOT NULL DEFAULT 0,
			status VARCHAR(16) NOT NULL DEFAULT 'pending',
			last_earn_date VARCHAR(10),
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_total_coins ON users(total_coins DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_users_clan ON users(clan_id)`,
		`CREATE INDEX IF NOT EXISTS idx_clans_total_coins ON clans(total_coins DESC)`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

const userColumns = `id, username, total_coins, level, level_name,
	current_streak, longest_streak, last_action_date, clan_id,
	created_at, updated_at`

func scanUser(row pgx.Row) (*domain.UserAccount, error) {
	var user domain.UserAccount
	var lastAction *time.Time
	var clanID *string
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.TotalCoins,
		&user.Level,
		&user.LevelName,
		&user.Streak.CurrentStreak,
		&user.Streak.LongestStreak,
		&lastAction,
		&clanID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Streak.LastActionDate = lastAction
	if clanID != nil {
		user.ClanID = *clanID
	}
	return &user, nil
}

// CreateUser inserts a new user profile
func (r *Repository) CreateUser(ctx context.Context, user domain.UserAccount) error {
	query := `
		INSERT INTO users (id, username, total_coins, level, level_name, clan_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $7)
	`
	now := time.Now()
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.TotalCoins,
		user.Level,
		user.LevelName,
		user.ClanID,
		now,
	)
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

// GetUser retrieves a user profile by id
func (r *Repository) GetUser(ctx context.Context, userID string) (*domain.UserAccount, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return user, nil
}

// ListUsersByCoins returns every user ordered by total_coins descending.
// The database ordering is stable for ties, which the all-time
// leaderboard relies on.
func (r *Repository) ListUsersByCoins(ctx context.Context) ([]domain.UserAccount, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY total_coins DESC, created_at ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []domain.UserAccount
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *user)
	}
	return users, nil
}

// GetUsers retrieves multiple user profiles in one round trip.
// Missing ids are simply absent from the result map.
func (r *Repository) GetUsers(ctx context.Context, userIDs []string) (map[string]domain.UserAccount, error) {
	if len(userIDs) == 0 {
		return map[string]domain.UserAccount{}, nil
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1)`
	rows, err := r.pool.Query(ctx, query, userIDs)
	if err != nil {
		return nil, fmt.Errorf("getting users: %w", err)
	}
	defer rows.Close()

	users := make(map[string]domain.UserAccount, len(userIDs))
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users[user.ID] = *user
	}
	return users, nil
}

// AtomicIncrementCoins atomically adds delta to a user's cumulative
// total. Returns false if the user no longer exists.
func (r *Repository) AtomicIncrementCoins(ctx context.Context, userID string, delta int64) (bool, error) {
	query := `UPDATE users SET total_coins = total_coins + $2, updated_at = $3 WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, userID, delta, time.Now())
	if err != nil {
		return false, fmt.Errorf("incrementing coins: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// SetLevel raises a user's level. The WHERE clause keeps level
// monotonically non-decreasing under concurrent resolutions.
func (r *Repository) SetLevel(ctx context.Context, userID string, level int, levelName string) error {
	query := `
		UPDATE users SET level = $2, level_name = $3, updated_at = $4
		WHERE id = $1 AND level < $2
	`
	_, err := r.pool.Exec(ctx, query, userID, level, levelName, time.Now())
	if err != nil {
		return fmt.Errorf("setting level: %w", err)
	}
	return nil
}

// AtomicSetStreak replaces a user's streak state only if the stored
// last_action_date still matches the expected prior state. Returns
// false when a concurrent action won the race.
func (r *Repository) AtomicSetStreak(ctx context.Context, userID string, expected, next domain.StreakState) (bool, error) {
	query := `
		UPDATE users
		SET current_streak = $2, longest_streak = $3, last_action_date = $4, updated_at = $5
		WHERE id = $1 AND last_action_date IS NOT DISTINCT FROM $6
	`
	result, err := r.pool.Exec(ctx, query,
		userID,
		next.CurrentStreak,
		next.LongestStreak,
		next.LastActionDate,
		time.Now(),
		expected.LastActionDate,
	)
	if err != nil {
		return false, fmt.Errorf("setting streak: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// CreateClan inserts a new clan
func (r *Repository) CreateClan(ctx context.Context, clan domain.Clan) error {
	query := `
		INSERT INTO clans (id, name, creator, total_coins, members, rank, status, last_earn_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9)
	`
	_, err := r.pool.Exec(ctx, query,
		clan.ID,
		clan.Name,
		clan.Creator,
		clan.TotalCoins,
		clan.Members,
		clan.Rank,
		string(clan.Status),
		clan.LastEarnDate,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("creating clan: %w", err)
	}
	return nil
}

const clanColumns = `id, name, creator, total_coins, members, rank, status, last_earn_date, created_at`

func scanClan(row pgx.Row) (*domain.Clan, error) {
	var clan domain.Clan
	var creator, lastEarn *string
	err := row.Scan(
		&clan.ID,
		&clan.Name,
		&creator,
		&clan.TotalCoins,
		&clan.Members,
		&clan.Rank,
		&clan.Status,
		&lastEarn,
		&clan.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if creator != nil {
		clan.Creator = *creator
	}
	if lastEarn != nil {
		clan.LastEarnDate = *lastEarn
	}
	return &clan, nil
}

// GetClan retrieves a clan by id
func (r *Repository) GetClan(ctx context.Context, clanID string) (*domain.Clan, error) {
	query := `SELECT ` + clanColumns + ` FROM clans WHERE id = $1`
	clan, err := scanClan(r.pool.QueryRow(ctx, query, clanID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrClanNotFound
		}
		return nil, fmt.Errorf("getting clan: %w", err)
	}
	return clan, nil
}

// ListActiveClans returns clans with status active
func (r *Repository) ListActiveClans(ctx context.Context) ([]domain.Clan, error) {
	query := `SELECT ` + clanColumns + ` FROM clans WHERE status = 'active' ORDER BY created_at ASC`
	return r.listClans(ctx, query)
}

// ListClansByCoins returns every clan, any status, ordered by pool
// balance descending. Ties keep insertion order.
func (r *Repository) ListClansByCoins(ctx context.Context) ([]domain.Clan, error) {
	query := `SELECT ` + clanColumns + ` FROM clans ORDER BY total_coins DESC, created_at ASC`
	return r.listClans(ctx, query)
}

func (r *Repository) listClans(ctx context.Context, query string) ([]domain.Clan, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing clans: %w", err)
	}
	defer rows.Close()

	var clans []domain.Clan
	for rows.Next() {
		clan, err := scanClan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning clan: %w", err)
		}
		clans = append(clans, *clan)
	}
	return clans, nil
}

// ClanMemberIDs returns the user ids of a clan's members
func (r *Repository) ClanMemberIDs(ctx context.Context, clanID string) ([]string, error) {
	query := `SELECT id FROM users WHERE clan_id = $1`
	rows, err := r.pool.Query(ctx, query, clanID)
	if err != nil {
		return nil, fmt.Errorf("listing clan members: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning member id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// AtomicGuardedUpdate credits a clan's pool and sets its guard date in
// one conditional update. The WHERE clause is the idempotence guard:
// once last_earn_date equals day, every later attempt for that day
// matches zero rows. Returns false when the guard blocked the update
// or the clan is gone.
func (r *Repository) AtomicGuardedUpdate(ctx context.Context, clanID, day string, coinDelta int64) (bool, error) {
	query := `
		UPDATE clans
		SET total_coins = total_coins + $3, last_earn_date = $2
		WHERE id = $1 AND status = 'active' AND last_earn_date IS DISTINCT FROM $2
	`
	result, err := r.pool.Exec(ctx, query, clanID, day, coinDelta)
	if err != nil {
		return false, fmt.Errorf("guarded clan update: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// ReRank assigns dense ranks 1..N to the given clans in order.
func (r *Repository) ReRank(ctx context.Context, orderedClanIDs []string) error {
	if len(orderedClanIDs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `UPDATE clans SET rank = $2 WHERE id = $1`
	for i, clanID := range orderedClanIDs {
		batch.Queue(query, clanID, i+1)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range orderedClanIDs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("re-ranking clans: %w", err)
		}
	}
	return nil
}
