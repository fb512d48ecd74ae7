package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"testing"

	"github.com/boredtap/engine/internal/config"
	"github.com/boredtap/engine/internal/domain"
)

// fakeLedger is an in-memory LedgerStore.
type fakeLedger struct {
	entries map[string]domain.DailyLedger
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{entries: make(map[string]domain.DailyLedger)}
}

func (f *fakeLedger) IncrementDailyValue(_ context.Context, userID, day string, delta int64) (int64, error) {
	if f.entries[userID] == nil {
		f.entries[userID] = make(domain.DailyLedger)
	}
	f.entries[userID][day] += delta
	return f.entries[userID][day], nil
}

func (f *fakeLedger) GetDailyValue(_ context.Context, userID, day string) (int64, error) {
	return f.entries[userID][day], nil
}

func (f *fakeLedger) GetAllEntries(_ context.Context, userID string) (domain.DailyLedger, error) {
	ledger := make(domain.DailyLedger, len(f.entries[userID]))
	for day, coins := range f.entries[userID] {
		ledger[day] = coins
	}
	return ledger, nil
}

func (f *fakeLedger) AllEntries(_ context.Context) (map[string]domain.DailyLedger, error) {
	all := make(map[string]domain.DailyLedger, len(f.entries))
	for userID := range f.entries {
		ledger, _ := f.GetAllEntries(context.Background(), userID)
		all[userID] = ledger
	}
	return all, nil
}

// fakeProfiles is an in-memory ProfileStore.
type fakeProfiles struct {
	users map[string]*domain.UserAccount

	// failSetStreakTimes makes the next N AtomicSetStreak calls report a
	// lost compare-and-swap without touching state.
	failSetStreakTimes int
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{users: make(map[string]*domain.UserAccount)}
}

func (f *fakeProfiles) add(user domain.UserAccount) {
	f.users[user.ID] = &user
}

func (f *fakeProfiles) GetUser(_ context.Context, userID string) (*domain.UserAccount, error) {
	user, ok := f.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeProfiles) GetUsers(_ context.Context, userIDs []string) (map[string]domain.UserAccount, error) {
	found := make(map[string]domain.UserAccount, len(userIDs))
	for _, userID := range userIDs {
		if user, ok := f.users[userID]; ok {
			found[userID] = *user
		}
	}
	return found, nil
}

func (f *fakeProfiles) ListUsersByCoins(_ context.Context) ([]domain.UserAccount, error) {
	users := make([]domain.UserAccount, 0, len(f.users))
	for _, user := range f.users {
		users = append(users, *user)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].TotalCoins != users[j].TotalCoins {
			return users[i].TotalCoins > users[j].TotalCoins
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func (f *fakeProfiles) AtomicIncrementCoins(_ context.Context, userID string, delta int64) (bool, error) {
	user, ok := f.users[userID]
	if !ok {
		return false, nil
	}
	user.TotalCoins += delta
	return true, nil
}

func (f *fakeProfiles) SetLevel(_ context.Context, userID string, level int, levelName string) error {
	user, ok := f.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if level > user.Level {
		user.Level = level
		user.LevelName = levelName
	}
	return nil
}

func (f *fakeProfiles) AtomicSetStreak(_ context.Context, userID string, expected, next domain.StreakState) (bool, error) {
	if f.failSetStreakTimes > 0 {
		f.failSetStreakTimes--
		return false, nil
	}
	user, ok := f.users[userID]
	if !ok {
		return false, nil
	}
	if !streakEqual(user.Streak, expected) {
		return false, nil
	}
	user.Streak = next
	return true, nil
}

func streakEqual(a, b domain.StreakState) bool {
	if a.CurrentStreak != b.CurrentStreak || a.LongestStreak != b.LongestStreak {
		return false
	}
	if (a.LastActionDate == nil) != (b.LastActionDate == nil) {
		return false
	}
	return a.LastActionDate == nil || a.LastActionDate.Equal(*b.LastActionDate)
}

// fakeClans is an in-memory ClanStore.
type fakeClans struct {
	clans   map[string]*domain.Clan
	members map[string][]string

	// memberErr fails ClanMemberIDs for the given clan ids.
	memberErr map[string]error

	// guardLost makes AtomicGuardedUpdate report zero rows for the
	// given clan ids, as if a concurrent run or deactivation won.
	guardLost map[string]bool
}

func newFakeClans() *fakeClans {
	return &fakeClans{
		clans:     make(map[string]*domain.Clan),
		members:   make(map[string][]string),
		memberErr: make(map[string]error),
		guardLost: make(map[string]bool),
	}
}

func (f *fakeClans) add(clan domain.Clan, memberIDs ...string) {
	f.clans[clan.ID] = &clan
	f.members[clan.ID] = memberIDs
}

func (f *fakeClans) ListActiveClans(_ context.Context) ([]domain.Clan, error) {
	var active []domain.Clan
	for _, clan := range f.clans {
		if clan.Status == domain.ClanStatusActive {
			active = append(active, *clan)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })
	return active, nil
}

func (f *fakeClans) ListClansByCoins(_ context.Context) ([]domain.Clan, error) {
	clans := make([]domain.Clan, 0, len(f.clans))
	for _, clan := range f.clans {
		clans = append(clans, *clan)
	}
	sort.Slice(clans, func(i, j int) bool {
		if clans[i].TotalCoins != clans[j].TotalCoins {
			return clans[i].TotalCoins > clans[j].TotalCoins
		}
		return clans[i].ID < clans[j].ID
	})
	return clans, nil
}

func (f *fakeClans) ClanMemberIDs(_ context.Context, clanID string) ([]string, error) {
	if err, ok := f.memberErr[clanID]; ok {
		return nil, err
	}
	return f.members[clanID], nil
}

func (f *fakeClans) AtomicGuardedUpdate(_ context.Context, clanID, day string, coinDelta int64) (bool, error) {
	if f.guardLost[clanID] {
		return false, nil
	}
	clan, ok := f.clans[clanID]
	if !ok || clan.Status != domain.ClanStatusActive || clan.LastEarnDate == day {
		return false, nil
	}
	clan.TotalCoins += coinDelta
	clan.LastEarnDate = day
	return true, nil
}

func (f *fakeClans) ReRank(_ context.Context, orderedClanIDs []string) error {
	for i, clanID := range orderedClanIDs {
		if clan, ok := f.clans[clanID]; ok {
			clan.Rank = i + 1
		}
	}
	return nil
}

// fakeHub records broadcasts.
type fakeHub struct {
	broadcasts []string
}

func (f *fakeHub) BroadcastLeaderboardUpdate(window string, _ []domain.LeaderboardRow) {
	f.broadcasts = append(f.broadcasts, window)
}

type testFixture struct {
	engine   *Engine
	ledger   *fakeLedger
	profiles *fakeProfiles
	clans    *fakeClans
	hub      *fakeHub
}

func newTestEngine(t *testing.T) *testFixture {
	t.Helper()

	ledger := newFakeLedger()
	profiles := newFakeProfiles()
	clans := newFakeClans()
	hub := &fakeHub{}

	cfg := &config.EngineConfig{
		DailyStreakReward: 500,
		ClanShareDivisor:  1000,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	engine := NewEngine(ledger, profiles, clans, cfg, logger)
	engine.SetHub(hub)

	return &testFixture{
		engine:   engine,
		ledger:   ledger,
		profiles: profiles,
		clans:    clans,
		hub:      hub,
	}
}
