package app

import (
	"context"

	"go.uber.org/zap"
	"quiz-ledger-service/internal/domain"
)

const maxLeaderboardSize = 100

// Leaderboard ranks users by quiz rewards earned over the trailing window.
// When nobody earned anything in the window it falls back to all-time balances
// so the board is never empty.
func (l *Ledger) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	limit = clampLeaderboard(limit)
	return l.cache.GetLeaderboard(ctx, limit, func(ctx context.Context) ([]domain.LeaderboardEntry, error) {
		return l.loadLeaderboard(ctx, limit)
	})
}

func (l *Ledger) loadLeaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	since := l.now().Add(-l.window)
	totals, err := l.transactions.TopEarners(ctx, domain.TxQuizReward, since, limit)
	if err != nil {
		return nil, err
	}

	if len(totals) == 0 {
		accounts, err := l.accounts.TopByCoins(ctx, limit)
		if err != nil {
			return nil, err
		}
		entries := make([]domain.LeaderboardEntry, 0, len(accounts))
		for i, a := range accounts {
			entries = append(entries, entryFor(i+1, a, a.Coins))
		}
		return entries, nil
	}

	ids := make([]string, 0, len(totals))
	for _, t := range totals {
		ids = append(ids, t.UserID)
	}
	accounts, err := l.accounts.GetAccounts(ctx, ids)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.LeaderboardEntry, 0, len(totals))
	for _, t := range totals {
		a, ok := accounts[t.UserID]
		if !ok {
			a = domain.Account{ID: t.UserID}
		}
		entries = append(entries, entryFor(len(entries)+1, a, t.Total))
	}
	return entries, nil
}

func entryFor(rank int, a domain.Account, coins int64) domain.LeaderboardEntry {
	return domain.LeaderboardEntry{
		Rank:          rank,
		UserID:        a.ID,
		Username:      a.Username,
		AvatarURL:     a.AvatarURL,
		Level:         a.Level(),
		Streak:        a.Streak,
		CoinsThisWeek: coins,
	}
}

// SubscribeLeaderboard streams leaderboard snapshots, starting with the current one.
// The caller must invoke cancel to release the subscription.
func (l *Ledger) SubscribeLeaderboard(ctx context.Context) (<-chan domain.Leaderboard, func(), error) {
	entries, err := l.Leaderboard(ctx, l.feedSize)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := l.feed.subscribe(entries)
	return ch, cancel, nil
}

// refreshLeaderboard drops cached snapshots and pushes a fresh one to live subscribers.
func (l *Ledger) refreshLeaderboard(ctx context.Context, userID string) {
	_ = l.step(ctx, "invalidate leaderboard cache", BestEffort, userID, l.cache.Invalidate)
	if !l.feed.hasSubscribers() {
		return
	}
	entries, err := l.Leaderboard(ctx, l.feedSize)
	if err != nil {
		l.log.Warn("leaderboard refresh failed", zap.Error(err))
		return
	}
	l.feed.publish(entries)
}

func clampLeaderboard(limit int) int {
	if limit <= 0 {
		return 10
	}
	if limit > maxLeaderboardSize {
		return maxLeaderboardSize
	}
	return limit
}
