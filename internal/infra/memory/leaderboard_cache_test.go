package memory

import (
	"context"
	"testing"
	"time"

	"quiz-ledger-service/internal/domain"
)

func TestLeaderboardCacheCaches(t *testing.T) {
	cache := NewLeaderboardCache(time.Minute)
	loader := &countingLoader{entries: []domain.LeaderboardEntry{{Rank: 1, UserID: "u1", CoinsThisWeek: 25}}}

	if _, err := cache.GetLeaderboard(context.Background(), 10, loader.load); err != nil {
		t.Fatalf("get leaderboard: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	got, err := cache.GetLeaderboard(context.Background(), 10, loader.load)
	if err != nil {
		t.Fatalf("get leaderboard 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
	if len(got) != 1 || got[0].UserID != "u1" {
		t.Fatalf("unexpected entries %+v", got)
	}

	if _, err := cache.GetLeaderboard(context.Background(), 5, loader.load); err != nil {
		t.Fatalf("get leaderboard limit 5: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected separate entry per limit, loader calls %d", loader.calls)
	}
}

func TestLeaderboardCacheInvalidateAndExpiry(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := NewLeaderboardCache(time.Minute)
	cache.clock = func() time.Time { return now }
	loader := &countingLoader{}

	_, _ = cache.GetLeaderboard(context.Background(), 10, loader.load)
	if err := cache.Invalidate(context.Background()); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = cache.GetLeaderboard(context.Background(), 10, loader.load)
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.calls)
	}

	now = now.Add(2 * time.Minute)
	_, _ = cache.GetLeaderboard(context.Background(), 10, loader.load)
	if loader.calls != 3 {
		t.Fatalf("expected reload after expiry, loader calls %d", loader.calls)
	}
}

func TestLeaderboardCacheDropsLoadRacingInvalidate(t *testing.T) {
	ctx := context.Background()
	cache := NewLeaderboardCache(time.Minute)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = cache.GetLeaderboard(ctx, 10, func(context.Context) ([]domain.LeaderboardEntry, error) {
			close(started)
			<-release
			return []domain.LeaderboardEntry{{Rank: 1, UserID: "u1", Username: "stale"}}, nil
		})
	}()

	<-started
	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	close(release)
	<-done

	fresh := func(context.Context) ([]domain.LeaderboardEntry, error) {
		return []domain.LeaderboardEntry{{Rank: 1, UserID: "u1", Username: "fresh"}}, nil
	}
	got, err := cache.GetLeaderboard(ctx, 10, fresh)
	if err != nil {
		t.Fatalf("get leaderboard: %v", err)
	}
	if len(got) != 1 || got[0].Username != "fresh" {
		t.Fatalf("expected load after invalidate to win, got %+v", got)
	}
}

type countingLoader struct {
	entries []domain.LeaderboardEntry
	calls   int
}

func (l *countingLoader) load(context.Context) ([]domain.LeaderboardEntry, error) {
	l.calls++
	return l.entries, nil
}
