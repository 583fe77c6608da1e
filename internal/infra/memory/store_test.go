package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quiz-ledger-service/internal/domain"
)

func TestStoreAccountUniqueness(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	if err := store.CreateAccount(ctx, domain.Account{ID: "u1", Username: "ana"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.CreateAccount(ctx, domain.Account{ID: "u1", Username: "other"}); !errors.Is(err, domain.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
	if err := store.CreateAccount(ctx, domain.Account{ID: "u2", Username: "ana"}); !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if _, err := store.GetAccount(ctx, "missing"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestStoreAddProgressIsAtomic(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	_ = store.CreateAccount(ctx, domain.Account{ID: "u1", Username: "ana"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.AddProgress(ctx, "u1", 2, 10)
		}()
	}
	wg.Wait()

	a, _ := store.GetAccount(ctx, "u1")
	if a.Coins != 100 || a.XP != 500 {
		t.Fatalf("expected 100 coins / 500 xp, got %d / %d", a.Coins, a.XP)
	}
}

func TestStoreDebitCoinsRequiresBalance(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	_ = store.CreateAccount(ctx, domain.Account{ID: "u1", Username: "ana", Coins: 10})

	if _, err := store.DebitCoins(ctx, "u1", 11); !errors.Is(err, domain.ErrInsufficientCoins) {
		t.Fatalf("expected ErrInsufficientCoins, got %v", err)
	}
	a, err := store.DebitCoins(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if a.Coins != 0 {
		t.Fatalf("expected 0 coins, got %d", a.Coins)
	}
}

func TestStoreUpdateStreakKeepsMax(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	_ = store.CreateAccount(ctx, domain.Account{ID: "u1", Username: "ana", Streak: 4, MaxStreak: 4})

	a, _ := store.UpdateStreak(ctx, "u1", 1)
	if a.Streak != 1 || a.MaxStreak != 4 {
		t.Fatalf("expected streak 1 max 4, got %d max %d", a.Streak, a.MaxStreak)
	}
	a, _ = store.UpdateStreak(ctx, "u1", 5)
	if a.MaxStreak != 5 {
		t.Fatalf("expected max 5, got %d", a.MaxStreak)
	}
}

func TestStoreAccumulateActivity(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	first, _ := store.AccumulateActivity(ctx, "u1", day, 10, 25)
	second, _ := store.AccumulateActivity(ctx, "u1", day, 5, 7)
	if !first || second {
		t.Fatalf("expected only the first call to create the row, got %v %v", first, second)
	}
	row, found, _ := store.GetActivity(ctx, "u1", day)
	if !found || row.QuestionsAnswered != 15 || row.CoinsEarned != 32 || !row.StreakMaintained {
		t.Fatalf("unexpected row %+v", row)
	}
}

func TestStoreTopEarnersWindow(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	_ = store.AppendTransaction(ctx, domain.Transaction{UserID: "a", Type: domain.TxQuizReward, Amount: 10, CreatedAt: now.Add(-time.Hour)})
	_ = store.AppendTransaction(ctx, domain.Transaction{UserID: "a", Type: domain.TxQuizReward, Amount: 5, CreatedAt: now.Add(-2 * time.Hour)})
	_ = store.AppendTransaction(ctx, domain.Transaction{UserID: "b", Type: domain.TxQuizReward, Amount: 100, CreatedAt: now.Add(-8 * 24 * time.Hour)})
	_ = store.AppendTransaction(ctx, domain.Transaction{UserID: "c", Type: domain.TxBountyReward, Amount: 50, CreatedAt: now})

	totals, err := store.TopEarners(ctx, domain.TxQuizReward, now.Add(-7*24*time.Hour), 10)
	if err != nil {
		t.Fatalf("top earners: %v", err)
	}
	if len(totals) != 1 || totals[0].UserID != "a" || totals[0].Total != 15 {
		t.Fatalf("unexpected totals %+v", totals)
	}
}

func TestStoreBountyClaimTransitions(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	bounty := domain.Bounty{ID: "b1", Requirement: 2}
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	const day = "2024-03-01"

	if err := store.MarkBountyClaimed(ctx, "u1", "b1", day, at); !errors.Is(err, domain.ErrBountyNotFound) {
		t.Fatalf("expected ErrBountyNotFound, got %v", err)
	}
	_, _ = store.AdvanceUserBounty(ctx, "u1", bounty, day, 1)
	if err := store.MarkBountyClaimed(ctx, "u1", "b1", day, at); !errors.Is(err, domain.ErrBountyNotCompleted) {
		t.Fatalf("expected ErrBountyNotCompleted, got %v", err)
	}
	ub, _ := store.AdvanceUserBounty(ctx, "u1", bounty, day, 1)
	if !ub.Completed || ub.Period != day {
		t.Fatalf("expected completion at requirement, got %+v", ub)
	}
	if err := store.MarkBountyClaimed(ctx, "u1", "b1", day, at); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := store.MarkBountyClaimed(ctx, "u1", "b1", day, at); !errors.Is(err, domain.ErrBountyAlreadyClaimed) {
		t.Fatalf("expected ErrBountyAlreadyClaimed, got %v", err)
	}

	if err := store.ReleaseBountyClaim(ctx, "u1", "b1", day); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := store.MarkBountyClaimed(ctx, "u1", "b1", day, at); err != nil {
		t.Fatalf("expected claim after release, got %v", err)
	}
}

func TestStoreBountyProgressIsPerPeriod(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	bounty := domain.Bounty{ID: "b1", Requirement: 2}

	_, _ = store.AdvanceUserBounty(ctx, "u1", bounty, "2024-03-01", 2)
	next, _ := store.AdvanceUserBounty(ctx, "u1", bounty, "2024-03-02", 1)
	if next.Progress != 1 || next.Completed {
		t.Fatalf("expected fresh progress in the next period, got %+v", next)
	}

	rows, _ := store.ListUserBounties(ctx, "u1", []string{"2024-03-02"})
	if len(rows) != 1 || rows[0].Period != "2024-03-02" {
		t.Fatalf("expected only the requested period, got %+v", rows)
	}
	if _, err := store.GetUserBounty(ctx, "u1", "b1", "2024-03-03"); !errors.Is(err, domain.ErrBountyNotFound) {
		t.Fatalf("expected no row for an untouched period, got %v", err)
	}
}

func TestStoreReopenBet(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	_ = store.CreateBet(ctx, domain.DailyBet{ID: "bet1", UserID: "u1", TargetScore: 8, CoinsStaked: 10, TargetTotal: 10})
	if _, err := store.ResolveBet(ctx, "bet1", "math", true, 20, at); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := store.ReopenBet(ctx, "bet1"); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	bet, err := store.ActiveBet(ctx, "u1")
	if err != nil || bet.ID != "bet1" || bet.Won != nil || bet.Subject != nil {
		t.Fatalf("expected bet pending again, got %+v %v", bet, err)
	}
}

func TestStoreSingleActiveBet(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	if _, err := store.ActiveBet(ctx, "u1"); !errors.Is(err, domain.ErrBetNotFound) {
		t.Fatalf("expected ErrBetNotFound, got %v", err)
	}
	_ = store.CreateBet(ctx, domain.DailyBet{ID: "bet1", UserID: "u1", TargetScore: 8, CoinsStaked: 10, TargetTotal: 10})
	if err := store.CreateBet(ctx, domain.DailyBet{ID: "bet2", UserID: "u1"}); !errors.Is(err, domain.ErrActiveBetExists) {
		t.Fatalf("expected ErrActiveBetExists, got %v", err)
	}

	bet, err := store.ResolveBet(ctx, "bet1", "history", true, 20, at)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if bet.Pending() || *bet.CoinsWon != 20 {
		t.Fatalf("unexpected bet %+v", bet)
	}
	if _, err := store.ResolveBet(ctx, "bet1", "history", true, 20, at); !errors.Is(err, domain.ErrBetAlreadyResolved) {
		t.Fatalf("expected ErrBetAlreadyResolved, got %v", err)
	}
	if err := store.CreateBet(ctx, domain.DailyBet{ID: "bet2", UserID: "u1"}); err != nil {
		t.Fatalf("new bet after resolution: %v", err)
	}
}

func TestStoreCompleteDuelOnce(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	_ = store.CreateDuel(ctx, domain.Duel{ID: "d1", ChallengerID: "a", OpponentID: "b", Status: domain.DuelActive})

	winner := "a"
	d, err := store.CompleteDuel(ctx, "d1", 7, 5, &winner, at)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if d.Status != domain.DuelCompleted || *d.WinnerID != "a" {
		t.Fatalf("unexpected duel %+v", d)
	}
	if _, err := store.CompleteDuel(ctx, "d1", 7, 5, &winner, at); !errors.Is(err, domain.ErrDuelAlreadyCompleted) {
		t.Fatalf("expected ErrDuelAlreadyCompleted, got %v", err)
	}
}
