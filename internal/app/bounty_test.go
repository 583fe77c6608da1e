package app_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"quiz-ledger-service/internal/app"
	"quiz-ledger-service/internal/domain"
	"quiz-ledger-service/internal/infra/memory"
)

// flakyAccounts fails credits while fail is set; debits and reads pass through.
type flakyAccounts struct {
	*memory.Store
	fail atomic.Bool
}

func (f *flakyAccounts) AddProgress(ctx context.Context, userID string, coins, xp int64) (domain.Account, error) {
	if f.fail.Load() {
		return domain.Account{}, errDown
	}
	return f.Store.AddProgress(ctx, userID, coins, xp)
}

func newFlakyHarness(t *testing.T) (*harness, *flakyAccounts) {
	t.Helper()
	var accounts *flakyAccounts
	h := newHarness(t, func(r *app.Repositories) {
		accounts = &flakyAccounts{Store: r.Accounts.(*memory.Store)}
		r.Accounts = accounts
	})
	return h, accounts
}

var quizBounty = domain.Bounty{
	ID:          "daily-3-quizzes",
	Title:       "Warm up",
	Type:        domain.BountyDaily,
	Metric:      domain.MetricQuizzesCompleted,
	Requirement: 2,
	CoinReward:  15,
	XPReward:    40,
}

func seedBounty(t *testing.T, h *harness) {
	t.Helper()
	if err := h.ledger.SeedBounties(context.Background(), []domain.Bounty{quizBounty}); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestClaimBountyLifecycle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.signup(t, "u1", "alice")
	seedBounty(t, h)

	if _, err := h.ledger.ClaimBounty(ctx, "u1", quizBounty.ID); !errors.Is(err, domain.ErrBountyNotFound) {
		t.Fatalf("expected bounty not found before progress, got %v", err)
	}
	if _, err := h.ledger.SettleQuiz(ctx, mediumQuiz("u1", 0, 3)); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if _, err := h.ledger.ClaimBounty(ctx, "u1", quizBounty.ID); !errors.Is(err, domain.ErrBountyNotCompleted) {
		t.Fatalf("expected not completed, got %v", err)
	}
	if _, err := h.ledger.SettleQuiz(ctx, mediumQuiz("u1", 0, 3)); err != nil {
		t.Fatalf("settle: %v", err)
	}

	claim, err := h.ledger.ClaimBounty(ctx, "u1", quizBounty.ID)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claim.CoinsAwarded != 15 || claim.XPAwarded != 40 {
		t.Fatalf("unexpected claim %+v", claim)
	}
	if _, err := h.ledger.ClaimBounty(ctx, "u1", quizBounty.ID); !errors.Is(err, domain.ErrBountyAlreadyClaimed) {
		t.Fatalf("expected already claimed, got %v", err)
	}

	a, _ := h.store.GetAccount(ctx, "u1")
	if a.Coins != 15 || a.XP != 40 {
		t.Fatalf("expected a single credit of 15/40, got %d/%d", a.Coins, a.XP)
	}

	views, err := h.ledger.ListBounties(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 1 || !views[0].Progress.Claimed || views[0].Progress.Progress != 2 {
		t.Fatalf("unexpected bounty views %+v", views)
	}
}

func TestClaimBountyConcurrentCreditsOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.signup(t, "u1", "alice")
	seedBounty(t, h)
	if err := h.ledger.AdvanceBounties(ctx, "u1", domain.MetricQuizzesCompleted, 2); err != nil {
		t.Fatalf("advance: %v", err)
	}

	const n = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.ledger.ClaimBounty(ctx, "u1", quizBounty.ID)
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
				return
			}
			if !errors.Is(err, domain.ErrBountyAlreadyClaimed) {
				t.Errorf("unexpected claim error: %v", err)
			}
		}()
	}
	wg.Wait()

	if success != 1 {
		t.Fatalf("expected exactly one successful claim, got %d", success)
	}
	if c := h.coins(t, "u1"); c != 15 {
		t.Fatalf("expected 15 coins, got %d", c)
	}
}

func TestSeedBountiesRejectsInvalid(t *testing.T) {
	h := newHarness(t, nil)
	err := h.ledger.SeedBounties(context.Background(), []domain.Bounty{{ID: "x", Requirement: 0}})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestListBountiesShowsUntouchedDefinitions(t *testing.T) {
	h := newHarness(t, nil)
	h.signup(t, "u1", "alice")
	seedBounty(t, h)

	views, err := h.ledger.ListBounties(context.Background(), "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 1 || views[0].Progress.Progress != 0 || views[0].Progress.UserID != "u1" {
		t.Fatalf("unexpected views %+v", views)
	}
	if _, err := h.ledger.ListBounties(context.Background(), "ghost"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected profile not found, got %v", err)
	}
}

func TestDailyBountyResetsAtDayBoundary(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.signup(t, "u1", "alice")
	bounty := quizBounty
	bounty.Requirement = 3
	if err := h.ledger.SeedBounties(ctx, []domain.Bounty{bounty}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := h.ledger.AdvanceBounties(ctx, "u1", domain.MetricQuizzesCompleted, 2); err != nil {
		t.Fatalf("advance: %v", err)
	}
	h.clock.Advance(24 * time.Hour)
	if err := h.ledger.AdvanceBounties(ctx, "u1", domain.MetricQuizzesCompleted, 1); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := h.ledger.ClaimBounty(ctx, "u1", bounty.ID); !errors.Is(err, domain.ErrBountyNotCompleted) {
		t.Fatalf("yesterday's progress must not carry over, got %v", err)
	}

	if err := h.ledger.AdvanceBounties(ctx, "u1", domain.MetricQuizzesCompleted, 2); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := h.ledger.ClaimBounty(ctx, "u1", bounty.ID); err != nil {
		t.Fatalf("claim day two: %v", err)
	}

	h.clock.Advance(24 * time.Hour)
	views, err := h.ledger.ListBounties(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 1 || views[0].Progress.Progress != 0 || views[0].Progress.Claimed || views[0].Progress.Period != "2024-03-12" {
		t.Fatalf("expected a fresh row for the new day, got %+v", views)
	}
	if err := h.ledger.AdvanceBounties(ctx, "u1", domain.MetricQuizzesCompleted, 3); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := h.ledger.ClaimBounty(ctx, "u1", bounty.ID); err != nil {
		t.Fatalf("claim day three: %v", err)
	}
	if c := h.coins(t, "u1"); c != 30 {
		t.Fatalf("expected two daily rewards of 15, got %d", c)
	}
}

func TestClaimBountyReleasedWhenCreditFails(t *testing.T) {
	ctx := context.Background()
	h, accounts := newFlakyHarness(t)
	h.signup(t, "u1", "alice")
	seedBounty(t, h)
	if err := h.ledger.AdvanceBounties(ctx, "u1", domain.MetricQuizzesCompleted, 2); err != nil {
		t.Fatalf("advance: %v", err)
	}

	accounts.fail.Store(true)
	if _, err := h.ledger.ClaimBounty(ctx, "u1", quizBounty.ID); !errors.Is(err, errDown) {
		t.Fatalf("expected credit failure, got %v", err)
	}
	ub, err := h.store.GetUserBounty(ctx, "u1", quizBounty.ID, "2024-03-10")
	if err != nil {
		t.Fatalf("get user bounty: %v", err)
	}
	if ub.Claimed || ub.ClaimedAt != nil {
		t.Fatalf("expected claim released after failed credit, got %+v", ub)
	}

	accounts.fail.Store(false)
	if _, err := h.ledger.ClaimBounty(ctx, "u1", quizBounty.ID); err != nil {
		t.Fatalf("retry claim: %v", err)
	}
	if c := h.coins(t, "u1"); c != 15 {
		t.Fatalf("expected 15 coins after retry, got %d", c)
	}
}
