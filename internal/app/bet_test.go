package app_test

import (
	"context"
	"errors"
	"testing"

	"quiz-ledger-service/internal/app"
	"quiz-ledger-service/internal/domain"
	"quiz-ledger-service/internal/infra/memory"
)

type failingBets struct{ *memory.Store }

func (failingBets) CreateBet(context.Context, domain.DailyBet) error {
	return errDown
}

func TestPlaceBetDebitsStake(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.signup(t, "u1", "alice")
	h.fund(t, "u1", 100)

	bet, err := h.ledger.PlaceBet(ctx, "u1", 10, 8)
	if err != nil {
		t.Fatalf("place bet: %v", err)
	}
	if !bet.Pending() || bet.TargetTotal != 10 || bet.Subject != nil {
		t.Fatalf("unexpected bet %+v", bet)
	}
	if c := h.coins(t, "u1"); c != 90 {
		t.Fatalf("expected stake debited to 90, got %d", c)
	}

	history, _ := h.ledger.History(ctx, "u1", 10)
	if len(history) != 1 || history[0].Type != domain.TxBetPlaced || history[0].Amount != -10 {
		t.Fatalf("expected negative bet_placed entry, got %+v", history)
	}

	if _, err := h.ledger.PlaceBet(ctx, "u1", 5, 7); !errors.Is(err, domain.ErrActiveBetExists) {
		t.Fatalf("expected active bet error, got %v", err)
	}
	if c := h.coins(t, "u1"); c != 90 {
		t.Fatalf("rejected bet must not debit, balance %d", c)
	}
}

func TestPlaceBetRejections(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.signup(t, "u1", "alice")
	h.fund(t, "u1", 5)

	if _, err := h.ledger.PlaceBet(ctx, "u1", 5, 6); !errors.Is(err, domain.ErrInvalidTargetScore) {
		t.Fatalf("expected invalid target, got %v", err)
	}
	if _, err := h.ledger.PlaceBet(ctx, "u1", 0, 7); !errors.Is(err, domain.ErrInvalidStake) {
		t.Fatalf("expected invalid stake, got %v", err)
	}
	if _, err := h.ledger.PlaceBet(ctx, "u1", 10, 7); !errors.Is(err, domain.ErrInsufficientCoins) {
		t.Fatalf("expected insufficient coins, got %v", err)
	}
	if c := h.coins(t, "u1"); c != 5 {
		t.Fatalf("expected balance untouched at 5, got %d", c)
	}
	if _, err := h.ledger.PlaceBet(ctx, "ghost", 1, 7); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected profile not found, got %v", err)
	}
}

func TestPlaceBetRefundsWhenInsertFails(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, func(r *app.Repositories) {
		r.Bets = failingBets{r.Accounts.(*memory.Store)}
	})
	h.signup(t, "u1", "alice")
	h.fund(t, "u1", 100)

	if _, err := h.ledger.PlaceBet(ctx, "u1", 40, 9); !errors.Is(err, errDown) {
		t.Fatalf("expected insert failure, got %v", err)
	}
	if c := h.coins(t, "u1"); c != 100 {
		t.Fatalf("expected stake refunded to 100, got %d", c)
	}
}

func TestTenQuestionQuizResolvesBet(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.signup(t, "u1", "alice")
	h.fund(t, "u1", 100)

	if _, err := h.ledger.PlaceBet(ctx, "u1", 10, 8); err != nil {
		t.Fatalf("place bet: %v", err)
	}

	// A short quiz leaves the bet pending.
	if s, err := h.ledger.SettleQuiz(ctx, mediumQuiz("u1", 5, 5)); err != nil || s.ResolvedBet != nil {
		t.Fatalf("expected 5-question quiz not to resolve, bet=%v err=%v", s.ResolvedBet, err)
	}

	s, err := h.ledger.SettleQuiz(ctx, mediumQuiz("u1", 9, 10))
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	bet := s.ResolvedBet
	if bet == nil || bet.Won == nil || !*bet.Won || *bet.CoinsWon != 20 || *bet.Subject != "math" {
		t.Fatalf("expected won bet paying 20 on math, got %+v", bet)
	}
	// 100 - 10 stake + 10 (5/5) + 18 (9/10) + 20 payout
	if s.Profile.Coins != 138 {
		t.Fatalf("expected 138 coins, got %d", s.Profile.Coins)
	}
	if _, err := h.store.ActiveBet(ctx, "u1"); !errors.Is(err, domain.ErrBetNotFound) {
		t.Fatalf("expected no active bet after resolution, got %v", err)
	}
	if _, err := h.ledger.PlaceBet(ctx, "u1", 10, 7); err != nil {
		t.Fatalf("expected a new bet after resolution, got %v", err)
	}
}

func TestResolveBetMissedTarget(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.signup(t, "u1", "alice")
	h.fund(t, "u1", 50)

	if _, err := h.ledger.PlaceBet(ctx, "u1", 20, 10); err != nil {
		t.Fatalf("place bet: %v", err)
	}
	bet, err := h.ledger.ResolveBet(ctx, "u1", "science", 9)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if *bet.Won || *bet.CoinsWon != 0 || bet.Pending() {
		t.Fatalf("expected lost bet, got %+v", bet)
	}
	if c := h.coins(t, "u1"); c != 30 {
		t.Fatalf("expected stake lost, balance 30, got %d", c)
	}
	if _, err := h.ledger.ResolveBet(ctx, "u1", "science", 10); !errors.Is(err, domain.ErrBetNotFound) {
		t.Fatalf("expected no active bet, got %v", err)
	}
}

func TestResolveBetReopenedWhenPayoutFails(t *testing.T) {
	ctx := context.Background()
	h, accounts := newFlakyHarness(t)
	h.signup(t, "u1", "alice")
	h.fund(t, "u1", 100)

	if _, err := h.ledger.PlaceBet(ctx, "u1", 10, 8); err != nil {
		t.Fatalf("place bet: %v", err)
	}

	accounts.fail.Store(true)
	if _, err := h.ledger.ResolveBet(ctx, "u1", "science", 9); !errors.Is(err, errDown) {
		t.Fatalf("expected payout failure, got %v", err)
	}
	pending, err := h.store.ActiveBet(ctx, "u1")
	if err != nil {
		t.Fatalf("expected bet back in pending state: %v", err)
	}
	if !pending.Pending() || pending.Subject != nil || pending.CoinsWon != nil {
		t.Fatalf("unexpected reopened bet %+v", pending)
	}
	if c := h.coins(t, "u1"); c != 90 {
		t.Fatalf("expected balance untouched at 90, got %d", c)
	}

	accounts.fail.Store(false)
	bet, err := h.ledger.ResolveBet(ctx, "u1", "science", 9)
	if err != nil {
		t.Fatalf("retry resolve: %v", err)
	}
	if bet.Won == nil || !*bet.Won || bet.CoinsWon == nil {
		t.Fatalf("expected a won bet, got %+v", bet)
	}
	if c := h.coins(t, "u1"); c != 90+*bet.CoinsWon {
		t.Fatalf("expected payout credited once, got %d", c)
	}
}
