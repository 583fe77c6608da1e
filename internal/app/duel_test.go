package app_test

import (
	"context"
	"errors"
	"testing"

	"quiz-ledger-service/internal/app"
	"quiz-ledger-service/internal/domain"
)

func startDuel(t *testing.T, h *harness, wager int64) domain.Duel {
	t.Helper()
	duel, err := h.ledger.StartDuel(context.Background(), app.DuelStart{
		ChallengerID: "a", OpponentID: "b", Subject: "history", CoinsWagered: wager,
	})
	if err != nil {
		t.Fatalf("start duel: %v", err)
	}
	return duel
}

func TestCompleteDuelCreditsWinner(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.signup(t, "a", "alice")
	h.signup(t, "b", "bobby")
	if err := h.ledger.SeedBounties(ctx, []domain.Bounty{{
		ID: "duelist", Metric: domain.MetricDuelsWon, Requirement: 1, CoinReward: 5,
	}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	duel := startDuel(t, h, 10)
	if duel.Status != domain.DuelActive || duel.WinnerID != nil {
		t.Fatalf("unexpected new duel %+v", duel)
	}

	done, err := h.ledger.CompleteDuel(ctx, app.DuelResult{DuelID: duel.ID, ChallengerScore: 4, OpponentScore: 7})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != domain.DuelCompleted || done.WinnerID == nil || *done.WinnerID != "b" || done.CompletedAt == nil {
		t.Fatalf("unexpected completed duel %+v", done)
	}
	if c := h.coins(t, "b"); c != 20 {
		t.Fatalf("expected winner credited 20, got %d", c)
	}
	if c := h.coins(t, "a"); c != 0 {
		t.Fatalf("loser must not be debited, got %d", c)
	}

	history, _ := h.ledger.History(ctx, "b", 10)
	if len(history) != 1 || history[0].Type != domain.TxDuelWin || history[0].Description != "history duel won 7-4" {
		t.Fatalf("unexpected winner history %+v", history)
	}
	if _, err := h.ledger.ClaimBounty(ctx, "b", "duelist"); err != nil {
		t.Fatalf("expected duel win to complete bounty, got %v", err)
	}

	if _, err := h.ledger.CompleteDuel(ctx, app.DuelResult{DuelID: duel.ID, ChallengerScore: 9, OpponentScore: 0}); !errors.Is(err, domain.ErrDuelAlreadyCompleted) {
		t.Fatalf("expected already completed, got %v", err)
	}
	if c := h.coins(t, "b"); c != 25 {
		t.Fatalf("expected no second duel credit, got %d", c)
	}
}

func TestCompleteDuelTie(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.signup(t, "a", "alice")
	h.signup(t, "b", "bobby")
	duel := startDuel(t, h, 10)

	done, err := h.ledger.CompleteDuel(ctx, app.DuelResult{DuelID: duel.ID, ChallengerScore: 5, OpponentScore: 5})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.WinnerID != nil {
		t.Fatalf("expected no winner on tie, got %v", *done.WinnerID)
	}
	if h.coins(t, "a") != 0 || h.coins(t, "b") != 0 {
		t.Fatal("tie must not move coins")
	}
}

func TestDuelValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.signup(t, "a", "alice")
	h.signup(t, "b", "bobby")

	if _, err := h.ledger.StartDuel(ctx, app.DuelStart{ChallengerID: "a", OpponentID: "a"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for self duel, got %v", err)
	}
	if _, err := h.ledger.StartDuel(ctx, app.DuelStart{ChallengerID: "a", OpponentID: "ghost"}); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected missing opponent, got %v", err)
	}
	if _, err := h.ledger.CompleteDuel(ctx, app.DuelResult{DuelID: "nope"}); !errors.Is(err, domain.ErrDuelNotFound) {
		t.Fatalf("expected duel not found, got %v", err)
	}

	duel := startDuel(t, h, 0)
	if _, err := h.ledger.CompleteDuel(ctx, app.DuelResult{DuelID: duel.ID, ChallengerID: "b", OpponentID: "a"}); !errors.Is(err, domain.ErrDuelPlayerMismatch) {
		t.Fatalf("expected player mismatch, got %v", err)
	}
}
