package app

import (
	"context"
	"fmt"

	"quiz-ledger-service/internal/domain"
)

// DuelStart opens a 1v1 match. The wager is notional: nothing is debited up front.
type DuelStart struct {
	ChallengerID string
	OpponentID   string
	Subject      string
	CoinsWagered int64
}

// DuelResult carries both final scores. Player ids are checked against the stored
// duel; the winner is always derived from the scores.
type DuelResult struct {
	DuelID          string
	ChallengerID    string
	OpponentID      string
	ChallengerScore int
	OpponentScore   int
}

// StartDuel creates an active duel before any question is served.
func (l *Ledger) StartDuel(ctx context.Context, req DuelStart) (domain.Duel, error) {
	if req.ChallengerID == "" || req.OpponentID == "" || req.ChallengerID == req.OpponentID || req.CoinsWagered < 0 {
		return domain.Duel{}, domain.ErrInvalidInput
	}
	for _, id := range []string{req.ChallengerID, req.OpponentID} {
		if _, err := l.accounts.GetAccount(ctx, id); err != nil {
			return domain.Duel{}, err
		}
	}

	duel := domain.Duel{
		ID:           l.newID(),
		ChallengerID: req.ChallengerID,
		OpponentID:   req.OpponentID,
		Subject:      req.Subject,
		Status:       domain.DuelActive,
		CoinsWagered: req.CoinsWagered,
		CreatedAt:    l.now(),
	}
	if err := l.step(ctx, "insert duel", Critical, req.ChallengerID, func(ctx context.Context) error {
		return l.duels.CreateDuel(ctx, duel)
	}); err != nil {
		return domain.Duel{}, err
	}
	return duel, nil
}

// CompleteDuel finalizes scores once and credits twice the wager to a strict winner.
// A tie completes the duel without moving coins.
func (l *Ledger) CompleteDuel(ctx context.Context, res DuelResult) (domain.Duel, error) {
	if res.DuelID == "" || res.ChallengerScore < 0 || res.OpponentScore < 0 {
		return domain.Duel{}, domain.ErrInvalidInput
	}
	duel, err := l.duels.GetDuel(ctx, res.DuelID)
	if err != nil {
		return domain.Duel{}, err
	}
	if (res.ChallengerID != "" && res.ChallengerID != duel.ChallengerID) ||
		(res.OpponentID != "" && res.OpponentID != duel.OpponentID) {
		return domain.Duel{}, domain.ErrDuelPlayerMismatch
	}
	if duel.Status == domain.DuelCompleted {
		return domain.Duel{}, domain.ErrDuelAlreadyCompleted
	}

	winnerID := duelWinner(duel, res.ChallengerScore, res.OpponentScore)

	if err := l.step(ctx, "complete duel", Critical, duel.ChallengerID, func(ctx context.Context) error {
		var err error
		duel, err = l.duels.CompleteDuel(ctx, duel.ID, res.ChallengerScore, res.OpponentScore, winnerID, l.now())
		return err
	}); err != nil {
		return domain.Duel{}, err
	}

	if winnerID == nil {
		return duel, nil
	}

	prize := 2 * duel.CoinsWagered
	if prize > 0 {
		_ = l.step(ctx, "credit duel winner", BestEffort, *winnerID, func(ctx context.Context) error {
			_, err := l.accounts.AddProgress(ctx, *winnerID, prize, 0)
			return err
		})
		_ = l.step(ctx, "append duel win", BestEffort, *winnerID, func(ctx context.Context) error {
			return l.transactions.AppendTransaction(ctx, domain.Transaction{
				ID:          l.newID(),
				UserID:      *winnerID,
				Amount:      prize,
				Type:        domain.TxDuelWin,
				ReferenceID: duel.ID,
				Description: duelDescription(duel),
				CreatedAt:   l.now(),
			})
		})
	}
	l.advanceAll(ctx, *winnerID, map[domain.BountyMetric]int{domain.MetricDuelsWon: 1})
	l.refreshLeaderboard(ctx, *winnerID)
	return duel, nil
}

func duelWinner(duel domain.Duel, challengerScore, opponentScore int) *string {
	switch {
	case challengerScore > opponentScore:
		id := duel.ChallengerID
		return &id
	case opponentScore > challengerScore:
		id := duel.OpponentID
		return &id
	default:
		return nil
	}
}

func duelDescription(duel domain.Duel) string {
	if duel.Subject == "" {
		return fmt.Sprintf("Duel won %d-%d", maxInt(duel.ChallengerScore, duel.OpponentScore), minInt(duel.ChallengerScore, duel.OpponentScore))
	}
	return fmt.Sprintf("%s duel won %d-%d", duel.Subject, maxInt(duel.ChallengerScore, duel.OpponentScore), minInt(duel.ChallengerScore, duel.OpponentScore))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
