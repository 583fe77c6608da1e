package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"quiz-ledger-service/internal/domain"
)

// PlaceBet debits the stake immediately and opens a pending bet.
// If the bet row cannot be stored the stake is refunded.
func (l *Ledger) PlaceBet(ctx context.Context, userID string, stake int64, target int) (domain.DailyBet, error) {
	if userID == "" {
		return domain.DailyBet{}, domain.ErrInvalidInput
	}
	if !domain.ValidBetTarget(target) {
		return domain.DailyBet{}, domain.ErrInvalidTargetScore
	}
	if stake <= 0 {
		return domain.DailyBet{}, domain.ErrInvalidStake
	}

	unlock, err := l.lockUser(ctx, userID)
	if err != nil {
		return domain.DailyBet{}, err
	}
	defer unlock()

	if _, err := l.bets.ActiveBet(ctx, userID); err == nil {
		return domain.DailyBet{}, domain.ErrActiveBetExists
	} else if !errors.Is(err, domain.ErrBetNotFound) {
		return domain.DailyBet{}, fmt.Errorf("check active bet: %w", err)
	}

	account, err := l.accounts.GetAccount(ctx, userID)
	if err != nil {
		return domain.DailyBet{}, err
	}
	if account.Coins < stake {
		return domain.DailyBet{}, domain.ErrInsufficientCoins
	}

	if err := l.step(ctx, "debit stake", Critical, userID, func(ctx context.Context) error {
		_, err := l.accounts.DebitCoins(ctx, userID, stake)
		return err
	}); err != nil {
		return domain.DailyBet{}, err
	}

	bet := domain.DailyBet{
		ID:          l.newID(),
		UserID:      userID,
		CoinsStaked: stake,
		TargetScore: target,
		TargetTotal: domain.BetTargetTotal,
		CreatedAt:   l.now(),
	}
	if err := l.step(ctx, "insert bet", Critical, userID, func(ctx context.Context) error {
		return l.bets.CreateBet(ctx, bet)
	}); err != nil {
		if _, refundErr := l.accounts.AddProgress(ctx, userID, stake, 0); refundErr != nil {
			l.log.Error("stake refund failed",
				zap.String("user_id", userID),
				zap.Int64("stake", stake),
				zap.Error(refundErr))
		}
		return domain.DailyBet{}, err
	}

	_ = l.step(ctx, "append bet placed", BestEffort, userID, func(ctx context.Context) error {
		return l.transactions.AppendTransaction(ctx, domain.Transaction{
			ID:          l.newID(),
			UserID:      userID,
			Amount:      -stake,
			Type:        domain.TxBetPlaced,
			ReferenceID: bet.ID,
			Description: fmt.Sprintf("Daily bet: %d/%d or better", target, domain.BetTargetTotal),
			CreatedAt:   bet.CreatedAt,
		})
	})
	l.refreshLeaderboard(ctx, userID)
	return bet, nil
}

// ResolveBet settles the user's pending bet against an actual score out of 10.
// The subject is assigned at resolution time. A payout that cannot be credited
// returns the bet to pending so a later quiz can settle it again.
func (l *Ledger) ResolveBet(ctx context.Context, userID, subject string, actualScore int) (domain.DailyBet, error) {
	if userID == "" || actualScore < 0 || actualScore > domain.BetTargetTotal {
		return domain.DailyBet{}, domain.ErrInvalidInput
	}
	unlock, err := l.lockUser(ctx, userID)
	if err != nil {
		return domain.DailyBet{}, err
	}
	defer unlock()

	bet, err := l.bets.ActiveBet(ctx, userID)
	if err != nil {
		return domain.DailyBet{}, err
	}

	payout := domain.BetPayout(bet.CoinsStaked, bet.TargetScore, actualScore)
	won := actualScore >= bet.TargetScore

	if err := l.step(ctx, "resolve bet", Critical, userID, func(ctx context.Context) error {
		var err error
		bet, err = l.bets.ResolveBet(ctx, bet.ID, subject, won, payout, l.now())
		return err
	}); err != nil {
		return domain.DailyBet{}, err
	}

	if payout > 0 {
		if err := l.step(ctx, "credit bet payout", Critical, userID, func(ctx context.Context) error {
			_, err := l.accounts.AddProgress(ctx, userID, payout, 0)
			return err
		}); err != nil {
			if reopenErr := l.bets.ReopenBet(ctx, bet.ID); reopenErr != nil {
				l.log.Error("bet reopen failed",
					zap.String("user_id", userID),
					zap.String("bet_id", bet.ID),
					zap.Int64("payout", payout),
					zap.Error(reopenErr))
			}
			return domain.DailyBet{}, err
		}
		_ = l.step(ctx, "append bet payout", BestEffort, userID, func(ctx context.Context) error {
			return l.transactions.AppendTransaction(ctx, domain.Transaction{
				ID:          l.newID(),
				UserID:      userID,
				Amount:      payout,
				Type:        domain.TxBetPayout,
				ReferenceID: bet.ID,
				Description: fmt.Sprintf("Daily bet won: %d/%d", actualScore, domain.BetTargetTotal),
				CreatedAt:   l.now(),
			})
		})
		l.refreshLeaderboard(ctx, userID)
	}
	return bet, nil
}
