package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"quiz-ledger-service/internal/domain"
)

// BountyClaim reports what a successful claim credited.
type BountyClaim struct {
	CoinsAwarded int64
	XPAwarded    int64
}

// BountyProgress joins a definition with the user's progress row.
type BountyProgress struct {
	Bounty   domain.Bounty
	Progress domain.UserBounty
}

// SeedBounties upserts static bounty definitions, typically from config at startup.
func (l *Ledger) SeedBounties(ctx context.Context, bounties []domain.Bounty) error {
	for _, b := range bounties {
		if b.ID == "" || b.Requirement <= 0 {
			return fmt.Errorf("bounty %q: %w", b.ID, domain.ErrInvalidInput)
		}
		if err := l.bounties.SaveBounty(ctx, b); err != nil {
			return fmt.Errorf("save bounty %q: %w", b.ID, err)
		}
	}
	return nil
}

// ClaimBounty credits a completed bounty once per period.
// Preconditions are checked in order: progress row exists, completed, not claimed.
func (l *Ledger) ClaimBounty(ctx context.Context, userID, bountyID string) (BountyClaim, error) {
	if userID == "" || bountyID == "" {
		return BountyClaim{}, domain.ErrInvalidInput
	}
	bounty, err := l.bounties.GetBounty(ctx, bountyID)
	if err != nil {
		return BountyClaim{}, err
	}
	period := l.bountyPeriod(bounty)
	progress, err := l.bounties.GetUserBounty(ctx, userID, bountyID, period)
	if err != nil {
		return BountyClaim{}, err
	}
	if !progress.Completed {
		return BountyClaim{}, domain.ErrBountyNotCompleted
	}
	if progress.Claimed {
		return BountyClaim{}, domain.ErrBountyAlreadyClaimed
	}

	// The conditional flip is the anchor: a concurrent duplicate claim loses here.
	if err := l.step(ctx, "mark bounty claimed", Critical, userID, func(ctx context.Context) error {
		return l.bounties.MarkBountyClaimed(ctx, userID, bountyID, period, l.now())
	}); err != nil {
		return BountyClaim{}, err
	}

	if bounty.CoinReward != 0 || bounty.XPReward != 0 {
		if err := l.step(ctx, "credit bounty reward", Critical, userID, func(ctx context.Context) error {
			_, err := l.accounts.AddProgress(ctx, userID, bounty.CoinReward, bounty.XPReward)
			return err
		}); err != nil {
			if releaseErr := l.bounties.ReleaseBountyClaim(ctx, userID, bountyID, period); releaseErr != nil {
				l.log.Error("bounty claim release failed",
					zap.String("user_id", userID),
					zap.String("bounty_id", bountyID),
					zap.String("period", period),
					zap.Error(releaseErr))
			}
			return BountyClaim{}, err
		}
	}

	if bounty.CoinReward > 0 {
		_ = l.step(ctx, "append bounty reward", BestEffort, userID, func(ctx context.Context) error {
			return l.transactions.AppendTransaction(ctx, domain.Transaction{
				ID:          l.newID(),
				UserID:      userID,
				Amount:      bounty.CoinReward,
				Type:        domain.TxBountyReward,
				ReferenceID: bounty.ID,
				Description: "Bounty: " + bounty.Title,
				CreatedAt:   l.now(),
			})
		})
	}

	l.refreshLeaderboard(ctx, userID)
	return BountyClaim{CoinsAwarded: bounty.CoinReward, XPAwarded: bounty.XPReward}, nil
}

// AdvanceBounties adds delta to every bounty tracking metric for the user.
func (l *Ledger) AdvanceBounties(ctx context.Context, userID string, metric domain.BountyMetric, delta int) error {
	if delta <= 0 {
		return nil
	}
	bounties, err := l.bounties.ListBounties(ctx)
	if err != nil {
		return err
	}
	for _, b := range bounties {
		if b.Metric != metric {
			continue
		}
		if _, err := l.bounties.AdvanceUserBounty(ctx, userID, b, l.bountyPeriod(b), delta); err != nil {
			return fmt.Errorf("advance %s: %w", b.ID, err)
		}
	}
	return nil
}

// ListBounties returns every definition with the user's progress in its current period,
// zero-valued when untouched.
func (l *Ledger) ListBounties(ctx context.Context, userID string) ([]BountyProgress, error) {
	if _, err := l.GetAccount(ctx, userID); err != nil {
		return nil, err
	}
	bounties, err := l.bounties.ListBounties(ctx)
	if err != nil {
		return nil, err
	}
	periods := make([]string, 0, len(bounties))
	for _, b := range bounties {
		periods = append(periods, l.bountyPeriod(b))
	}
	rows, err := l.bounties.ListUserBounties(ctx, userID, periods)
	if err != nil {
		return nil, err
	}
	type rowKey struct{ bountyID, period string }
	current := make(map[rowKey]domain.UserBounty, len(rows))
	for _, r := range rows {
		current[rowKey{r.BountyID, r.Period}] = r
	}

	out := make([]BountyProgress, 0, len(bounties))
	for _, b := range bounties {
		period := l.bountyPeriod(b)
		progress, ok := current[rowKey{b.ID, period}]
		if !ok {
			progress = domain.UserBounty{UserID: userID, BountyID: b.ID, Period: period}
		}
		out = append(out, BountyProgress{Bounty: b, Progress: progress})
	}
	return out, nil
}

func (l *Ledger) advanceAll(ctx context.Context, userID string, deltas map[domain.BountyMetric]int) {
	for metric, delta := range deltas {
		_ = l.step(ctx, "advance bounties "+string(metric), BestEffort, userID, func(ctx context.Context) error {
			return l.AdvanceBounties(ctx, userID, metric, delta)
		})
	}
}

// bountyPeriod is the period key for today in the ledger's timezone.
func (l *Ledger) bountyPeriod(b domain.Bounty) string {
	return domain.BountyPeriod(b.Type, l.today())
}
