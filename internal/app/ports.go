package app

import (
	"context"
	"time"

	"quiz-ledger-service/internal/domain"
)

// AccountRepository stores per-user counters. Counter changes are atomic increments
// so concurrent settlements for the same user never lose updates.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account domain.Account) error
	GetAccount(ctx context.Context, userID string) (domain.Account, error)
	GetAccounts(ctx context.Context, userIDs []string) (map[string]domain.Account, error)
	// AddProgress adds coins and xp and returns the updated row.
	AddProgress(ctx context.Context, userID string, coins, xp int64) (domain.Account, error)
	// DebitCoins subtracts amount only if the balance covers it, else ErrInsufficientCoins.
	DebitCoins(ctx context.Context, userID string, amount int64) (domain.Account, error)
	// UpdateStreak sets streak and raises max_streak to at least streak.
	UpdateStreak(ctx context.Context, userID string, streak int) (domain.Account, error)
	TopByCoins(ctx context.Context, limit int) ([]domain.Account, error)
}

// TransactionRepository is the append-only coin log.
type TransactionRepository interface {
	AppendTransaction(ctx context.Context, tx domain.Transaction) error
	ListTransactions(ctx context.Context, userID string, limit int) ([]domain.Transaction, error)
	// TopEarners sums amounts of txType created at or after since, grouped by user, highest first.
	TopEarners(ctx context.Context, txType domain.TransactionType, since time.Time, limit int) ([]domain.UserTotal, error)
}

// ActivityRepository keeps one row per user per calendar day.
type ActivityRepository interface {
	GetActivity(ctx context.Context, userID string, day time.Time) (domain.DailyActivity, bool, error)
	// AccumulateActivity inserts or adds to the day's row and flags it streak-maintained.
	// first is true only for the call that created the row.
	AccumulateActivity(ctx context.Context, userID string, day time.Time, questions int, coins int64) (first bool, err error)
}

// QuizSessionRepository stores completed attempts and their answers.
type QuizSessionRepository interface {
	CreateSession(ctx context.Context, session domain.QuizSession) error
	CreateAnswers(ctx context.Context, answers []domain.UserAnswer) error
	ListSessions(ctx context.Context, userID string, limit int) ([]domain.QuizSession, error)
}

// DuelRepository stores 1v1 matches.
type DuelRepository interface {
	CreateDuel(ctx context.Context, duel domain.Duel) error
	GetDuel(ctx context.Context, duelID string) (domain.Duel, error)
	// CompleteDuel moves an active duel to completed, else ErrDuelAlreadyCompleted.
	CompleteDuel(ctx context.Context, duelID string, challengerScore, opponentScore int, winnerID *string, at time.Time) (domain.Duel, error)
}

// BountyRepository stores bounty definitions and per-user progress.
type BountyRepository interface {
	SaveBounty(ctx context.Context, bounty domain.Bounty) error
	GetBounty(ctx context.Context, bountyID string) (domain.Bounty, error)
	ListBounties(ctx context.Context) ([]domain.Bounty, error)
	// Progress rows are keyed by period (see domain.BountyPeriod) so daily and weekly
	// bounties start over each period.
	GetUserBounty(ctx context.Context, userID, bountyID, period string) (domain.UserBounty, error)
	ListUserBounties(ctx context.Context, userID string, periods []string) ([]domain.UserBounty, error)
	// AdvanceUserBounty adds delta to progress and marks completion once the requirement is met.
	AdvanceUserBounty(ctx context.Context, userID string, bounty domain.Bounty, period string, delta int) (domain.UserBounty, error)
	// MarkBountyClaimed flips claimed only for a completed, unclaimed row.
	MarkBountyClaimed(ctx context.Context, userID, bountyID, period string, at time.Time) error
	// ReleaseBountyClaim undoes MarkBountyClaimed when the reward could not be credited.
	ReleaseBountyClaim(ctx context.Context, userID, bountyID, period string) error
}

// BetRepository stores daily bets; at most one unresolved bet exists per user.
type BetRepository interface {
	ActiveBet(ctx context.Context, userID string) (domain.DailyBet, error)
	CreateBet(ctx context.Context, bet domain.DailyBet) error
	// ResolveBet settles a pending bet, else ErrBetAlreadyResolved.
	ResolveBet(ctx context.Context, betID, subject string, won bool, coinsWon int64, at time.Time) (domain.DailyBet, error)
	// ReopenBet returns a resolved bet to pending when its payout could not be credited.
	ReopenBet(ctx context.Context, betID string) error
}

// Locker serializes check-then-write sequences for a single user across processes.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// LeaderboardCache memoizes leaderboard snapshots between settlements.
type LeaderboardCache interface {
	GetLeaderboard(ctx context.Context, limit int, load func(context.Context) ([]domain.LeaderboardEntry, error)) ([]domain.LeaderboardEntry, error)
	Invalidate(ctx context.Context) error
}

// Repositories groups the storage ports used by the ledger.
type Repositories struct {
	Accounts     AccountRepository
	Transactions TransactionRepository
	Activity     ActivityRepository
	Sessions     QuizSessionRepository
	Duels        DuelRepository
	Bounties     BountyRepository
	Bets         BetRepository
}
