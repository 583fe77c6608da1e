package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"quiz-ledger-service/internal/domain"
)

// Criticality declares how a failed settlement step affects the request.
type Criticality int

const (
	// Critical failures abort the settlement and are reported to the caller.
	Critical Criticality = iota
	// BestEffort failures are logged and the settlement continues.
	BestEffort
)

func (c Criticality) String() string {
	if c == BestEffort {
		return "best_effort"
	}
	return "critical"
}

// Ledger owns every state transition of coins, xp, streaks and their supporting records.
type Ledger struct {
	accounts     AccountRepository
	transactions TransactionRepository
	activity     ActivityRepository
	sessions     QuizSessionRepository
	duels        DuelRepository
	bounties     BountyRepository
	bets         BetRepository

	locker Locker
	cache  LeaderboardCache
	feed   *LeaderboardFeed
	log    *zap.Logger

	now      func() time.Time
	location *time.Location
	window   time.Duration
	feedSize int
	newID    func() string
}

// Option customizes a Ledger.
type Option func(*Ledger)

// WithClock injects the wall clock; tests use it to control "today".
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLocation sets the canonical timezone for calendar-day bucketing.
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) {
		if loc != nil {
			l.location = loc
		}
	}
}

func WithLocker(locker Locker) Option {
	return func(l *Ledger) { l.locker = locker }
}

func WithLeaderboardCache(cache LeaderboardCache) Option {
	return func(l *Ledger) { l.cache = cache }
}

func WithLogger(log *zap.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

// WithLeaderboardWindow overrides the trailing window summed by the leaderboard.
func WithLeaderboardWindow(window time.Duration) Option {
	return func(l *Ledger) {
		if window > 0 {
			l.window = window
		}
	}
}

// WithFeedSize sets how many entries live leaderboard subscribers receive.
func WithFeedSize(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.feedSize = n
		}
	}
}

// WithIDGenerator replaces the uuid generator for deterministic ids in tests.
func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) { l.newID = gen }
}

func NewLedger(repos Repositories, opts ...Option) *Ledger {
	l := &Ledger{
		accounts:     repos.Accounts,
		transactions: repos.Transactions,
		activity:     repos.Activity,
		sessions:     repos.Sessions,
		duels:        repos.Duels,
		bounties:     repos.Bounties,
		bets:         repos.Bets,
		locker:       nopLocker{},
		cache:        passthroughCache{},
		log:          zap.NewNop(),
		now:          time.Now,
		location:     time.UTC,
		window:       7 * 24 * time.Hour,
		feedSize:     10,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.feed = newLeaderboardFeed(l.now)
	return l
}

// step runs one settlement write under its declared criticality.
func (l *Ledger) step(ctx context.Context, name string, crit Criticality, userID string, fn func(context.Context) error) error {
	err := fn(ctx)
	if err == nil {
		return nil
	}
	if crit == BestEffort {
		l.log.Warn("settlement step failed",
			zap.String("step", name),
			zap.String("criticality", crit.String()),
			zap.String("user_id", userID),
			zap.Error(err))
		return nil
	}
	if domain.KindOf(err) == domain.KindPersistence {
		l.log.Error("settlement aborted",
			zap.String("step", name),
			zap.String("user_id", userID),
			zap.Error(err))
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (l *Ledger) today() time.Time {
	return domain.DayOf(l.now(), l.location)
}

func (l *Ledger) lockUser(ctx context.Context, userID string) (func(), error) {
	unlock, err := l.locker.Lock(ctx, "user:"+userID)
	if err != nil {
		return nil, fmt.Errorf("lock user: %w", err)
	}
	return unlock, nil
}

type nopLocker struct{}

func (nopLocker) Lock(context.Context, string) (func(), error) { return func() {}, nil }

type passthroughCache struct{}

func (passthroughCache) GetLeaderboard(ctx context.Context, _ int, load func(context.Context) ([]domain.LeaderboardEntry, error)) ([]domain.LeaderboardEntry, error) {
	return load(ctx)
}

func (passthroughCache) Invalidate(context.Context) error { return nil }
