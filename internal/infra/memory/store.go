package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"quiz-ledger-service/internal/domain"
)

// Store is an in-process implementation of every ledger repository.
// One mutex guards all tables, so each method is atomic on its own.
type Store struct {
	mu sync.RWMutex

	accounts     map[string]*domain.Account
	usernames    map[string]string
	transactions []domain.Transaction
	activity     map[activityKey]*domain.DailyActivity
	sessions     []domain.QuizSession
	answers      []domain.UserAnswer
	duels        map[string]*domain.Duel
	bounties     map[string]domain.Bounty
	userBounties map[bountyKey]*domain.UserBounty
	bets         map[string]*domain.DailyBet
}

type activityKey struct {
	userID string
	day    string
}

type bountyKey struct {
	userID   string
	bountyID string
	period   string
}

func NewStore() *Store {
	return &Store{
		accounts:     make(map[string]*domain.Account),
		usernames:    make(map[string]string),
		activity:     make(map[activityKey]*domain.DailyActivity),
		duels:        make(map[string]*domain.Duel),
		bounties:     make(map[string]domain.Bounty),
		userBounties: make(map[bountyKey]*domain.UserBounty),
		bets:         make(map[string]*domain.DailyBet),
	}
}

func (s *Store) CreateAccount(_ context.Context, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.ID]; ok {
		return domain.ErrAccountExists
	}
	if _, ok := s.usernames[account.Username]; ok {
		return domain.ErrUsernameTaken
	}
	a := account
	s.accounts[a.ID] = &a
	s.usernames[a.Username] = a.ID
	return nil
}

func (s *Store) GetAccount(_ context.Context, userID string) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[userID]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return *a, nil
}

func (s *Store) GetAccounts(_ context.Context, userIDs []string) (map[string]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.Account, len(userIDs))
	for _, id := range userIDs {
		if a, ok := s.accounts[id]; ok {
			out[id] = *a
		}
	}
	return out, nil
}

func (s *Store) AddProgress(_ context.Context, userID string, coins, xp int64) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[userID]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	if a.Coins+coins < 0 {
		return domain.Account{}, domain.ErrInsufficientCoins
	}
	a.Coins += coins
	a.XP += xp
	return *a, nil
}

func (s *Store) DebitCoins(_ context.Context, userID string, amount int64) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[userID]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	if a.Coins < amount {
		return domain.Account{}, domain.ErrInsufficientCoins
	}
	a.Coins -= amount
	return *a, nil
}

func (s *Store) UpdateStreak(_ context.Context, userID string, streak int) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[userID]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	a.Streak = streak
	if streak > a.MaxStreak {
		a.MaxStreak = streak
	}
	return *a, nil
}

func (s *Store) TopByCoins(_ context.Context, limit int) ([]domain.Account, error) {
	s.mu.RLock()
	out := make([]domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, *a)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Coins != out[j].Coins {
			return out[i].Coins > out[j].Coins
		}
		return out[i].Username < out[j].Username
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) AppendTransaction(_ context.Context, tx domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, tx)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, userID string, limit int) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Transaction
	for i := len(s.transactions) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if s.transactions[i].UserID == userID {
			out = append(out, s.transactions[i])
		}
	}
	return out, nil
}

func (s *Store) TopEarners(_ context.Context, txType domain.TransactionType, since time.Time, limit int) ([]domain.UserTotal, error) {
	s.mu.RLock()
	sums := make(map[string]int64)
	for _, tx := range s.transactions {
		if tx.Type != txType || tx.CreatedAt.Before(since) {
			continue
		}
		sums[tx.UserID] += tx.Amount
	}
	s.mu.RUnlock()

	out := make([]domain.UserTotal, 0, len(sums))
	for id, total := range sums {
		out = append(out, domain.UserTotal{UserID: id, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetActivity(_ context.Context, userID string, day time.Time) (domain.DailyActivity, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.activity[activityKey{userID, dayKey(day)}]
	if !ok {
		return domain.DailyActivity{}, false, nil
	}
	return *row, true, nil
}

func (s *Store) AccumulateActivity(_ context.Context, userID string, day time.Time, questions int, coins int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := activityKey{userID, dayKey(day)}
	if row, ok := s.activity[key]; ok {
		row.QuestionsAnswered += questions
		row.CoinsEarned += coins
		row.StreakMaintained = true
		return false, nil
	}
	s.activity[key] = &domain.DailyActivity{
		UserID:            userID,
		Day:               day,
		QuestionsAnswered: questions,
		CoinsEarned:       coins,
		StreakMaintained:  true,
	}
	return true, nil
}

// SetActivity overwrites a day's row; used to seed history.
func (s *Store) SetActivity(row domain.DailyActivity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := row
	s.activity[activityKey{row.UserID, dayKey(row.Day)}] = &r
}

func dayKey(day time.Time) string {
	return day.Format("2006-01-02")
}
