package memory

import (
	"context"
	"sort"
	"time"

	"quiz-ledger-service/internal/domain"
)

func (s *Store) CreateSession(_ context.Context, session domain.QuizSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, session)
	return nil
}

func (s *Store) CreateAnswers(_ context.Context, answers []domain.UserAnswer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers = append(s.answers, answers...)
	return nil
}

// Answers returns the stored answers of a session.
func (s *Store) Answers(sessionID string) []domain.UserAnswer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.UserAnswer
	for _, a := range s.answers {
		if a.SessionID == sessionID {
			out = append(out, a)
		}
	}
	return out
}

func (s *Store) ListSessions(_ context.Context, userID string, limit int) ([]domain.QuizSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.QuizSession
	for i := len(s.sessions) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if s.sessions[i].UserID == userID {
			out = append(out, s.sessions[i])
		}
	}
	return out, nil
}

func (s *Store) CreateDuel(_ context.Context, duel domain.Duel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := duel
	s.duels[d.ID] = &d
	return nil
}

func (s *Store) GetDuel(_ context.Context, duelID string) (domain.Duel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.duels[duelID]
	if !ok {
		return domain.Duel{}, domain.ErrDuelNotFound
	}
	return *d, nil
}

func (s *Store) CompleteDuel(_ context.Context, duelID string, challengerScore, opponentScore int, winnerID *string, at time.Time) (domain.Duel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.duels[duelID]
	if !ok {
		return domain.Duel{}, domain.ErrDuelNotFound
	}
	if d.Status != domain.DuelActive {
		return domain.Duel{}, domain.ErrDuelAlreadyCompleted
	}
	d.Status = domain.DuelCompleted
	d.ChallengerScore = challengerScore
	d.OpponentScore = opponentScore
	d.WinnerID = winnerID
	completed := at
	d.CompletedAt = &completed
	return *d, nil
}

func (s *Store) SaveBounty(_ context.Context, bounty domain.Bounty) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bounties[bounty.ID] = bounty
	return nil
}

func (s *Store) GetBounty(_ context.Context, bountyID string) (domain.Bounty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bounties[bountyID]
	if !ok {
		return domain.Bounty{}, domain.ErrBountyNotFound
	}
	return b, nil
}

func (s *Store) ListBounties(_ context.Context) ([]domain.Bounty, error) {
	s.mu.RLock()
	out := make([]domain.Bounty, 0, len(s.bounties))
	for _, b := range s.bounties {
		out = append(out, b)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetUserBounty(_ context.Context, userID, bountyID, period string) (domain.UserBounty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ub, ok := s.userBounties[bountyKey{userID, bountyID, period}]
	if !ok {
		return domain.UserBounty{}, domain.ErrBountyNotFound
	}
	return *ub, nil
}

func (s *Store) ListUserBounties(_ context.Context, userID string, periods []string) ([]domain.UserBounty, error) {
	wanted := make(map[string]bool, len(periods))
	for _, p := range periods {
		wanted[p] = true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.UserBounty
	for key, ub := range s.userBounties {
		if key.userID == userID && wanted[key.period] {
			out = append(out, *ub)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BountyID != out[j].BountyID {
			return out[i].BountyID < out[j].BountyID
		}
		return out[i].Period < out[j].Period
	})
	return out, nil
}

func (s *Store) AdvanceUserBounty(_ context.Context, userID string, bounty domain.Bounty, period string, delta int) (domain.UserBounty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := bountyKey{userID, bounty.ID, period}
	ub, ok := s.userBounties[key]
	if !ok {
		ub = &domain.UserBounty{UserID: userID, BountyID: bounty.ID, Period: period}
		s.userBounties[key] = ub
	}
	ub.Progress += delta
	if ub.Progress >= bounty.Requirement {
		ub.Completed = true
	}
	return *ub, nil
}

func (s *Store) MarkBountyClaimed(_ context.Context, userID, bountyID, period string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ub, ok := s.userBounties[bountyKey{userID, bountyID, period}]
	switch {
	case !ok:
		return domain.ErrBountyNotFound
	case !ub.Completed:
		return domain.ErrBountyNotCompleted
	case ub.Claimed:
		return domain.ErrBountyAlreadyClaimed
	}
	ub.Claimed = true
	claimed := at
	ub.ClaimedAt = &claimed
	return nil
}

func (s *Store) ReleaseBountyClaim(_ context.Context, userID, bountyID, period string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ub, ok := s.userBounties[bountyKey{userID, bountyID, period}]
	if !ok {
		return domain.ErrBountyNotFound
	}
	ub.Claimed = false
	ub.ClaimedAt = nil
	return nil
}

func (s *Store) ActiveBet(_ context.Context, userID string) (domain.DailyBet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.bets {
		if b.UserID == userID && b.Pending() {
			return *b, nil
		}
	}
	return domain.DailyBet{}, domain.ErrBetNotFound
}

func (s *Store) CreateBet(_ context.Context, bet domain.DailyBet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bets {
		if b.UserID == bet.UserID && b.Pending() {
			return domain.ErrActiveBetExists
		}
	}
	b := bet
	s.bets[b.ID] = &b
	return nil
}

func (s *Store) ResolveBet(_ context.Context, betID, subject string, won bool, coinsWon int64, at time.Time) (domain.DailyBet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bets[betID]
	if !ok {
		return domain.DailyBet{}, domain.ErrBetNotFound
	}
	if !b.Pending() {
		return domain.DailyBet{}, domain.ErrBetAlreadyResolved
	}
	subj, resolved := subject, at
	b.Subject = &subj
	b.Won = &won
	b.CoinsWon = &coinsWon
	b.ResolvedAt = &resolved
	return *b, nil
}

func (s *Store) ReopenBet(_ context.Context, betID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bets[betID]
	if !ok {
		return domain.ErrBetNotFound
	}
	for _, other := range s.bets {
		if other.ID != betID && other.UserID == b.UserID && other.Pending() {
			return domain.ErrActiveBetExists
		}
	}
	b.Subject, b.Won, b.CoinsWon, b.ResolvedAt = nil, nil, nil, nil
	return nil
}
