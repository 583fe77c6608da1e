package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"quiz-ledger-service/internal/domain"
)

func (s *Store) CreateSession(ctx context.Context, session domain.QuizSession) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := &sessionRow{
		ID:             session.ID,
		UserID:         session.UserID,
		Subject:        session.Subject,
		TotalQuestions: session.TotalQuestions,
		CorrectAnswers: session.CorrectAnswers,
		CoinsEarned:    session.CoinsEarned,
		XPEarned:       session.XPEarned,
		StreakBonus:    session.StreakBonus,
		CompletedAt:    session.CompletedAt,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert quiz session: %w", err)
	}
	return nil
}

func (s *Store) CreateAnswers(ctx context.Context, answers []domain.UserAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows := make([]answerRow, 0, len(answers))
	for _, a := range answers {
		rows = append(rows, answerRow{
			SessionID:     a.SessionID,
			QuestionID:    a.QuestionID,
			SelectedIndex: a.SelectedIndex,
			IsCorrect:     a.IsCorrect,
			TimeRemaining: a.TimeRemaining,
		})
	}
	if _, err := s.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("insert answers: %w", err)
	}
	return nil
}

func (s *Store) ListSessions(ctx context.Context, userID string, limit int) ([]domain.QuizSession, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []sessionRow
	err := s.db.NewSelect().Model(&rows).
		Where("user_id = ?", userID).
		OrderExpr("completed_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select quiz sessions: %w", err)
	}
	out := make([]domain.QuizSession, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) CreateDuel(ctx context.Context, duel domain.Duel) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := &duelRow{
		ID:           duel.ID,
		ChallengerID: duel.ChallengerID,
		OpponentID:   duel.OpponentID,
		Subject:      duel.Subject,
		Status:       string(duel.Status),
		CoinsWagered: duel.CoinsWagered,
		CreatedAt:    duel.CreatedAt,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert duel: %w", err)
	}
	return nil
}

func (s *Store) GetDuel(ctx context.Context, duelID string) (domain.Duel, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := new(duelRow)
	err := s.db.NewSelect().Model(row).Where("id = ?", duelID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Duel{}, domain.ErrDuelNotFound
	}
	if err != nil {
		return domain.Duel{}, fmt.Errorf("select duel: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) CompleteDuel(ctx context.Context, duelID string, challengerScore, opponentScore int, winnerID *string, at time.Time) (domain.Duel, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := new(duelRow)
	err := s.db.NewUpdate().Model(row).
		Set("status = ?", string(domain.DuelCompleted)).
		Set("challenger_score = ?", challengerScore).
		Set("opponent_score = ?", opponentScore).
		Set("winner_id = ?", winnerID).
		Set("completed_at = ?", at).
		Where("id = ?", duelID).
		Where("status = ?", string(domain.DuelActive)).
		Returning("*").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := s.GetDuel(ctx, duelID); getErr != nil {
			return domain.Duel{}, getErr
		}
		return domain.Duel{}, domain.ErrDuelAlreadyCompleted
	}
	if err != nil {
		return domain.Duel{}, fmt.Errorf("complete duel: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) SaveBounty(ctx context.Context, bounty domain.Bounty) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := &bountyRow{
		ID:          bounty.ID,
		Title:       bounty.Title,
		Description: bounty.Description,
		Type:        string(bounty.Type),
		Metric:      string(bounty.Metric),
		Requirement: bounty.Requirement,
		CoinReward:  bounty.CoinReward,
		XPReward:    bounty.XPReward,
	}
	_, err := s.db.NewInsert().Model(row).
		On("CONFLICT (id) DO UPDATE").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert bounty: %w", err)
	}
	return nil
}

func (s *Store) GetBounty(ctx context.Context, bountyID string) (domain.Bounty, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := new(bountyRow)
	err := s.db.NewSelect().Model(row).Where("id = ?", bountyID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Bounty{}, domain.ErrBountyNotFound
	}
	if err != nil {
		return domain.Bounty{}, fmt.Errorf("select bounty: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) ListBounties(ctx context.Context) ([]domain.Bounty, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []bountyRow
	if err := s.db.NewSelect().Model(&rows).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("select bounties: %w", err)
	}
	out := make([]domain.Bounty, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) GetUserBounty(ctx context.Context, userID, bountyID, period string) (domain.UserBounty, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := new(userBountyRow)
	err := s.db.NewSelect().Model(row).
		Where("user_id = ?", userID).
		Where("bounty_id = ?", bountyID).
		Where("period = ?", period).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserBounty{}, domain.ErrBountyNotFound
	}
	if err != nil {
		return domain.UserBounty{}, fmt.Errorf("select user bounty: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) ListUserBounties(ctx context.Context, userID string, periods []string) ([]domain.UserBounty, error) {
	if len(periods) == 0 {
		return nil, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []userBountyRow
	err := s.db.NewSelect().Model(&rows).
		Where("user_id = ?", userID).
		Where("period IN (?)", bun.In(periods)).
		OrderExpr("bounty_id ASC, period ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select user bounties: %w", err)
	}
	out := make([]domain.UserBounty, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) AdvanceUserBounty(ctx context.Context, userID string, bounty domain.Bounty, period string, delta int) (domain.UserBounty, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := &userBountyRow{
		UserID:    userID,
		BountyID:  bounty.ID,
		Period:    period,
		Progress:  delta,
		Completed: delta >= bounty.Requirement,
	}
	err := s.db.NewInsert().Model(row).
		On("CONFLICT (user_id, bounty_id, period) DO UPDATE").
		Set("progress = ub.progress + EXCLUDED.progress").
		Set("completed = ub.completed OR ub.progress + EXCLUDED.progress >= ?", bounty.Requirement).
		Returning("*").
		Scan(ctx)
	if err != nil {
		return domain.UserBounty{}, fmt.Errorf("advance user bounty: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) MarkBountyClaimed(ctx context.Context, userID, bountyID, period string, at time.Time) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.db.NewUpdate().Model((*userBountyRow)(nil)).
		Set("claimed = TRUE").
		Set("claimed_at = ?", at).
		Where("user_id = ?", userID).
		Where("bounty_id = ?", bountyID).
		Where("period = ?", period).
		Where("completed").
		Where("NOT claimed").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("claim bounty: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		return nil
	}

	ub, err := s.GetUserBounty(ctx, userID, bountyID, period)
	if err != nil {
		return err
	}
	if !ub.Completed {
		return domain.ErrBountyNotCompleted
	}
	return domain.ErrBountyAlreadyClaimed
}

// ReleaseBountyClaim undoes MarkBountyClaimed when the reward could not be credited.
func (s *Store) ReleaseBountyClaim(ctx context.Context, userID, bountyID, period string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.db.NewUpdate().Model((*userBountyRow)(nil)).
		Set("claimed = FALSE").
		Set("claimed_at = NULL").
		Where("user_id = ?", userID).
		Where("bounty_id = ?", bountyID).
		Where("period = ?", period).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("release bounty claim: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrBountyNotFound
	}
	return nil
}

func (s *Store) ActiveBet(ctx context.Context, userID string) (domain.DailyBet, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := new(betRow)
	err := s.db.NewSelect().Model(row).
		Where("user_id = ?", userID).
		Where("resolved_at IS NULL").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DailyBet{}, domain.ErrBetNotFound
	}
	if err != nil {
		return domain.DailyBet{}, fmt.Errorf("select active bet: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) CreateBet(ctx context.Context, bet domain.DailyBet) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := &betRow{
		ID:          bet.ID,
		UserID:      bet.UserID,
		CoinsStaked: bet.CoinsStaked,
		TargetScore: bet.TargetScore,
		TargetTotal: bet.TargetTotal,
		CreatedAt:   bet.CreatedAt,
	}
	_, err := s.db.NewInsert().Model(row).Exec(ctx)
	if code, _, ok := constraintViolation(err); ok && code == uniqueViolation {
		return domain.ErrActiveBetExists
	}
	if err != nil {
		return fmt.Errorf("insert bet: %w", err)
	}
	return nil
}

func (s *Store) ResolveBet(ctx context.Context, betID, subject string, won bool, coinsWon int64, at time.Time) (domain.DailyBet, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := new(betRow)
	err := s.db.NewUpdate().Model(row).
		Set("subject = ?", subject).
		Set("won = ?", won).
		Set("coins_won = ?", coinsWon).
		Set("resolved_at = ?", at).
		Where("id = ?", betID).
		Where("resolved_at IS NULL").
		Returning("*").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		exists, err = s.db.NewSelect().Model((*betRow)(nil)).Where("id = ?", betID).Exists(ctx)
		if err != nil {
			return domain.DailyBet{}, fmt.Errorf("select bet: %w", err)
		}
		if !exists {
			return domain.DailyBet{}, domain.ErrBetNotFound
		}
		return domain.DailyBet{}, domain.ErrBetAlreadyResolved
	}
	if err != nil {
		return domain.DailyBet{}, fmt.Errorf("resolve bet: %w", err)
	}
	return row.toDomain(), nil
}

// ReopenBet returns a resolved bet to pending. The partial unique index
// rejects it when the user has since opened another bet.
func (s *Store) ReopenBet(ctx context.Context, betID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.db.NewUpdate().Model((*betRow)(nil)).
		Set("subject = NULL").
		Set("won = NULL").
		Set("coins_won = NULL").
		Set("resolved_at = NULL").
		Where("id = ?", betID).
		Exec(ctx)
	if code, _, ok := constraintViolation(err); ok && code == uniqueViolation {
		return domain.ErrActiveBetExists
	}
	if err != nil {
		return fmt.Errorf("reopen bet: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrBetNotFound
	}
	return nil
}
