package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"quiz-ledger-service/internal/domain"
)

// AnswerRecord is one answered question as reported by the client.
// A nil Selected means the question timed out.
type AnswerRecord struct {
	QuestionID string
	Selected   *int
	IsCorrect  bool
	TimeLeft   int
}

// QuizResult is a finished quiz attempt with rewards already computed by domain.QuizReward.
type QuizResult struct {
	UserID         string
	Subject        string
	TotalQuestions int
	CorrectAnswers int
	CoinsEarned    int64
	XPEarned       int64
	StreakBonus    bool
	Answers        []AnswerRecord
}

// QuizSettlement is returned to the client for display.
type QuizSettlement struct {
	SessionID string
	Profile   domain.Profile
	// ResolvedBet is set when this quiz settled a pending daily bet.
	ResolvedBet *domain.DailyBet
}

func (r QuizResult) validate() error {
	if r.UserID == "" || r.Subject == "" || r.TotalQuestions <= 0 {
		return domain.ErrInvalidInput
	}
	if r.CorrectAnswers < 0 || r.CorrectAnswers > r.TotalQuestions {
		return domain.ErrInvalidInput
	}
	if r.CoinsEarned < 0 || r.XPEarned < 0 {
		return domain.ErrInvalidInput
	}
	return nil
}

// SettleQuiz records a finished attempt and applies its rewards.
// Only the session insert and the counter update are critical; every bookkeeping
// step after them is best-effort so the user always sees their result.
func (l *Ledger) SettleQuiz(ctx context.Context, result QuizResult) (QuizSettlement, error) {
	if err := result.validate(); err != nil {
		return QuizSettlement{}, err
	}
	account, err := l.accounts.GetAccount(ctx, result.UserID)
	if err != nil {
		return QuizSettlement{}, err
	}

	session := domain.QuizSession{
		ID:             l.newID(),
		UserID:         result.UserID,
		Subject:        result.Subject,
		TotalQuestions: result.TotalQuestions,
		CorrectAnswers: result.CorrectAnswers,
		CoinsEarned:    result.CoinsEarned,
		XPEarned:       result.XPEarned,
		StreakBonus:    result.StreakBonus,
		CompletedAt:    l.now(),
	}
	if err := l.step(ctx, "insert quiz session", Critical, result.UserID, func(ctx context.Context) error {
		return l.sessions.CreateSession(ctx, session)
	}); err != nil {
		return QuizSettlement{}, err
	}

	if len(result.Answers) > 0 {
		answers := make([]domain.UserAnswer, 0, len(result.Answers))
		for _, a := range result.Answers {
			answers = append(answers, domain.UserAnswer{
				SessionID:     session.ID,
				QuestionID:    a.QuestionID,
				SelectedIndex: normalizeSelection(a.Selected),
				IsCorrect:     a.IsCorrect,
				TimeRemaining: a.TimeLeft,
			})
		}
		_ = l.step(ctx, "insert answers", BestEffort, result.UserID, func(ctx context.Context) error {
			return l.sessions.CreateAnswers(ctx, answers)
		})
	}

	if err := l.step(ctx, "update account progress", Critical, result.UserID, func(ctx context.Context) error {
		account, err = l.accounts.AddProgress(ctx, result.UserID, result.CoinsEarned, result.XPEarned)
		return err
	}); err != nil {
		return QuizSettlement{}, err
	}

	if result.CoinsEarned > 0 {
		_ = l.step(ctx, "append quiz reward", BestEffort, result.UserID, func(ctx context.Context) error {
			return l.transactions.AppendTransaction(ctx, domain.Transaction{
				ID:          l.newID(),
				UserID:      result.UserID,
				Amount:      result.CoinsEarned,
				Type:        domain.TxQuizReward,
				ReferenceID: session.ID,
				Description: fmt.Sprintf("%s quiz — %d/%d correct", result.Subject, result.CorrectAnswers, result.TotalQuestions),
				CreatedAt:   session.CompletedAt,
			})
		})
	}

	l.recordDailyActivity(ctx, result.UserID, result.TotalQuestions, result.CoinsEarned)

	l.advanceAll(ctx, result.UserID, map[domain.BountyMetric]int{
		domain.MetricQuizzesCompleted:  1,
		domain.MetricQuestionsAnswered: result.TotalQuestions,
		domain.MetricCorrectAnswers:    result.CorrectAnswers,
	})

	var resolved *domain.DailyBet
	if result.TotalQuestions == domain.BetTargetTotal {
		_ = l.step(ctx, "resolve daily bet", BestEffort, result.UserID, func(ctx context.Context) error {
			bet, err := l.ResolveBet(ctx, result.UserID, result.Subject, result.CorrectAnswers)
			if errors.Is(err, domain.ErrBetNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			resolved = &bet
			return nil
		})
	}

	l.refreshLeaderboard(ctx, result.UserID)

	if fresh, err := l.accounts.GetAccount(ctx, result.UserID); err == nil {
		account = fresh
	} else {
		l.log.Warn("profile re-read failed, returning last known snapshot",
			zap.String("user_id", result.UserID), zap.Error(err))
	}

	return QuizSettlement{SessionID: session.ID, Profile: account.Profile(), ResolvedBet: resolved}, nil
}

// recordDailyActivity accumulates today's row and, on the first activity of the day,
// continues or resets the streak depending on yesterday's row.
func (l *Ledger) recordDailyActivity(ctx context.Context, userID string, questions int, coins int64) {
	today := l.today()

	var first bool
	if err := l.step(ctx, "accumulate daily activity", BestEffort, userID, func(ctx context.Context) error {
		var err error
		first, err = l.activity.AccumulateActivity(ctx, userID, today, questions, coins)
		return err
	}); err != nil || !first {
		return
	}

	_ = l.step(ctx, "update streak", BestEffort, userID, func(ctx context.Context) error {
		yesterday, found, err := l.activity.GetActivity(ctx, userID, today.AddDate(0, 0, -1))
		if err != nil {
			return err
		}
		account, err := l.accounts.GetAccount(ctx, userID)
		if err != nil {
			return err
		}
		next := domain.NextStreak(account.Streak, found && yesterday.StreakMaintained)
		_, err = l.accounts.UpdateStreak(ctx, userID, next)
		return err
	})
}

func normalizeSelection(selected *int) *int {
	if selected == nil || *selected < 0 {
		return nil
	}
	v := *selected
	return &v
}
