package postgres

import (
	"time"

	"github.com/uptrace/bun"
	"quiz-ledger-service/internal/domain"
)

const dateLayout = "2006-01-02"

type profileRow struct {
	bun.BaseModel `bun:"table:profiles,alias:p"`

	ID          string    `bun:"id,pk"`
	Username    string    `bun:"username,notnull"`
	DisplayName string    `bun:"display_name,notnull"`
	AvatarURL   string    `bun:"avatar_url,notnull"`
	Coins       int64     `bun:"coins,notnull"`
	XP          int64     `bun:"xp,notnull"`
	Streak      int       `bun:"streak,notnull"`
	MaxStreak   int       `bun:"max_streak,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
}

func (r profileRow) toDomain() domain.Account {
	return domain.Account{
		ID:          r.ID,
		Username:    r.Username,
		DisplayName: r.DisplayName,
		AvatarURL:   r.AvatarURL,
		Coins:       r.Coins,
		XP:          r.XP,
		Streak:      r.Streak,
		MaxStreak:   r.MaxStreak,
		CreatedAt:   r.CreatedAt,
	}
}

type transactionRow struct {
	bun.BaseModel `bun:"table:coin_transactions,alias:ct"`

	ID          string    `bun:"id,pk"`
	UserID      string    `bun:"user_id,notnull"`
	Amount      int64     `bun:"amount,notnull"`
	Type        string    `bun:"type,notnull"`
	ReferenceID string    `bun:"reference_id,notnull"`
	Description string    `bun:"description,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
}

func (r transactionRow) toDomain() domain.Transaction {
	return domain.Transaction{
		ID:          r.ID,
		UserID:      r.UserID,
		Amount:      r.Amount,
		Type:        domain.TransactionType(r.Type),
		ReferenceID: r.ReferenceID,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
	}
}

// activityRow keeps the calendar day as text so the session timezone never shifts it.
type activityRow struct {
	bun.BaseModel `bun:"table:daily_activity,alias:da"`

	UserID            string `bun:"user_id,pk"`
	Day               string `bun:"activity_date,pk,type:date"`
	QuestionsAnswered int    `bun:"questions_answered,notnull"`
	CoinsEarned       int64  `bun:"coins_earned,notnull"`
	StreakMaintained  bool   `bun:"streak_maintained,notnull"`
}

func (r activityRow) toDomain(loc *time.Location) domain.DailyActivity {
	day, _ := time.ParseInLocation(dateLayout, dateOnly(r.Day), loc)
	return domain.DailyActivity{
		UserID:            r.UserID,
		Day:               day,
		QuestionsAnswered: r.QuestionsAnswered,
		CoinsEarned:       r.CoinsEarned,
		StreakMaintained:  r.StreakMaintained,
	}
}

type sessionRow struct {
	bun.BaseModel `bun:"table:quiz_sessions,alias:qs"`

	ID             string    `bun:"id,pk"`
	UserID         string    `bun:"user_id,notnull"`
	Subject        string    `bun:"subject,notnull"`
	TotalQuestions int       `bun:"total_questions,notnull"`
	CorrectAnswers int       `bun:"correct_answers,notnull"`
	CoinsEarned    int64     `bun:"coins_earned,notnull"`
	XPEarned       int64     `bun:"xp_earned,notnull"`
	StreakBonus    bool      `bun:"streak_bonus,notnull"`
	CompletedAt    time.Time `bun:"completed_at,notnull"`
}

func (r sessionRow) toDomain() domain.QuizSession {
	return domain.QuizSession{
		ID:             r.ID,
		UserID:         r.UserID,
		Subject:        r.Subject,
		TotalQuestions: r.TotalQuestions,
		CorrectAnswers: r.CorrectAnswers,
		CoinsEarned:    r.CoinsEarned,
		XPEarned:       r.XPEarned,
		StreakBonus:    r.StreakBonus,
		CompletedAt:    r.CompletedAt,
	}
}

type answerRow struct {
	bun.BaseModel `bun:"table:user_answers,alias:ua"`

	ID            int64  `bun:"id,pk,autoincrement"`
	SessionID     string `bun:"session_id,notnull"`
	QuestionID    string `bun:"question_id,notnull"`
	SelectedIndex *int   `bun:"selected_index"`
	IsCorrect     bool   `bun:"is_correct,notnull"`
	TimeRemaining int    `bun:"time_remaining,notnull"`
}

type duelRow struct {
	bun.BaseModel `bun:"table:duels,alias:d"`

	ID              string     `bun:"id,pk"`
	ChallengerID    string     `bun:"challenger_id,notnull"`
	OpponentID      string     `bun:"opponent_id,notnull"`
	Subject         string     `bun:"subject,notnull"`
	Status          string     `bun:"status,notnull"`
	ChallengerScore int        `bun:"challenger_score,notnull"`
	OpponentScore   int        `bun:"opponent_score,notnull"`
	WinnerID        *string    `bun:"winner_id"`
	CoinsWagered    int64      `bun:"coins_wagered,notnull"`
	CreatedAt       time.Time  `bun:"created_at,notnull"`
	CompletedAt     *time.Time `bun:"completed_at"`
}

func (r duelRow) toDomain() domain.Duel {
	return domain.Duel{
		ID:              r.ID,
		ChallengerID:    r.ChallengerID,
		OpponentID:      r.OpponentID,
		Subject:         r.Subject,
		Status:          domain.DuelStatus(r.Status),
		ChallengerScore: r.ChallengerScore,
		OpponentScore:   r.OpponentScore,
		WinnerID:        r.WinnerID,
		CoinsWagered:    r.CoinsWagered,
		CreatedAt:       r.CreatedAt,
		CompletedAt:     r.CompletedAt,
	}
}

type bountyRow struct {
	bun.BaseModel `bun:"table:bounties,alias:b"`

	ID          string `bun:"id,pk"`
	Title       string `bun:"title,notnull"`
	Description string `bun:"description,notnull"`
	Type        string `bun:"type,notnull"`
	Metric      string `bun:"metric,notnull"`
	Requirement int    `bun:"requirement,notnull"`
	CoinReward  int64  `bun:"coin_reward,notnull"`
	XPReward    int64  `bun:"xp_reward,notnull"`
}

func (r bountyRow) toDomain() domain.Bounty {
	return domain.Bounty{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Type:        domain.BountyType(r.Type),
		Metric:      domain.BountyMetric(r.Metric),
		Requirement: r.Requirement,
		CoinReward:  r.CoinReward,
		XPReward:    r.XPReward,
	}
}

type userBountyRow struct {
	bun.BaseModel `bun:"table:user_bounties,alias:ub"`

	UserID    string     `bun:"user_id,pk"`
	BountyID  string     `bun:"bounty_id,pk"`
	Period    string     `bun:"period,pk"`
	Progress  int        `bun:"progress,notnull"`
	Completed bool       `bun:"completed,notnull"`
	Claimed   bool       `bun:"claimed,notnull"`
	ClaimedAt *time.Time `bun:"claimed_at"`
}

func (r userBountyRow) toDomain() domain.UserBounty {
	return domain.UserBounty{
		UserID:    r.UserID,
		BountyID:  r.BountyID,
		Period:    r.Period,
		Progress:  r.Progress,
		Completed: r.Completed,
		Claimed:   r.Claimed,
		ClaimedAt: r.ClaimedAt,
	}
}

type betRow struct {
	bun.BaseModel `bun:"table:daily_bets,alias:bt"`

	ID          string     `bun:"id,pk"`
	UserID      string     `bun:"user_id,notnull"`
	CoinsStaked int64      `bun:"coins_staked,notnull"`
	TargetScore int        `bun:"target_score,notnull"`
	TargetTotal int        `bun:"target_total,notnull"`
	Subject     *string    `bun:"subject"`
	Won         *bool      `bun:"won"`
	CoinsWon    *int64     `bun:"coins_won"`
	CreatedAt   time.Time  `bun:"created_at,notnull"`
	ResolvedAt  *time.Time `bun:"resolved_at"`
}

func (r betRow) toDomain() domain.DailyBet {
	return domain.DailyBet{
		ID:          r.ID,
		UserID:      r.UserID,
		CoinsStaked: r.CoinsStaked,
		TargetScore: r.TargetScore,
		TargetTotal: r.TargetTotal,
		Subject:     r.Subject,
		Won:         r.Won,
		CoinsWon:    r.CoinsWon,
		CreatedAt:   r.CreatedAt,
		ResolvedAt:  r.ResolvedAt,
	}
}

func dateOnly(raw string) string {
	if len(raw) > len(dateLayout) {
		return raw[:len(dateLayout)]
	}
	return raw
}
