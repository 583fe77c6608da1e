package domain

import "time"

// Account holds the identity and progression counters of a single user.
type Account struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	AvatarURL   string    `json:"avatarUrl"`
	Coins       int64     `json:"coins"`
	XP          int64     `json:"xp"`
	Streak      int       `json:"streak"`
	MaxStreak   int       `json:"maxStreak"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Level is always derived from XP; it is never stored.
func (a Account) Level() int {
	return LevelForXP(a.XP)
}

// Profile returns the counters shown to the client after a settlement.
func (a Account) Profile() Profile {
	return Profile{Coins: a.Coins, XP: a.XP, Streak: a.Streak, Level: a.Level()}
}

// Profile is the compact progression snapshot returned by settlements.
type Profile struct {
	Coins  int64 `json:"coins"`
	XP     int64 `json:"xp"`
	Streak int   `json:"streak"`
	Level  int   `json:"level"`
}

// TransactionType tags the event that moved coins. The set is open.
type TransactionType string

const (
	TxQuizReward   TransactionType = "quiz_reward"
	TxDuelWin      TransactionType = "duel_win"
	TxBountyReward TransactionType = "bounty_reward"
	TxBetPlaced    TransactionType = "bet_placed"
	TxBetPayout    TransactionType = "bet_payout"
	TxBadgeBonus   TransactionType = "badge_bonus"
)

// Transaction is an append-only coin movement. Amount is negative for debits.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Amount      int64           `json:"amount"`
	Type        TransactionType `json:"type"`
	ReferenceID string          `json:"referenceId,omitempty"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// DailyActivity accumulates a user's work for one calendar day.
type DailyActivity struct {
	UserID            string    `json:"userId"`
	Day               time.Time `json:"day"`
	QuestionsAnswered int       `json:"questionsAnswered"`
	CoinsEarned       int64     `json:"coinsEarned"`
	StreakMaintained  bool      `json:"streakMaintained"`
}

// QuizSession is one completed quiz attempt.
type QuizSession struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Subject        string    `json:"subject"`
	TotalQuestions int       `json:"totalQuestions"`
	CorrectAnswers int       `json:"correctAnswers"`
	CoinsEarned    int64     `json:"coinsEarned"`
	XPEarned       int64     `json:"xpEarned"`
	StreakBonus    bool      `json:"streakBonus"`
	CompletedAt    time.Time `json:"completedAt"`
}

// UserAnswer is a single answered question inside a session.
// A nil SelectedIndex means the question timed out without a selection.
type UserAnswer struct {
	SessionID     string `json:"sessionId"`
	QuestionID    string `json:"questionId"`
	SelectedIndex *int   `json:"selected"`
	IsCorrect     bool   `json:"isCorrect"`
	TimeRemaining int    `json:"timeLeft"`
}

type DuelStatus string

const (
	DuelActive    DuelStatus = "active"
	DuelCompleted DuelStatus = "completed"
)

// Duel is a 1v1 match. WinnerID is nil on a tie or while active.
type Duel struct {
	ID              string     `json:"id"`
	ChallengerID    string     `json:"challengerId"`
	OpponentID      string     `json:"opponentId"`
	Subject         string     `json:"subject"`
	Status          DuelStatus `json:"status"`
	ChallengerScore int        `json:"challengerScore"`
	OpponentScore   int        `json:"opponentScore"`
	WinnerID        *string    `json:"winnerId"`
	CoinsWagered    int64      `json:"coinsWagered"`
	CreatedAt       time.Time  `json:"createdAt"`
	CompletedAt     *time.Time `json:"completedAt"`
}

type BountyType string

const (
	BountyDaily  BountyType = "daily"
	BountyWeekly BountyType = "weekly"
)

// BountyMetric names the counter a bounty tracks.
type BountyMetric string

const (
	MetricQuizzesCompleted  BountyMetric = "quizzes_completed"
	MetricQuestionsAnswered BountyMetric = "questions_answered"
	MetricCorrectAnswers    BountyMetric = "correct_answers"
	MetricDuelsWon          BountyMetric = "duels_won"
)

// Bounty is a static objective definition.
type Bounty struct {
	ID          string       `json:"id" yaml:"id"`
	Title       string       `json:"title" yaml:"title"`
	Description string       `json:"description" yaml:"description"`
	Type        BountyType   `json:"type" yaml:"type"`
	Metric      BountyMetric `json:"metric" yaml:"metric"`
	Requirement int          `json:"requirement" yaml:"requirement"`
	CoinReward  int64        `json:"coinReward" yaml:"coin_reward"`
	XPReward    int64        `json:"xpReward" yaml:"xp_reward"`
}

// UserBounty is a user's progress toward a bounty within one period.
// Claimed implies Completed.
type UserBounty struct {
	UserID    string     `json:"userId"`
	BountyID  string     `json:"bountyId"`
	Period    string     `json:"period"`
	Progress  int        `json:"progress"`
	Completed bool       `json:"completed"`
	Claimed   bool       `json:"claimed"`
	ClaimedAt *time.Time `json:"claimedAt,omitempty"`
}

// DailyBet is a wager on the user's next 10-question quiz score.
type DailyBet struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	CoinsStaked int64      `json:"coinsStaked"`
	TargetScore int        `json:"targetScore"`
	TargetTotal int        `json:"targetTotal"`
	Subject     *string    `json:"subject"`
	Won         *bool      `json:"won"`
	CoinsWon    *int64     `json:"coinsWon"`
	CreatedAt   time.Time  `json:"createdAt"`
	ResolvedAt  *time.Time `json:"resolvedAt"`
}

// Pending reports whether the bet still awaits resolution.
func (b DailyBet) Pending() bool {
	return b.ResolvedAt == nil
}

// UserTotal is a per-user sum of transaction amounts.
type UserTotal struct {
	UserID string
	Total  int64
}

// LeaderboardEntry is one ranked row of the weekly leaderboard.
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	UserID        string `json:"userId"`
	Username      string `json:"username"`
	AvatarURL     string `json:"avatarUrl"`
	Level         int    `json:"level"`
	Streak        int    `json:"streak"`
	CoinsThisWeek int64  `json:"coinsThisWeek"`
}

// Leaderboard is a timestamped snapshot pushed to live subscribers.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
