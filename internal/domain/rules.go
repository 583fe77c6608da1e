package domain

import (
	"math"
	"regexp"
	"time"
)

const (
	xpPerLevel        = 1000
	baseCoinsPerHit   = 1
	baseXPPerHit      = 10
	blitzMultiplier   = 2
	perfectSetSize    = 10
	perfectCoinBonus  = 5
	BetTargetTotal    = 10
	LeaderboardWindow = 7 * 24 * time.Hour
)

// LevelForXP returns floor(xp/1000)+1.
func LevelForXP(xp int64) int {
	if xp < 0 {
		xp = 0
	}
	return int(xp/xpPerLevel) + 1
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Multiplier returns the reward multiplier for d; unknown values count as easy.
func (d Difficulty) Multiplier() float64 {
	switch d {
	case DifficultyMedium:
		return 1.5
	case DifficultyHard:
		return 2
	default:
		return 1
	}
}

// Reward is the coin and XP payout of one quiz attempt.
type Reward struct {
	Coins int64 `json:"coins"`
	XP    int64 `json:"xp"`
}

// QuizReward computes the payout for correct answers out of total questions.
// Rounding is applied per correct answer, and a perfect 10-question set earns a flat bonus.
func QuizReward(difficulty Difficulty, blitz bool, correct, total int) Reward {
	if correct <= 0 {
		return Reward{}
	}
	mult := difficulty.Multiplier()
	if blitz {
		mult *= blitzMultiplier
	}
	perHitCoins := int64(math.Round(baseCoinsPerHit * mult))
	perHitXP := int64(math.Round(baseXPPerHit * mult))

	reward := Reward{
		Coins: perHitCoins * int64(correct),
		XP:    perHitXP * int64(correct),
	}
	if total == perfectSetSize && correct == total {
		reward.Coins += perfectCoinBonus
	}
	return reward
}

var betMultipliers = map[int]float64{
	7:  1.5,
	8:  2,
	9:  3,
	10: 5,
}

// ValidBetTarget reports whether target is an accepted bet target score.
func ValidBetTarget(target int) bool {
	_, ok := betMultipliers[target]
	return ok
}

// BetPayout returns the coins paid for a resolved bet; zero when the target was missed.
func BetPayout(stake int64, target, actual int) int64 {
	mult, ok := betMultipliers[target]
	if !ok || actual < target {
		return 0
	}
	return int64(math.Floor(float64(stake) * mult))
}

// NextStreak returns the streak after the first activity of a new day.
func NextStreak(current int, yesterdayMaintained bool) int {
	if yesterdayMaintained {
		return current + 1
	}
	return 1
}

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,20}$`)

// ValidateUsername enforces the lowercase 3-20 character alphabet.
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

// DayOf truncates t to midnight of its calendar day in loc.
func DayOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// LifetimePeriod keys progress of bounties that never reset.
const LifetimePeriod = "lifetime"

// BountyPeriod returns the period key that day falls in: the day itself for daily
// bounties and the Monday of its ISO week for weekly ones. day is expected to be a
// calendar day from DayOf.
func BountyPeriod(t BountyType, day time.Time) string {
	switch t {
	case BountyDaily:
		return day.Format("2006-01-02")
	case BountyWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset).Format("2006-01-02")
	default:
		return LifetimePeriod
	}
}
