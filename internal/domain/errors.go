package domain

import "errors"

// Kind classifies ledger errors so transports can map them to status codes.
type Kind int

const (
	KindPersistence Kind = iota
	KindValidation
	KindNotFound
	KindRule
)

// Error is a classified ledger error. Sentinels below are compared with errors.Is.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

var (
	// ErrInvalidInput is returned when a request is missing required fields.
	ErrInvalidInput = newError(KindValidation, "missing or invalid fields")
	// ErrInvalidUsername rejects usernames outside 3-20 lowercase alphanumerics and underscores.
	ErrInvalidUsername = newError(KindValidation, "username must be 3-20 characters of a-z, 0-9 or _")
	// ErrInvalidTargetScore rejects bet targets outside 7..10.
	ErrInvalidTargetScore = newError(KindValidation, "target score must be 7, 8, 9 or 10")
	// ErrInvalidStake rejects non-positive bet stakes.
	ErrInvalidStake = newError(KindValidation, "stake must be a positive number of coins")

	ErrAccountNotFound = newError(KindNotFound, "profile not found")
	ErrBountyNotFound  = newError(KindNotFound, "bounty not found")
	ErrDuelNotFound    = newError(KindNotFound, "duel not found")
	ErrBetNotFound     = newError(KindNotFound, "no active bet")

	ErrUsernameTaken        = newError(KindRule, "username already taken")
	ErrAccountExists        = newError(KindRule, "profile already exists")
	ErrBountyNotCompleted   = newError(KindRule, "bounty not completed yet")
	ErrBountyAlreadyClaimed = newError(KindRule, "bounty already claimed")
	ErrInsufficientCoins    = newError(KindRule, "insufficient coins")
	ErrActiveBetExists      = newError(KindRule, "you already have an active bet")
	ErrBetAlreadyResolved   = newError(KindRule, "bet already resolved")
	ErrDuelAlreadyCompleted = newError(KindRule, "duel already completed")
	ErrDuelPlayerMismatch   = newError(KindValidation, "players do not match the duel")
)

// KindOf returns the classification of err; unclassified errors are persistence failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPersistence
}

// Message returns the client-facing message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return err.Error()
}
