package app

import (
	"context"
	"strings"

	"quiz-ledger-service/internal/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// NewAccount describes a signup handed over by the identity provider.
type NewAccount struct {
	ID          string
	Username    string
	DisplayName string
	AvatarURL   string
}

// CreateAccount inserts a signup row with every counter zeroed.
func (l *Ledger) CreateAccount(ctx context.Context, req NewAccount) (domain.Account, error) {
	req.Username = strings.TrimSpace(req.Username)
	if req.ID == "" {
		return domain.Account{}, domain.ErrInvalidInput
	}
	if err := domain.ValidateUsername(req.Username); err != nil {
		return domain.Account{}, err
	}
	if req.DisplayName == "" {
		req.DisplayName = req.Username
	}

	account := domain.Account{
		ID:          req.ID,
		Username:    req.Username,
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
		CreatedAt:   l.now(),
	}
	if err := l.step(ctx, "create account", Critical, req.ID, func(ctx context.Context) error {
		return l.accounts.CreateAccount(ctx, account)
	}); err != nil {
		return domain.Account{}, err
	}
	return account, nil
}

// GetAccount returns the account or ErrAccountNotFound.
func (l *Ledger) GetAccount(ctx context.Context, userID string) (domain.Account, error) {
	if userID == "" {
		return domain.Account{}, domain.ErrInvalidInput
	}
	return l.accounts.GetAccount(ctx, userID)
}

// History returns the user's most recent transactions, newest first.
func (l *Ledger) History(ctx context.Context, userID string, limit int) ([]domain.Transaction, error) {
	if _, err := l.GetAccount(ctx, userID); err != nil {
		return nil, err
	}
	return l.transactions.ListTransactions(ctx, userID, clampLimit(limit))
}

// Sessions returns the user's most recent quiz sessions, newest first.
func (l *Ledger) Sessions(ctx context.Context, userID string, limit int) ([]domain.QuizSession, error) {
	if _, err := l.GetAccount(ctx, userID); err != nil {
		return nil, err
	}
	return l.sessions.ListSessions(ctx, userID, clampLimit(limit))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
