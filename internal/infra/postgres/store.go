package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"quiz-ledger-service/internal/domain"
)

const defaultQueryTimeout = 5 * time.Second

// Store implements the ledger repositories on Postgres. Row writes go through bun;
// aggregate reads use the pgx pool directly.
type Store struct {
	db       *bun.DB
	pool     *pgxpool.Pool
	location *time.Location
	timeout  time.Duration
}

func NewStore(db *bun.DB, pool *pgxpool.Pool, loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{db: db, pool: pool, location: loc, timeout: defaultQueryTimeout}
}

// OpenDB opens a bun handle over pgdriver for dsn.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// constraintViolation reports the SQLSTATE code and constraint name of a Postgres error.
func constraintViolation(err error) (code, constraint string, ok bool) {
	var pgErr pgdriver.Error
	if !errors.As(err, &pgErr) {
		return "", "", false
	}
	return pgErr.Field('C'), pgErr.Field('n'), true
}

const (
	uniqueViolation = "23505"
	checkViolation  = "23514"
)

func (s *Store) CreateAccount(ctx context.Context, account domain.Account) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := &profileRow{
		ID:          account.ID,
		Username:    account.Username,
		DisplayName: account.DisplayName,
		AvatarURL:   account.AvatarURL,
		Coins:       account.Coins,
		XP:          account.XP,
		Streak:      account.Streak,
		MaxStreak:   account.MaxStreak,
		CreatedAt:   account.CreatedAt,
	}
	_, err := s.db.NewInsert().Model(row).Exec(ctx)
	if code, constraint, ok := constraintViolation(err); ok && code == uniqueViolation {
		if constraint == "profiles_username_key" {
			return domain.ErrUsernameTaken
		}
		return domain.ErrAccountExists
	}
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, userID string) (domain.Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := new(profileRow)
	err := s.db.NewSelect().Model(row).Where("id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("select profile: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) GetAccounts(ctx context.Context, userIDs []string) (map[string]domain.Account, error) {
	out := make(map[string]domain.Account, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []profileRow
	if err := s.db.NewSelect().Model(&rows).Where("id IN (?)", bun.In(userIDs)).Scan(ctx); err != nil {
		return nil, fmt.Errorf("select profiles: %w", err)
	}
	for _, r := range rows {
		out[r.ID] = r.toDomain()
	}
	return out, nil
}

func (s *Store) AddProgress(ctx context.Context, userID string, coins, xp int64) (domain.Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := new(profileRow)
	err := s.db.NewUpdate().Model(row).
		Set("coins = coins + ?", coins).
		Set("xp = xp + ?", xp).
		Where("id = ?", userID).
		Returning("*").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	if code, _, ok := constraintViolation(err); ok && code == checkViolation {
		return domain.Account{}, domain.ErrInsufficientCoins
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("add progress: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) DebitCoins(ctx context.Context, userID string, amount int64) (domain.Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := new(profileRow)
	err := s.db.NewUpdate().Model(row).
		Set("coins = coins - ?", amount).
		Where("id = ?", userID).
		Where("coins >= ?", amount).
		Returning("*").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := s.GetAccount(ctx, userID); getErr != nil {
			return domain.Account{}, getErr
		}
		return domain.Account{}, domain.ErrInsufficientCoins
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("debit coins: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) UpdateStreak(ctx context.Context, userID string, streak int) (domain.Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := new(profileRow)
	err := s.db.NewUpdate().Model(row).
		Set("streak = ?", streak).
		Set("max_streak = GREATEST(max_streak, ?)", streak).
		Where("id = ?", userID).
		Returning("*").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("update streak: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) TopByCoins(ctx context.Context, limit int) ([]domain.Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []profileRow
	err := s.db.NewSelect().Model(&rows).
		OrderExpr("coins DESC, username ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select top profiles: %w", err)
	}
	out := make([]domain.Account, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) AppendTransaction(ctx context.Context, tx domain.Transaction) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := &transactionRow{
		ID:          tx.ID,
		UserID:      tx.UserID,
		Amount:      tx.Amount,
		Type:        string(tx.Type),
		ReferenceID: tx.ReferenceID,
		Description: tx.Description,
		CreatedAt:   tx.CreatedAt,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string, limit int) ([]domain.Transaction, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []transactionRow
	err := s.db.NewSelect().Model(&rows).
		Where("user_id = ?", userID).
		OrderExpr("created_at DESC, id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	out := make([]domain.Transaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) GetActivity(ctx context.Context, userID string, day time.Time) (domain.DailyActivity, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := new(activityRow)
	err := s.db.NewSelect().Model(row).
		ColumnExpr("user_id, activity_date::text AS activity_date").
		ColumnExpr("questions_answered, coins_earned, streak_maintained").
		Where("user_id = ?", userID).
		Where("activity_date = ?::date", day.Format(dateLayout)).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DailyActivity{}, false, nil
	}
	if err != nil {
		return domain.DailyActivity{}, false, fmt.Errorf("select activity: %w", err)
	}
	return row.toDomain(s.location), true, nil
}

func (s *Store) AccumulateActivity(ctx context.Context, userID string, day time.Time, questions int, coins int64) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := &activityRow{
		UserID:            userID,
		Day:               day.Format(dateLayout),
		QuestionsAnswered: questions,
		CoinsEarned:       coins,
		StreakMaintained:  true,
	}
	var inserted bool
	err := s.db.NewInsert().Model(row).
		On("CONFLICT (user_id, activity_date) DO UPDATE").
		Set("questions_answered = da.questions_answered + EXCLUDED.questions_answered").
		Set("coins_earned = da.coins_earned + EXCLUDED.coins_earned").
		Set("streak_maintained = TRUE").
		Returning("(xmax = 0) AS inserted").
		Scan(ctx, &inserted)
	if err != nil {
		return false, fmt.Errorf("upsert activity: %w", err)
	}
	return inserted, nil
}
