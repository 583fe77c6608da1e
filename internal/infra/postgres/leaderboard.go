package postgres

import (
	"context"
	"fmt"
	"time"

	"quiz-ledger-service/internal/domain"
)

// TopEarners sums the typed transaction amounts per user since the given instant.
func (s *Store) TopEarners(ctx context.Context, txType domain.TransactionType, since time.Time, limit int) ([]domain.UserTotal, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT user_id, SUM(amount)::bigint AS total
		FROM coin_transactions
		WHERE type = $1 AND created_at >= $2
		GROUP BY user_id
		ORDER BY total DESC, user_id ASC
		LIMIT $3`, string(txType), since, limit)
	if err != nil {
		return nil, fmt.Errorf("query top earners: %w", err)
	}
	defer rows.Close()

	var out []domain.UserTotal
	for rows.Next() {
		var t domain.UserTotal
		if err := rows.Scan(&t.UserID, &t.Total); err != nil {
			return nil, fmt.Errorf("scan top earner: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top earners: %w", err)
	}
	return out, nil
}
