package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/intendex/internal/core/domain"
)

const (
	defaultLedgerLimit = 20
	maxLedgerLimit     = 100
)

type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Summary returns the balance and newest transactions. Users that never
// earned anything get a zero balance rather than an error.
func (r *LedgerRepository) Summary(ctx context.Context, userID string, limit int) (*domain.PointsSummary, error) {
	if limit <= 0 {
		limit = defaultLedgerLimit
	}
	limit = min(limit, maxLedgerLimit)

	summary := &domain.PointsSummary{UserID: userID, Transactions: make([]domain.PointTransaction, 0)}
	err := r.db.QueryRowContext(ctx, `
SELECT points
FROM user_points
WHERE user_id = $1
`, userID).Scan(&summary.Balance)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user points: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, type, amount, description, metadata, created_at
FROM point_transactions
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list point transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		summary.Transactions = append(summary.Transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate point transactions: %w", err)
	}
	return summary, nil
}

func scanTransaction(row rowScanner) (domain.PointTransaction, error) {
	var txn domain.PointTransaction
	var txnType string
	var metadata []byte
	if err := row.Scan(&txn.ID, &txn.UserID, &txnType, &txn.Amount, &txn.Description, &metadata, &txn.CreatedAt); err != nil {
		return domain.PointTransaction{}, fmt.Errorf("scan point transaction: %w", err)
	}
	txn.Type = domain.TransactionType(txnType)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &txn.Metadata); err != nil {
			return domain.PointTransaction{}, fmt.Errorf("decode transaction metadata: %w", err)
		}
	}
	return txn, nil
}
