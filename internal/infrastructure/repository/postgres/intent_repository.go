package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/intendex/internal/core/domain"
)

const intentColumns = `id, user_id, category, keyword, subcategory, description, confidence, is_commercial, point_value, status, expires_at, created_at, updated_at`

type IntentRepository struct {
	db *sql.DB
}

func NewIntentRepository(db *sql.DB) *IntentRepository {
	return &IntentRepository{db: db}
}

func (r *IntentRepository) Create(ctx context.Context, intent *domain.Intent) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO intents (`+intentColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`,
		intent.ID, intent.UserID, intent.Category, intent.Keyword, intent.Subcategory, intent.Description,
		intent.Confidence, intent.IsCommercial, intent.PointValue, string(intent.Status),
		intent.ExpiresAt, intent.CreatedAt, intent.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert intent: %w", err)
	}
	return nil
}

func (r *IntentRepository) GetByID(ctx context.Context, id string) (*domain.Intent, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+intentColumns+`
FROM intents
WHERE id = $1
`, id)

	intent, err := scanIntent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrIntentNotFound, "get intent", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan intent: %w", err)
	}
	return &intent, nil
}

func (r *IntentRepository) ListMatchable(ctx context.Context, userID string, now time.Time) ([]domain.Intent, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+intentColumns+`
FROM intents
WHERE user_id = $1 AND status = 'active' AND is_commercial AND expires_at > $2
ORDER BY created_at DESC
`, userID, now)
	if err != nil {
		return nil, fmt.Errorf("list matchable intents: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Intent, 0)
	for rows.Next() {
		intent, err := scanIntent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan intent: %w", err)
		}
		out = append(out, intent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate intents: %w", err)
	}
	return out, nil
}

func (r *IntentRepository) ListUsersWithMatchable(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT DISTINCT user_id
FROM intents
WHERE status = 'active' AND is_commercial AND expires_at > $1
`, now)
	if err != nil {
		return nil, fmt.Errorf("list users with matchable intents: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		out = append(out, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user ids: %w", err)
	}
	return out, nil
}

func (r *IntentRepository) UpdateStatus(ctx context.Context, id string, status domain.IntentStatus) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE intents
SET status = $2, updated_at = $3
WHERE id = $1
`, id, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update intent status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update intent status rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrIntentNotFound, "update intent status", fmt.Errorf("id=%s", id))
	}
	return nil
}

func (r *IntentRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
UPDATE intents
SET status = 'expired', updated_at = $1
WHERE status = 'active' AND expires_at <= $1
`, now)
	if err != nil {
		return 0, fmt.Errorf("expire intents: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire intents rows affected: %w", err)
	}
	return n, nil
}

func scanIntent(row rowScanner) (domain.Intent, error) {
	var intent domain.Intent
	var status string
	err := row.Scan(
		&intent.ID,
		&intent.UserID,
		&intent.Category,
		&intent.Keyword,
		&intent.Subcategory,
		&intent.Description,
		&intent.Confidence,
		&intent.IsCommercial,
		&intent.PointValue,
		&status,
		&intent.ExpiresAt,
		&intent.CreatedAt,
		&intent.UpdatedAt,
	)
	if err != nil {
		return domain.Intent{}, err
	}
	intent.Status = domain.IntentStatus(status)
	return intent, nil
}
