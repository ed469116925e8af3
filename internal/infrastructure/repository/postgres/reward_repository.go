package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/intendex/internal/core/domain"
	"github.com/kirillkom/intendex/internal/core/ports"
)

// RewardUnitOfWork runs match decisions in a single database transaction.
type RewardUnitOfWork struct {
	db *sql.DB
}

func NewRewardUnitOfWork(db *sql.DB) *RewardUnitOfWork {
	return &RewardUnitOfWork{db: db}
}

func (u *RewardUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, tx ports.RewardTx) error) error {
	tx, err := u.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "begin reward tx", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(ctx, &rewardTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reward tx: %w", err)
	}
	return nil
}

type rewardTx struct {
	tx *sql.Tx
}

func (t *rewardTx) LockMatchForUser(ctx context.Context, matchID, userID string) (*domain.Match, error) {
	row := t.tx.QueryRowContext(ctx, `
SELECT `+matchColumns+`
FROM matches m
JOIN intents i ON i.id = m.intent_id
WHERE m.id = $1 AND i.user_id = $2
FOR UPDATE OF m
`, matchID, userID)

	match, err := scanMatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrMatchNotFound, "lock match", fmt.Errorf("id=%s", matchID))
		}
		return nil, fmt.Errorf("lock match: %w", err)
	}
	return &match, nil
}

func (t *rewardTx) LockCampaign(ctx context.Context, campaignID string) (*domain.Campaign, error) {
	row := t.tx.QueryRowContext(ctx, `
SELECT `+campaignColumns+`
FROM campaigns
WHERE id = $1
FOR UPDATE
`, campaignID)

	campaign, err := scanCampaign(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrCampaignNotFound, "lock campaign", fmt.Errorf("id=%s", campaignID))
		}
		return nil, fmt.Errorf("lock campaign: %w", err)
	}
	return &campaign, nil
}

func (t *rewardTx) SetMatchStatus(ctx context.Context, matchID string, status domain.MatchStatus, at time.Time) error {
	result, err := t.tx.ExecContext(ctx, `
UPDATE matches
SET status = $2, updated_at = $3
WHERE id = $1
`, matchID, string(status), at)
	if err != nil {
		return fmt.Errorf("update match status: %w", err)
	}
	return requireOneRow(result, domain.ErrMatchNotFound, "update match status", matchID)
}

// AddCampaignSpent refuses to push spent past budget even if the caller's
// view of the campaign is stale.
func (t *rewardTx) AddCampaignSpent(ctx context.Context, campaignID string, amount int64) error {
	result, err := t.tx.ExecContext(ctx, `
UPDATE campaigns
SET spent = spent + $2, updated_at = $3
WHERE id = $1 AND spent + $2 <= budget
`, campaignID, amount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("increment campaign spent: %w", err)
	}
	return requireOneRow(result, domain.ErrBudgetExhausted, "increment campaign spent", campaignID)
}

func (t *rewardTx) CreditUserPoints(ctx context.Context, userID string, amount int64) error {
	_, err := t.tx.ExecContext(ctx, `
INSERT INTO user_points (user_id, points, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO UPDATE
SET points = user_points.points + EXCLUDED.points, updated_at = EXCLUDED.updated_at
`, userID, amount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("credit user points: %w", err)
	}
	return nil
}

func (t *rewardTx) AppendTransaction(ctx context.Context, txn *domain.PointTransaction) error {
	metadata, err := json.Marshal(txn.Metadata)
	if err != nil {
		return fmt.Errorf("marshal transaction metadata: %w", err)
	}
	_, err = t.tx.ExecContext(ctx, `
INSERT INTO point_transactions (id, user_id, type, amount, description, metadata, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, txn.ID, txn.UserID, string(txn.Type), txn.Amount, txn.Description, metadata, txn.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert point transaction: %w", err)
	}
	return nil
}

func requireOneRow(result sql.Result, kind error, operation, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if rows == 0 {
		return domain.WrapError(kind, operation, fmt.Errorf("id=%s", id))
	}
	return nil
}
