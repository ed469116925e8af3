package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kirillkom/intendex/internal/core/domain"
)

const matchColumns = `m.id, m.intent_id, m.campaign_id, i.user_id, m.score, m.reward, m.status, m.created_at, m.updated_at`

type MatchRepository struct {
	db *sql.DB
}

func NewMatchRepository(db *sql.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) ExistingCampaignIDs(ctx context.Context, intentID string) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT campaign_id
FROM matches
WHERE intent_id = $1
`, intentID)
	if err != nil {
		return nil, fmt.Errorf("list matched campaigns: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var campaignID string
		if err := rows.Scan(&campaignID); err != nil {
			return nil, fmt.Errorf("scan campaign id: %w", err)
		}
		out[campaignID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matched campaigns: %w", err)
	}
	return out, nil
}

// CreatePending inserts the match unless the (intent, campaign) pair already
// exists. The unique constraint settles concurrent matcher runs.
func (r *MatchRepository) CreatePending(ctx context.Context, match *domain.Match) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
INSERT INTO matches (id, intent_id, campaign_id, user_id, score, reward, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (intent_id, campaign_id) DO NOTHING
`,
		match.ID, match.IntentID, match.CampaignID, match.UserID, match.Score, match.Reward,
		string(match.Status), match.CreatedAt, match.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert match: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert match rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *MatchRepository) ListByUser(ctx context.Context, userID string, status domain.MatchStatus) ([]domain.Match, error) {
	query := `
SELECT ` + matchColumns + `
FROM matches m
JOIN intents i ON i.id = m.intent_id
WHERE i.user_id = $1
`
	args := []interface{}{userID}
	if status != "" {
		query += "AND m.status = $2\n"
		args = append(args, string(status))
	}
	query += "ORDER BY m.score DESC, m.created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Match, 0)
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		out = append(out, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return out, nil
}

func scanMatch(row rowScanner) (domain.Match, error) {
	var m domain.Match
	var status string
	err := row.Scan(
		&m.ID,
		&m.IntentID,
		&m.CampaignID,
		&m.UserID,
		&m.Score,
		&m.Reward,
		&status,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return domain.Match{}, err
	}
	m.Status = domain.MatchStatus(status)
	return m, nil
}
