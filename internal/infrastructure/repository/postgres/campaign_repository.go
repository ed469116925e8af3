package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kirillkom/intendex/internal/core/domain"
)

const campaignColumns = `id, title, category, keywords, url, site_name, budget, spent, cost_per_match, status, start_date, end_date, created_at, updated_at`

type CampaignRepository struct {
	db *sql.DB
}

func NewCampaignRepository(db *sql.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// ListCandidates is the cheap pre-filter that runs before scoring: active,
// not ended, and sharing the intent's category or naming its keyword or
// category among the campaign keywords.
func (r *CampaignRepository) ListCandidates(ctx context.Context, intent *domain.Intent, now time.Time) ([]domain.Campaign, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+campaignColumns+`
FROM campaigns
WHERE status = 'active'
  AND end_date >= $3
  AND (category = $1 OR keywords ? $2 OR keywords ? $1)
`, intent.Category, intent.Keyword, now)
	if err != nil {
		return nil, fmt.Errorf("list candidate campaigns: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Campaign, 0)
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, campaign)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaigns: %w", err)
	}
	return out, nil
}

func scanCampaign(row rowScanner) (domain.Campaign, error) {
	var c domain.Campaign
	var keywordsRaw []byte
	var status string
	err := row.Scan(
		&c.ID, &c.Title, &c.Category, &keywordsRaw, &c.URL, &c.SiteName,
		&c.Budget, &c.Spent, &c.CostPerMatch, &status,
		&c.StartDate, &c.EndDate, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return domain.Campaign{}, fmt.Errorf("scan campaign: %w", err)
	}
	if len(keywordsRaw) > 0 {
		if err := json.Unmarshal(keywordsRaw, &c.Keywords); err != nil {
			return domain.Campaign{}, fmt.Errorf("unmarshal campaign keywords: %w", err)
		}
	}
	c.Status = domain.CampaignStatus(status)
	return c, nil
}
