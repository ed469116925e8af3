package domain

import "time"

type CampaignStatus string

const (
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
)

type Campaign struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Category     string         `json:"category"`
	Keywords     []string       `json:"keywords"`
	URL          string         `json:"url,omitempty"`
	SiteName     string         `json:"site_name,omitempty"`
	Budget       int64          `json:"budget"`
	Spent        int64          `json:"spent"`
	CostPerMatch int64          `json:"cost_per_match"`
	Status       CampaignStatus `json:"status"`
	StartDate    time.Time      `json:"start_date"`
	EndDate      time.Time      `json:"end_date"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (c *Campaign) BudgetExhausted() bool {
	return c.Spent >= c.Budget
}

// RemainingBudgetRatio is max(0, (budget-spent)/budget), or 0 when the
// campaign has no budget.
func (c *Campaign) RemainingBudgetRatio() float64 {
	if c.Budget <= 0 {
		return 0
	}
	ratio := float64(c.Budget-c.Spent) / float64(c.Budget)
	if ratio < 0 {
		return 0
	}
	return ratio
}

// CanAfford reports whether paying reward keeps spent within budget.
func (c *Campaign) CanAfford(reward int64) bool {
	return c.Spent+reward <= c.Budget
}
