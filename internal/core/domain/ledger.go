package domain

import "time"

// LedgerSourceIntentMatch tags point transactions produced by accepted
// matches. Dashboards parse it from transaction history.
const LedgerSourceIntentMatch = "intent_match"

type TransactionType string

const TransactionTypeEarn TransactionType = "earn"

type MatchRewardMetadata struct {
	Source        string  `json:"source"`
	MatchID       string  `json:"matchId"`
	CampaignID    string  `json:"campaignId"`
	CampaignTitle string  `json:"campaignTitle"`
	Score         float64 `json:"score"`
}

type PointTransaction struct {
	ID          string              `json:"id"`
	UserID      string              `json:"user_id"`
	Type        TransactionType     `json:"type"`
	Amount      int64               `json:"amount"`
	Description string              `json:"description"`
	Metadata    MatchRewardMetadata `json:"metadata"`
	CreatedAt   time.Time           `json:"created_at"`
}

// PointsSummary is the user's balance plus the most recent ledger entries.
type PointsSummary struct {
	UserID       string             `json:"user_id"`
	Balance      int64              `json:"balance"`
	Transactions []PointTransaction `json:"transactions"`
}
