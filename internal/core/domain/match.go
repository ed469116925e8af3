package domain

import (
	"math"
	"time"
)

type MatchStatus string

const (
	MatchStatusPending  MatchStatus = "pending"
	MatchStatusAccepted MatchStatus = "accepted"
	MatchStatusRejected MatchStatus = "rejected"
)

// MatchScoreThreshold is the minimum relevance for a match to be persisted.
const MatchScoreThreshold = 0.40

func ParseMatchStatus(s string) (MatchStatus, bool) {
	switch st := MatchStatus(s); st {
	case MatchStatusPending, MatchStatusAccepted, MatchStatusRejected:
		return st, true
	}
	return "", false
}

// CanTransition reports whether a match may move from -> to.
// accepted is terminal; rejecting an already rejected match is a no-op.
func CanTransition(from, to MatchStatus) bool {
	switch from {
	case MatchStatusPending:
		return to == MatchStatusAccepted || to == MatchStatusRejected
	case MatchStatusRejected:
		return to == MatchStatusRejected
	default:
		return false
	}
}

type Match struct {
	ID         string      `json:"id"`
	IntentID   string      `json:"intent_id"`
	CampaignID string      `json:"campaign_id"`
	UserID     string      `json:"user_id,omitempty"`
	Score      float64     `json:"score"`
	Reward     int64       `json:"reward"`
	Status     MatchStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// RewardFor returns round(costPerMatch * score), rounding half away from zero.
func RewardFor(costPerMatch int64, score float64) int64 {
	return int64(math.Round(float64(costPerMatch) * score))
}
