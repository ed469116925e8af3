package ports

import (
	"context"
	"time"

	"github.com/kirillkom/intendex/internal/core/domain"
)

// IntentRepository persists and reads intents.
type IntentRepository interface {
	Create(ctx context.Context, intent *domain.Intent) error
	GetByID(ctx context.Context, id string) (*domain.Intent, error)
	ListMatchable(ctx context.Context, userID string, now time.Time) ([]domain.Intent, error)
	ListUsersWithMatchable(ctx context.Context, now time.Time) ([]string, error)
	UpdateStatus(ctx context.Context, id string, status domain.IntentStatus) error
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

// CampaignRepository reads advertiser campaigns.
type CampaignRepository interface {
	ListCandidates(ctx context.Context, intent *domain.Intent, now time.Time) ([]domain.Campaign, error)
}

// MatchRepository persists scored matches. CreatePending must be a no-op
// returning created=false when the (intent, campaign) pair already exists.
type MatchRepository interface {
	ExistingCampaignIDs(ctx context.Context, intentID string) (map[string]struct{}, error)
	CreatePending(ctx context.Context, match *domain.Match) (bool, error)
	ListByUser(ctx context.Context, userID string, status domain.MatchStatus) ([]domain.Match, error)
}

// RewardTx is the set of writes allowed inside one reward unit of work.
type RewardTx interface {
	LockMatchForUser(ctx context.Context, matchID, userID string) (*domain.Match, error)
	LockCampaign(ctx context.Context, campaignID string) (*domain.Campaign, error)
	SetMatchStatus(ctx context.Context, matchID string, status domain.MatchStatus, at time.Time) error
	AddCampaignSpent(ctx context.Context, campaignID string, amount int64) error
	CreditUserPoints(ctx context.Context, userID string, amount int64) error
	AppendTransaction(ctx context.Context, txn *domain.PointTransaction) error
}

// RewardUnitOfWork runs fn atomically. Any error from fn rolls back every
// write made through tx.
type RewardUnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx RewardTx) error) error
}

// MessageQueue publishes/consumes intent events.
type MessageQueue interface {
	PublishIntentCreated(ctx context.Context, intentID string) error
	SubscribeIntentCreated(ctx context.Context, handler func(context.Context, string) error) error
}

// Locker guards work that only one replica should run at a time.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// MatchingObserver receives matching outcomes for metrics.
type MatchingObserver interface {
	ObserveMatchRun(outcome string, created int, duration time.Duration)
	ObserveMatchScore(score float64)
	ObserveDecision(decision, outcome string)
	ObserveSweep(users, created int, duration time.Duration, err error)
}

// LedgerReader serves the points dashboard.
type LedgerReader interface {
	Summary(ctx context.Context, userID string, limit int) (*domain.PointsSummary, error)
}
