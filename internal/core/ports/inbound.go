package ports

import (
	"context"

	"github.com/kirillkom/intendex/internal/core/domain"
)

// IntentRecorder is the inbound contract for the extraction pipeline.
type IntentRecorder interface {
	Record(ctx context.Context, userID string, extracted domain.ExtractedIntent) (*domain.Intent, error)
}

// IntentMatcher runs best-effort matching. Matching itself never fails; an
// empty result means nothing was matched or the run was aborted.
type IntentMatcher interface {
	MatchIntentToCampaigns(ctx context.Context, intentID string) []domain.Match
	RunMatchingForUser(ctx context.Context, userID string) []domain.Match
	// MatchIntentForUser checks ownership first; foreign intents are not found.
	MatchIntentForUser(ctx context.Context, intentID, userID string) ([]domain.Match, error)
}

// MatchLifecycle is the inbound contract for user decisions on matches.
type MatchLifecycle interface {
	AcceptMatch(ctx context.Context, matchID, userID string) (*domain.Match, error)
	RejectMatch(ctx context.Context, matchID, userID string) (*domain.Match, error)
	ListMatches(ctx context.Context, userID string, status domain.MatchStatus) ([]domain.Match, error)
}
