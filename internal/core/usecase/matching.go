package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/intendex/internal/core/domain"
	"github.com/kirillkom/intendex/internal/core/ports"
	"github.com/kirillkom/intendex/internal/core/scoring"
)

const (
	decisionAccept = "accept"
	decisionReject = "reject"
)

type MatchingUseCase struct {
	intents   ports.IntentRepository
	campaigns ports.CampaignRepository
	matches   ports.MatchRepository
	rewards   ports.RewardUnitOfWork
	scorer    *scoring.Scorer
	observer  ports.MatchingObserver
	now       func() time.Time
}

func NewMatchingUseCase(
	intents ports.IntentRepository,
	campaigns ports.CampaignRepository,
	matches ports.MatchRepository,
	rewards ports.RewardUnitOfWork,
	scorer *scoring.Scorer,
	observer ports.MatchingObserver,
) *MatchingUseCase {
	if scorer == nil {
		scorer = scoring.NewScorer(scoring.DefaultProfile())
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &MatchingUseCase{
		intents:   intents,
		campaigns: campaigns,
		matches:   matches,
		rewards:   rewards,
		scorer:    scorer,
		observer:  observer,
		now:       time.Now,
	}
}

type scoredCampaign struct {
	campaign domain.Campaign
	score    float64
}

// MatchIntentToCampaigns scores every eligible campaign against the intent
// and persists the ones above the threshold. It is best-effort: failures are
// logged and whatever was persisted before the failure is returned.
func (uc *MatchingUseCase) MatchIntentToCampaigns(ctx context.Context, intentID string) []domain.Match {
	start := time.Now()
	created, outcome, err := uc.matchIntent(ctx, intentID)
	uc.finishRun(intentID, start, created, outcome, err)
	return created
}

// MatchIntentForUser is MatchIntentToCampaigns for a caller that must own the
// intent. Intents of other users are reported as not found. Only input and
// lookup errors are returned; matching itself stays best-effort.
func (uc *MatchingUseCase) MatchIntentForUser(ctx context.Context, intentID, userID string) ([]domain.Match, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "match intent", errors.New("user id is required"))
	}
	if strings.TrimSpace(intentID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "match intent", errors.New("intent id is required"))
	}
	intent, err := uc.intents.GetByID(ctx, intentID)
	if err != nil {
		return nil, fmt.Errorf("load intent: %w", err)
	}
	if intent.UserID != userID {
		return nil, domain.WrapError(domain.ErrIntentNotFound, "match intent", fmt.Errorf("id=%s", intentID))
	}

	start := time.Now()
	created, outcome, err := uc.matchLoaded(ctx, intent)
	uc.finishRun(intentID, start, created, outcome, err)
	return created, nil
}

func (uc *MatchingUseCase) finishRun(intentID string, start time.Time, created []domain.Match, outcome string, err error) {
	if err != nil {
		slog.Warn("match_intent_failed",
			"intent_id", intentID,
			"created", len(created),
			"error", err,
		)
	}
	uc.observer.ObserveMatchRun(outcome, len(created), time.Since(start))
}

func (uc *MatchingUseCase) matchIntent(ctx context.Context, intentID string) ([]domain.Match, string, error) {
	if strings.TrimSpace(intentID) == "" {
		return nil, "skipped", domain.WrapError(domain.ErrInvalidInput, "match intent", errors.New("intent id is required"))
	}
	intent, err := uc.intents.GetByID(ctx, intentID)
	if err != nil {
		return nil, "error", fmt.Errorf("load intent: %w", err)
	}
	return uc.matchLoaded(ctx, intent)
}

func (uc *MatchingUseCase) matchLoaded(ctx context.Context, intent *domain.Intent) ([]domain.Match, string, error) {
	now := uc.now().UTC()
	if !intent.Matchable(now) {
		return nil, "skipped", nil
	}

	ranked, err := uc.rankCandidates(ctx, intent, now)
	if err != nil {
		return nil, "error", err
	}
	if len(ranked) == 0 {
		return nil, "no_match", nil
	}

	created := make([]domain.Match, 0, len(ranked))
	var persistErr error
	for _, candidate := range ranked {
		match, ok, err := uc.persistMatch(ctx, intent, candidate, now)
		if err != nil {
			persistErr = err
			break
		}
		if ok {
			created = append(created, *match)
		}
	}

	if len(created) > 0 {
		if err := uc.intents.UpdateStatus(ctx, intent.ID, domain.IntentStatusMatched); err != nil {
			persistErr = errors.Join(persistErr, fmt.Errorf("mark intent matched: %w", err))
		}
	}
	if persistErr != nil {
		return created, "error", persistErr
	}
	if len(created) == 0 {
		return nil, "no_match", nil
	}
	return created, "matched", nil
}

// rankCandidates returns the candidates at or above the threshold, best first.
func (uc *MatchingUseCase) rankCandidates(ctx context.Context, intent *domain.Intent, now time.Time) ([]scoredCampaign, error) {
	candidates, err := uc.campaigns.ListCandidates(ctx, intent, now)
	if err != nil {
		return nil, fmt.Errorf("list candidate campaigns: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	existing, err := uc.matches.ExistingCampaignIDs(ctx, intent.ID)
	if err != nil {
		return nil, fmt.Errorf("load existing matches: %w", err)
	}

	ranked := make([]scoredCampaign, 0, len(candidates))
	for i := range candidates {
		campaign := candidates[i]
		if campaign.BudgetExhausted() {
			continue
		}
		if _, ok := existing[campaign.ID]; ok {
			continue
		}
		score := uc.scorer.Score(intent, &campaign)
		uc.observer.ObserveMatchScore(score)
		if score < domain.MatchScoreThreshold {
			continue
		}
		ranked = append(ranked, scoredCampaign{campaign: campaign, score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	return ranked, nil
}

func (uc *MatchingUseCase) persistMatch(ctx context.Context, intent *domain.Intent, candidate scoredCampaign, now time.Time) (*domain.Match, bool, error) {
	match := &domain.Match{
		ID:         uuid.NewString(),
		IntentID:   intent.ID,
		CampaignID: candidate.campaign.ID,
		UserID:     intent.UserID,
		Score:      candidate.score,
		Reward:     domain.RewardFor(candidate.campaign.CostPerMatch, candidate.score),
		Status:     domain.MatchStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	ok, err := uc.matches.CreatePending(ctx, match)
	if err != nil {
		return nil, false, fmt.Errorf("create match for campaign %s: %w", candidate.campaign.ID, err)
	}
	if !ok {
		// Another run persisted this pair first.
		return nil, false, nil
	}
	slog.Info("match_created",
		"match_id", match.ID,
		"intent_id", match.IntentID,
		"campaign_id", match.CampaignID,
		"score", match.Score,
		"reward", match.Reward,
	)
	return match, true, nil
}

// RunMatchingForUser matches every active commercial intent of the user.
func (uc *MatchingUseCase) RunMatchingForUser(ctx context.Context, userID string) []domain.Match {
	intents, err := uc.intents.ListMatchable(ctx, userID, uc.now().UTC())
	if err != nil {
		slog.Warn("list_matchable_intents_failed", "user_id", userID, "error", err)
		return nil
	}

	out := make([]domain.Match, 0)
	for _, intent := range intents {
		if ctx.Err() != nil {
			break
		}
		out = append(out, uc.MatchIntentToCampaigns(ctx, intent.ID)...)
	}
	return out
}

// AcceptMatch moves a pending match to accepted. The status change, campaign
// spend, user points and ledger entry commit together or not at all.
func (uc *MatchingUseCase) AcceptMatch(ctx context.Context, matchID, userID string) (*domain.Match, error) {
	if err := validateDecisionInput("accept match", matchID, userID); err != nil {
		return nil, err
	}

	var accepted *domain.Match
	err := uc.rewards.Do(ctx, func(ctx context.Context, tx ports.RewardTx) error {
		match, err := tx.LockMatchForUser(ctx, matchID, userID)
		if err != nil {
			return err
		}
		if !domain.CanTransition(match.Status, domain.MatchStatusAccepted) {
			return domain.WrapError(domain.ErrMatchAlreadyProcessed, "accept match", fmt.Errorf("match %s is %s", match.ID, match.Status))
		}

		campaign, err := tx.LockCampaign(ctx, match.CampaignID)
		if err != nil {
			return err
		}
		if !campaign.CanAfford(match.Reward) {
			return domain.WrapError(domain.ErrBudgetExhausted, "accept match",
				fmt.Errorf("campaign %s spent=%d budget=%d reward=%d", campaign.ID, campaign.Spent, campaign.Budget, match.Reward))
		}

		now := uc.now().UTC()
		if err := tx.SetMatchStatus(ctx, match.ID, domain.MatchStatusAccepted, now); err != nil {
			return err
		}
		if err := tx.AddCampaignSpent(ctx, campaign.ID, match.Reward); err != nil {
			return err
		}
		if err := tx.CreditUserPoints(ctx, userID, match.Reward); err != nil {
			return err
		}
		if err := tx.AppendTransaction(ctx, rewardTransaction(userID, match, campaign, now)); err != nil {
			return err
		}

		match.Status = domain.MatchStatusAccepted
		match.UpdatedAt = now
		accepted = match
		return nil
	})
	uc.observer.ObserveDecision(decisionAccept, decisionOutcome(err))
	if err != nil {
		return nil, err
	}

	slog.Info("match_accepted",
		"match_id", accepted.ID,
		"user_id", userID,
		"campaign_id", accepted.CampaignID,
		"reward", accepted.Reward,
	)
	return accepted, nil
}

// RejectMatch moves a pending match to rejected. Rejecting an already
// rejected match returns it unchanged.
func (uc *MatchingUseCase) RejectMatch(ctx context.Context, matchID, userID string) (*domain.Match, error) {
	if err := validateDecisionInput("reject match", matchID, userID); err != nil {
		return nil, err
	}

	var rejected *domain.Match
	err := uc.rewards.Do(ctx, func(ctx context.Context, tx ports.RewardTx) error {
		match, err := tx.LockMatchForUser(ctx, matchID, userID)
		if err != nil {
			return err
		}
		if !domain.CanTransition(match.Status, domain.MatchStatusRejected) {
			return domain.WrapError(domain.ErrMatchAlreadyProcessed, "reject match", fmt.Errorf("match %s is %s", match.ID, match.Status))
		}
		if match.Status == domain.MatchStatusRejected {
			rejected = match
			return nil
		}

		now := uc.now().UTC()
		if err := tx.SetMatchStatus(ctx, match.ID, domain.MatchStatusRejected, now); err != nil {
			return err
		}
		match.Status = domain.MatchStatusRejected
		match.UpdatedAt = now
		rejected = match
		return nil
	})
	uc.observer.ObserveDecision(decisionReject, decisionOutcome(err))
	if err != nil {
		return nil, err
	}

	slog.Info("match_rejected", "match_id", rejected.ID, "user_id", userID)
	return rejected, nil
}

func (uc *MatchingUseCase) ListMatches(ctx context.Context, userID string, status domain.MatchStatus) ([]domain.Match, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "list matches", errors.New("user id is required"))
	}
	if status != "" {
		if _, ok := domain.ParseMatchStatus(string(status)); !ok {
			return nil, domain.WrapError(domain.ErrInvalidInput, "list matches", fmt.Errorf("unknown status %q", status))
		}
	}
	matches, err := uc.matches.ListByUser(ctx, userID, status)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return matches, nil
}

func rewardTransaction(userID string, match *domain.Match, campaign *domain.Campaign, now time.Time) *domain.PointTransaction {
	return &domain.PointTransaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        domain.TransactionTypeEarn,
		Amount:      match.Reward,
		Description: fmt.Sprintf("Intent match reward: %s", campaign.Title),
		Metadata: domain.MatchRewardMetadata{
			Source:        domain.LedgerSourceIntentMatch,
			MatchID:       match.ID,
			CampaignID:    campaign.ID,
			CampaignTitle: campaign.Title,
			Score:         match.Score,
		},
		CreatedAt: now,
	}
}

func validateDecisionInput(operation, matchID, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.WrapError(domain.ErrUnauthorized, operation, errors.New("user id is required"))
	}
	if strings.TrimSpace(matchID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, operation, errors.New("match id is required"))
	}
	return nil
}

func decisionOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case domain.IsKind(err, domain.ErrMatchNotFound), domain.IsKind(err, domain.ErrCampaignNotFound):
		return "not_found"
	case domain.IsKind(err, domain.ErrMatchAlreadyProcessed):
		return "already_processed"
	case domain.IsKind(err, domain.ErrBudgetExhausted):
		return "budget_exhausted"
	default:
		return "error"
	}
}

type noopObserver struct{}

func (noopObserver) ObserveMatchRun(string, int, time.Duration)  {}
func (noopObserver) ObserveMatchScore(float64)                   {}
func (noopObserver) ObserveDecision(string, string)              {}
func (noopObserver) ObserveSweep(int, int, time.Duration, error) {}
