package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/intendex/internal/core/domain"
	"github.com/kirillkom/intendex/internal/core/ports"
)

type IntentUseCase struct {
	repo  ports.IntentRepository
	queue ports.MessageQueue
	now   func() time.Time
}

func NewIntentUseCase(repo ports.IntentRepository, queue ports.MessageQueue) *IntentUseCase {
	return &IntentUseCase{
		repo:  repo,
		queue: queue,
		now:   time.Now,
	}
}

// Record validates an extracted intent, stores it for userID and announces it
// to the matching workers. The announcement is best-effort.
func (uc *IntentUseCase) Record(ctx context.Context, userID string, extracted domain.ExtractedIntent) (*domain.Intent, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "record intent", errors.New("user id is required"))
	}
	extracted = extracted.Normalize()
	if err := extracted.Validate(); err != nil {
		return nil, err
	}

	now := uc.now().UTC()
	intent := &domain.Intent{
		ID:           uuid.NewString(),
		UserID:       userID,
		Category:     extracted.Category,
		Keyword:      extracted.Keyword,
		Subcategory:  extracted.Subcategory,
		Description:  extracted.Description,
		Confidence:   extracted.Confidence,
		IsCommercial: extracted.IsCommercial,
		PointValue:   extracted.PointValue,
		Status:       domain.IntentStatusActive,
		ExpiresAt:    now.Add(domain.IntentRetention),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.repo.Create(ctx, intent); err != nil {
		return nil, fmt.Errorf("create intent: %w", err)
	}

	if intent.IsCommercial && uc.queue != nil {
		if err := uc.queue.PublishIntentCreated(ctx, intent.ID); err != nil {
			slog.Warn("intent_publish_failed", "intent_id", intent.ID, "error", err)
		}
	}
	return intent, nil
}

// ExpireStale marks active intents past their retention window as expired.
func (uc *IntentUseCase) ExpireStale(ctx context.Context) (int64, error) {
	n, err := uc.repo.ExpireStale(ctx, uc.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("expire stale intents: %w", err)
	}
	return n, nil
}
