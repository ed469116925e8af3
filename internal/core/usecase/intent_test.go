package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kirillkom/intendex/internal/core/domain"
)

type queueFake struct {
	published []string
	err       error
}

func (q *queueFake) PublishIntentCreated(_ context.Context, intentID string) error {
	q.published = append(q.published, intentID)
	return q.err
}

func (q *queueFake) SubscribeIntentCreated(context.Context, func(context.Context, string) error) error {
	return nil
}

func validExtracted() domain.ExtractedIntent {
	return domain.ExtractedIntent{
		Category:     "금융",
		Keyword:      "  신용카드 추천 ",
		Description:  "연회비 없는 카드 비교",
		Confidence:   0.85,
		IsCommercial: true,
		PointValue:   300,
	}
}

func TestRecordIntentPersistsAndPublishes(t *testing.T) {
	store := newMemStore()
	queue := &queueFake{}
	uc := NewIntentUseCase(store, queue)
	uc.now = func() time.Time { return fixedNow }

	intent, err := uc.Record(context.Background(), "user-1", validExtracted())
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if intent.Keyword != "신용카드 추천" {
		t.Fatalf("expected trimmed keyword, got %q", intent.Keyword)
	}
	if intent.Status != domain.IntentStatusActive {
		t.Fatalf("expected active intent, got %s", intent.Status)
	}
	if !intent.ExpiresAt.Equal(fixedNow.Add(30 * 24 * time.Hour)) {
		t.Fatalf("unexpected expiry %v", intent.ExpiresAt)
	}
	if _, ok := store.intents[intent.ID]; !ok {
		t.Fatalf("intent was not stored")
	}
	if len(queue.published) != 1 || queue.published[0] != intent.ID {
		t.Fatalf("expected intent.created for %s, got %v", intent.ID, queue.published)
	}
}

func TestRecordIntentSurvivesPublishFailure(t *testing.T) {
	store := newMemStore()
	uc := NewIntentUseCase(store, &queueFake{err: errors.New("nats down")})

	intent, err := uc.Record(context.Background(), "user-1", validExtracted())
	if err != nil {
		t.Fatalf("Record() must not fail on publish error, got %v", err)
	}
	if _, ok := store.intents[intent.ID]; !ok {
		t.Fatalf("intent was not stored")
	}
}

func TestRecordIntentNonCommercialCarriesNoPoints(t *testing.T) {
	store := newMemStore()
	queue := &queueFake{}
	uc := NewIntentUseCase(store, queue)

	extracted := validExtracted()
	extracted.IsCommercial = false
	intent, err := uc.Record(context.Background(), "user-1", extracted)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if intent.PointValue != 0 {
		t.Fatalf("expected zero points, got %d", intent.PointValue)
	}
	if len(queue.published) != 0 {
		t.Fatalf("non-commercial intents must not be announced")
	}
}

func TestRecordIntentValidation(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		mutate func(*domain.ExtractedIntent)
		kind   error
	}{
		{name: "missing user", userID: "", mutate: func(*domain.ExtractedIntent) {}, kind: domain.ErrUnauthorized},
		{name: "unknown category", userID: "u", mutate: func(e *domain.ExtractedIntent) { e.Category = "우주여행" }, kind: domain.ErrInvalidInput},
		{name: "blank keyword", userID: "u", mutate: func(e *domain.ExtractedIntent) { e.Keyword = "   " }, kind: domain.ErrInvalidInput},
		{name: "low confidence", userID: "u", mutate: func(e *domain.ExtractedIntent) { e.Confidence = 0.5 }, kind: domain.ErrInvalidInput},
		{name: "confidence above one", userID: "u", mutate: func(e *domain.ExtractedIntent) { e.Confidence = 1.2 }, kind: domain.ErrInvalidInput},
		{name: "points above ceiling", userID: "u", mutate: func(e *domain.ExtractedIntent) { e.PointValue = 1001 }, kind: domain.ErrInvalidInput},
		{name: "negative points", userID: "u", mutate: func(e *domain.ExtractedIntent) { e.PointValue = -1 }, kind: domain.ErrInvalidInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			uc := NewIntentUseCase(store, nil)
			extracted := validExtracted()
			tc.mutate(&extracted)

			_, err := uc.Record(context.Background(), tc.userID, extracted)
			if !domain.IsKind(err, tc.kind) {
				t.Fatalf("expected %v, got %v", tc.kind, err)
			}
			if len(store.intents) != 0 {
				t.Fatalf("invalid intent was stored")
			}
		})
	}
}

func TestExpireStaleIntents(t *testing.T) {
	store := newMemStore()
	store.addIntent(domain.Intent{ID: "old", Status: domain.IntentStatusActive, ExpiresAt: fixedNow.Add(-time.Hour)})
	store.addIntent(domain.Intent{ID: "fresh", Status: domain.IntentStatusActive, ExpiresAt: fixedNow.Add(time.Hour)})
	store.addIntent(domain.Intent{ID: "done", Status: domain.IntentStatusMatched, ExpiresAt: fixedNow.Add(-time.Hour)})
	uc := NewIntentUseCase(store, nil)
	uc.now = func() time.Time { return fixedNow }

	n, err := uc.ExpireStale(context.Background())
	if err != nil {
		t.Fatalf("ExpireStale() error = %v", err)
	}
	if n != 1 || store.intents["old"].Status != domain.IntentStatusExpired {
		t.Fatalf("expected only the old intent to expire, n=%d", n)
	}
	if store.intents["done"].Status != domain.IntentStatusMatched {
		t.Fatalf("matched intents keep their status")
	}
}
