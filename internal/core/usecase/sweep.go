package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/intendex/internal/core/ports"
)

const (
	sweepLockKey        = "intendex:matching:sweep"
	defaultSweepLockTTL = 10 * time.Minute
)

type intentExpirer interface {
	ExpireStale(ctx context.Context) (int64, error)
}

// SweepUseCase periodically re-runs matching for every user that still has
// matchable intents, and expires intents past retention.
type SweepUseCase struct {
	intents  ports.IntentRepository
	matcher  ports.IntentMatcher
	expirer  intentExpirer
	locker   ports.Locker
	lockTTL  time.Duration
	observer ports.MatchingObserver
	now      func() time.Time
}

func NewSweepUseCase(
	intents ports.IntentRepository,
	matcher ports.IntentMatcher,
	expirer intentExpirer,
	locker ports.Locker,
	lockTTL time.Duration,
	observer ports.MatchingObserver,
) *SweepUseCase {
	if lockTTL <= 0 {
		lockTTL = defaultSweepLockTTL
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &SweepUseCase{
		intents:  intents,
		matcher:  matcher,
		expirer:  expirer,
		locker:   locker,
		lockTTL:  lockTTL,
		observer: observer,
		now:      time.Now,
	}
}

// Run performs one sweep. It returns nil without doing anything when another
// replica holds the sweep lock.
func (uc *SweepUseCase) Run(ctx context.Context) error {
	if uc.locker != nil {
		release, ok, err := uc.locker.TryLock(ctx, sweepLockKey, uc.lockTTL)
		if err != nil {
			return fmt.Errorf("acquire sweep lock: %w", err)
		}
		if !ok {
			slog.Info("sweep_skipped", "reason", "lock_held")
			return nil
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				slog.Warn("sweep_lock_release_failed", "error", err)
			}
		}()
	}

	start := time.Now()
	users, created, err := uc.sweep(ctx)
	uc.observer.ObserveSweep(users, created, time.Since(start), err)
	return err
}

func (uc *SweepUseCase) sweep(ctx context.Context) (int, int, error) {
	var expired int64
	if uc.expirer != nil {
		n, err := uc.expirer.ExpireStale(ctx)
		if err != nil {
			slog.Warn("sweep_expire_failed", "error", err)
		} else {
			expired = n
		}
	}

	userIDs, err := uc.intents.ListUsersWithMatchable(ctx, uc.now().UTC())
	if err != nil {
		return 0, 0, fmt.Errorf("list users with matchable intents: %w", err)
	}

	created := 0
	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return len(userIDs), created, err
		}
		created += len(uc.matcher.RunMatchingForUser(ctx, userID))
	}

	slog.Info("sweep_completed",
		"users", len(userIDs),
		"matches_created", created,
		"intents_expired", expired,
	)
	return len(userIDs), created, nil
}
