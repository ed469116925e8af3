package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/intendex/internal/config"
	"github.com/kirillkom/intendex/internal/core/scoring"
	"github.com/kirillkom/intendex/internal/core/usecase"
	redislock "github.com/kirillkom/intendex/internal/infrastructure/lock/redis"
	"github.com/kirillkom/intendex/internal/infrastructure/queue/nats"
	"github.com/kirillkom/intendex/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/intendex/internal/infrastructure/resilience"
	"github.com/kirillkom/intendex/internal/infrastructure/scheduler"
	"github.com/kirillkom/intendex/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Registry *prometheus.Registry
	Metrics  *metrics.MatchingMetrics

	Queue    *nats.Queue
	Intents  *postgres.IntentRepository
	Ledger   *postgres.LedgerRepository
	IntentUC *usecase.IntentUseCase
	Matching *usecase.MatchingUseCase

	db       *sql.DB
	executor *resilience.Executor
	closeFns []func()
}

// New wires everything both binaries share: Postgres, NATS, the scorer and the
// use cases. service labels the metrics registry.
func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	registry := prometheus.NewRegistry()
	matchingMetrics := metrics.NewMatchingMetrics(service, registry)

	profile, err := scoring.LoadProfile(cfg.ScoringProfilePath)
	if err != nil {
		return nil, fmt.Errorf("load scoring profile: %w", err)
	}
	if cfg.ScoringProfilePath != "" {
		slog.Info("scoring_profile_loaded", "path", cfg.ScoringProfilePath)
	}

	resilienceCfg := resilience.DefaultConfig()
	resilienceCfg.RetryMaxAttempts = cfg.ResilienceRetryMaxAttempts
	resilienceCfg.BreakerEnabled = cfg.ResilienceBreakerEnabled
	slog.Info("resilience_configured",
		"max_attempts", resilienceCfg.RetryMaxAttempts,
		"breaker_enabled", resilienceCfg.BreakerEnabled,
		"backoff_budget", resilienceCfg.BackoffBudget().String(),
	)
	executor := resilience.NewExecutorWithHooks(resilienceCfg, resilience.Hooks{
		OnRetry:       matchingMetrics.RecordRetry,
		OnStateChange: matchingMetrics.RecordBreakerState,
	})

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	intents := postgres.NewIntentRepository(db)
	matching := usecase.NewMatchingUseCase(
		intents,
		postgres.NewCampaignRepository(db),
		postgres.NewMatchRepository(db),
		postgres.NewRewardUnitOfWork(db),
		scoring.NewScorer(profile),
		matchingMetrics,
	)

	app := &App{
		Config:   cfg,
		Registry: registry,
		Metrics:  matchingMetrics,
		Queue:    queue,
		Intents:  intents,
		Ledger:   postgres.NewLedgerRepository(db),
		IntentUC: usecase.NewIntentUseCase(intents, queue),
		Matching: matching,
		db:       db,
		executor: executor,
	}
	app.closeFns = append(app.closeFns, func() { _ = db.Close() }, queue.Close)
	return app, nil
}

// NewSweepScheduler connects to Redis for the sweep lock and returns the cron
// scheduler driving SweepUseCase. Only the worker needs it.
func (a *App) NewSweepScheduler(ctx context.Context) (*scheduler.Scheduler, error) {
	rdb, err := redislock.NewClient(ctx, a.Config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}
	a.closeFns = append(a.closeFns, func() { _ = rdb.Close() })

	sweep := usecase.NewSweepUseCase(
		a.Intents,
		a.Matching,
		a.IntentUC,
		redislock.NewLocker(rdb, a.executor),
		a.Config.MatchSweepLockTTL,
		a.Metrics,
	)
	return scheduler.New(a.Config.MatchSweepSpec, sweep)
}

func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
}
