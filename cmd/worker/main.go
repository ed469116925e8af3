package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/intendex/internal/bootstrap"
	"github.com/kirillkom/intendex/internal/config"
	"github.com/kirillkom/intendex/internal/observability/logging"
	"github.com/kirillkom/intendex/internal/observability/metrics"
)

const serviceName = "intendex-worker"

func main() {
	cfg := config.Load()
	logging.Install(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, serviceName)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler(app.Registry))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker_metrics_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	sweeps, err := app.NewSweepScheduler(ctx)
	if err != nil {
		slog.Error("sweep_scheduler_init_failed", "error", err)
		return
	}
	if err := sweeps.Start(ctx); err != nil {
		slog.Error("sweep_scheduler_start_failed", "error", err)
		return
	}
	defer sweeps.Stop()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeIntentCreated(ctx, func(handlerCtx context.Context, intentID string) error {
		matchCtx, cancel := context.WithTimeout(handlerCtx, cfg.MatchTimeout)
		defer cancel()

		app.Metrics.StartEvent()
		created := app.Matching.MatchIntentToCampaigns(matchCtx, intentID)
		app.Metrics.FinishEvent(matchCtx.Err())
		slog.Debug("intent_event_handled", "intent_id", intentID, "matches_created", len(created))
		return nil
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
	}
}
