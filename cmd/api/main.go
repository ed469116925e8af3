package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/intendex/internal/adapters/http"
	"github.com/kirillkom/intendex/internal/bootstrap"
	"github.com/kirillkom/intendex/internal/config"
	"github.com/kirillkom/intendex/internal/observability/logging"
	"github.com/kirillkom/intendex/internal/observability/metrics"
)

const serviceName = "intendex-api"

func main() {
	cfg := config.Load()
	logging.Install(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	auth, err := httpadapter.NewJWTAuthenticator(cfg.JWTSecret)
	if err != nil {
		slog.Error("auth_config_invalid", "error", err)
		os.Exit(1)
	}

	app, err := bootstrap.New(ctx, cfg, serviceName)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName, app.Registry)
	router := httpadapter.NewRouter(
		app.IntentUC,
		app.Matching,
		app.Matching,
		app.Ledger,
		auth,
		httpMetrics.Handler(),
	).Handler()

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      httpMetrics.Middleware(serviceName, router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.MatchTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_failed", "error", err)
	}
}
