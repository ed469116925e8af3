// Package scheduler drives the periodic matching sweep with robfig/cron.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/robfig/cron/v3"
)

type Job interface {
	Run(ctx context.Context) error
}

type Scheduler struct {
	cron *cron.Cron
	job  Job
	spec string
}

// New validates spec eagerly so a bad MATCH_SWEEP_SPEC fails at startup.
func New(spec string, job Job) (*Scheduler, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = "@every 15m"
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("parse sweep spec %q: %w", spec, err)
	}
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		job:  job,
		spec: spec,
	}, nil
}

// Start registers the sweep and fires one run immediately so matches do
// not wait for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("cron add func: %w", err)
	}
	s.cron.Start()
	slog.Info("sweep_scheduler_started", "spec", s.spec)

	go s.run(ctx)
	return nil
}

// Stop waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("sweep_scheduler_stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := s.job.Run(ctx); err != nil {
		slog.Error("sweep_failed", "error", err)
	}
}
