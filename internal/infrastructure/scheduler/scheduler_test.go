package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"
)

type jobFake struct {
	mu    sync.Mutex
	calls int
	done  chan struct{}
}

func (j *jobFake) Run(context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls++
	if j.calls == 1 {
		close(j.done)
	}
	return nil
}

func TestNewRejectsInvalidSpec(t *testing.T) {
	if _, err := New("every now and then", &jobFake{}); err == nil {
		t.Fatalf("expected invalid spec error")
	}
}

func TestNewDefaultsEmptySpec(t *testing.T) {
	s, err := New("  ", &jobFake{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if s.spec != "@every 15m" {
		t.Fatalf("expected default spec, got %q", s.spec)
	}
}

func TestStartRunsSweepImmediately(t *testing.T) {
	job := &jobFake{done: make(chan struct{})}
	s, err := New("@every 1h", job)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	select {
	case <-job.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected startup sweep")
	}
}
