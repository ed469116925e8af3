package redis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kirillkom/intendex/internal/core/domain"
)

type clientFake struct {
	held      map[string]string
	setErr    error
	evalCalls int
}

func newClientFake() *clientFake {
	return &clientFake{held: make(map[string]string)}
}

func (c *clientFake) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	if c.setErr != nil {
		return redis.NewBoolResult(false, c.setErr)
	}
	if _, ok := c.held[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	c.held[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (c *clientFake) Eval(_ context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	c.evalCalls++
	if !strings.Contains(script, "DEL") {
		return redis.NewCmdResult(nil, errors.New("unexpected script"))
	}
	if c.held[keys[0]] != args[0].(string) {
		return redis.NewCmdResult(int64(0), nil)
	}
	delete(c.held, keys[0])
	return redis.NewCmdResult(int64(1), nil)
}

func TestTryLockIsExclusiveUntilReleased(t *testing.T) {
	fake := newClientFake()
	locker := &Locker{client: fake}
	ctx := context.Background()

	release, ok, err := locker.TryLock(ctx, "sweep", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first TryLock() = ok=%v err=%v", ok, err)
	}
	if _, ok, err := locker.TryLock(ctx, "sweep", time.Minute); err != nil || ok {
		t.Fatalf("second TryLock() should be refused, got ok=%v err=%v", ok, err)
	}
	if err := release(ctx); err != nil {
		t.Fatalf("release() error = %v", err)
	}
	if _, ok, err := locker.TryLock(ctx, "sweep", time.Minute); err != nil || !ok {
		t.Fatalf("TryLock() after release = ok=%v err=%v", ok, err)
	}
}

func TestReleaseDoesNotDeleteForeignToken(t *testing.T) {
	fake := newClientFake()
	locker := &Locker{client: fake}
	ctx := context.Background()

	release, ok, err := locker.TryLock(ctx, "sweep", time.Minute)
	if err != nil || !ok {
		t.Fatalf("TryLock() = ok=%v err=%v", ok, err)
	}
	fake.held["sweep"] = "other-holder"

	if err := release(ctx); err == nil {
		t.Fatalf("expected release of a lapsed lock to fail")
	}
	if fake.held["sweep"] != "other-holder" {
		t.Fatalf("foreign lock must survive, got %q", fake.held["sweep"])
	}
}

func TestTryLockWrapsClientErrorsAsTemporary(t *testing.T) {
	fake := newClientFake()
	fake.setErr = errors.New("connection reset")
	locker := &Locker{client: fake}

	_, ok, err := locker.TryLock(context.Background(), "sweep", time.Minute)
	if ok {
		t.Fatalf("lock must not be reported as held")
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
}

func TestTryLockRejectsNonPositiveTTL(t *testing.T) {
	locker := &Locker{client: newClientFake()}
	_, _, err := locker.TryLock(context.Background(), "sweep", 0)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestClassifyRedisError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		retryable     bool
		recordFailure bool
	}{
		{name: "network", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, retryable: true, recordFailure: true},
		{name: "eof", err: fmt.Errorf("read reply: %w", io.EOF), retryable: true, recordFailure: true},
		{name: "pool timeout", err: errors.New("redis: connection pool timeout"), retryable: true, recordFailure: true},
		{name: "script error", err: errors.New("ERR Error running script"), recordFailure: true},
		{name: "canceled", err: context.Canceled},
		{name: "nil", err: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyRedisError(tt.err)
			if got.Retryable != tt.retryable || got.RecordFailure != tt.recordFailure {
				t.Fatalf("classifyRedisError(%v) = %+v, want retryable=%v recordFailure=%v", tt.err, got, tt.retryable, tt.recordFailure)
			}
		})
	}
}
