// Package redis implements the sweep lock on top of a single Redis key.
package redis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kirillkom/intendex/internal/core/domain"
	"github.com/kirillkom/intendex/internal/infrastructure/resilience"
)

// releaseScript deletes the key only while it still holds our token, so a
// holder whose TTL lapsed cannot free a lock someone else now owns.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

type client interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type Locker struct {
	client   client
	executor *resilience.Executor
}

func NewLocker(rdb *redis.Client, executor *resilience.Executor) *Locker {
	return &Locker{client: rdb, executor: executor}
}

// NewClient parses redisURL and verifies connectivity.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, domain.WrapError(domain.ErrTemporary, "redis ping", err)
	}
	return rdb, nil
}

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	if ttl <= 0 {
		return nil, false, domain.WrapError(domain.ErrInvalidInput, "redis lock", fmt.Errorf("ttl must be positive"))
	}
	token := uuid.NewString()

	acquired, err := resilience.Call(ctx, l.executor, "redis.lock", func(ctx context.Context) (bool, error) {
		return l.client.SetNX(ctx, key, token, ttl).Result()
	}, classifyRedisError)
	if err != nil {
		return nil, false, domain.WrapError(domain.ErrTemporary, "redis lock", err)
	}
	if !acquired {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		deleted, err := l.client.Eval(ctx, releaseScript, []string{key}, token).Int64()
		if err != nil {
			return fmt.Errorf("redis unlock %s: %w", key, err)
		}
		if deleted == 0 {
			return fmt.Errorf("redis unlock %s: lock expired before release", key)
		}
		return nil
	}
	return release, true, nil
}

// go-redis keeps its pool timeout error internal, so it is matched by text.
const poolTimeoutMessage = "connection pool timeout"

var classifyRedisError = resilience.TransientClassifier(func(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) ||
		errors.Is(err, io.EOF) ||
		strings.Contains(err.Error(), poolTimeoutMessage)
})
