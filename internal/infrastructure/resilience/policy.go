package resilience

import "time"

// Config tunes the executor that guards the outbound calls of the matching
// service: "nats.publish" for match events and "redis.lock" for the sweep
// lock. Postgres goes through database/sql and is not wrapped.
type Config struct {
	// RetryMaxAttempts counts the first call, so 1 disables retries.
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	// One breaker per operation name. It trips once BreakerMinRequests calls
	// have been seen in the window and the failure ratio reaches
	// BreakerFailureRatio.
	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

// DefaultConfig keeps a match publish or a lock attempt under a second of
// backoff: a decision request must not stall on the broker, and a missed
// sweep lock is simply retried on the next cron tick.
func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 50 * time.Millisecond,
		RetryMaxBackoff:     250 * time.Millisecond,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

// BackoffBudget is the longest a single operation can spend sleeping between
// attempts before the last error is returned.
func (c Config) BackoffBudget() time.Duration {
	c = c.normalize()
	var total time.Duration
	wait := c.RetryInitialBackoff
	for attempt := 1; attempt < c.RetryMaxAttempts; attempt++ {
		total += min(wait, c.RetryMaxBackoff)
		wait = min(time.Duration(float64(wait)*c.RetryMultiplier), c.RetryMaxBackoff)
	}
	return total
}

// normalize replaces unset or out-of-range values with the defaults so a
// partially filled Config from env never disables backoff by accident.
func (c Config) normalize() Config {
	def := DefaultConfig()

	c.RetryMaxAttempts = positiveOr(c.RetryMaxAttempts, def.RetryMaxAttempts)
	c.RetryInitialBackoff = positiveOr(c.RetryInitialBackoff, def.RetryInitialBackoff)
	c.RetryMaxBackoff = max(positiveOr(c.RetryMaxBackoff, def.RetryMaxBackoff), c.RetryInitialBackoff)
	if c.RetryMultiplier < 1.0 {
		c.RetryMultiplier = def.RetryMultiplier
	}

	c.BreakerMinRequests = positiveOr(c.BreakerMinRequests, def.BreakerMinRequests)
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		c.BreakerFailureRatio = def.BreakerFailureRatio
	}
	c.BreakerOpenTimeout = positiveOr(c.BreakerOpenTimeout, def.BreakerOpenTimeout)
	c.BreakerHalfOpenMaxCalls = positiveOr(c.BreakerHalfOpenMaxCalls, def.BreakerHalfOpenMaxCalls)
	return c
}

type orderedNumber interface {
	~int | ~uint32 | ~int64
}

func positiveOr[T orderedNumber](v, fallback T) T {
	if v <= 0 {
		return fallback
	}
	return v
}
