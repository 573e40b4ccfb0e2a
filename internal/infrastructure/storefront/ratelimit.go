package storefront

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RateLimiter spaces Admin API calls so a bulk sync stays inside the
// platform's REST bucket (2 requests/second on standard plans).
type RateLimiter struct {
	mu          sync.Mutex
	last        time.Time
	minInterval time.Duration
	logger      zerolog.Logger
}

// NewRateLimiter creates a rate limiter with the standard-plan interval.
func NewRateLimiter(logger zerolog.Logger) *RateLimiter {
	return NewRateLimiterWithInterval(500*time.Millisecond, logger)
}

// NewRateLimiterWithInterval creates a rate limiter with a custom minimum
// interval between requests.
func NewRateLimiterWithInterval(interval time.Duration, logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{minInterval: interval, logger: logger}
}

// Wait blocks until the next request slot or until ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	now := time.Now()
	next := r.last.Add(r.minInterval)
	if next.Before(now) {
		next = now
	}
	r.last = next
	r.mu.Unlock()

	delay := time.Until(next)
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryConfig controls retry behaviour for throttled or failing API calls.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns the retry settings used in production.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
	}
}

// backoff returns the delay before the given retry attempt, doubling each
// time up to the configured maximum.
func (c RetryConfig) backoff(attempt int) time.Duration {
	d := c.InitialBackoff
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= c.MaxBackoff {
			return c.MaxBackoff
		}
	}
	return d
}
