// Package ratelimit implements the requests-per-minute token bucket that
// throttles summarization calls.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"sitedigest/internal/clock"
	"sitedigest/internal/clock/system"
)

// pollInterval is how often Acquire retries a failed non-blocking
// acquisition. Request rates are requests-per-minute scale, so a fixed
// 100ms poll is cheap relative to the token spacing.
const pollInterval = 100 * time.Millisecond

// Limiter grants at most the configured number of operations per rolling
// minute. The clock is injectable so tests can drive it with synthetic time.
type Limiter struct {
	limiter *rate.Limiter
	clock   clock.Clock
}

// NewPerMinute creates a Limiter allowing rpm acquisitions per minute.
// Burst is one: tokens become available evenly spaced across the minute,
// so no rolling 60-second window ever sees more than rpm grants.
func NewPerMinute(rpm int, clk clock.Clock) (*Limiter, error) {
	if rpm <= 0 {
		return nil, fmt.Errorf("requests per minute must be > 0, got %d", rpm)
	}
	if clk == nil {
		clk = system.New()
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		clock:   clk,
	}, nil
}

// TryAcquire takes one token without blocking, reporting whether it
// succeeded.
func (l *Limiter) TryAcquire() bool {
	return l.limiter.AllowN(l.clock.Now(), 1)
}

// Acquire blocks until a token is available, polling TryAcquire on a fixed
// interval. It returns early when ctx is canceled.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		if l.TryAcquire() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("rate limit wait: %w", ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}
