package services

import (
	"context"
	"time"

	"github.com/HMasataka/chatwork-log-exporter/internal/ports"
)

// IntervalLimiter enforces a fixed delay between consecutive requests.
// The gateway's tolerance is unknown, so this is deliberately a plain
// conservative pause rather than a token bucket.
type IntervalLimiter struct {
	interval time.Duration
}

var _ ports.Limiter = (*IntervalLimiter)(nil)

// NewIntervalLimiter creates a limiter with the given inter-request delay.
func NewIntervalLimiter(interval time.Duration) *IntervalLimiter {
	return &IntervalLimiter{interval: interval}
}

// Wait suspends the caller for the configured delay, or returns early with
// the context's error when the run is cancelled. A zero or negative
// interval returns immediately.
func (l *IntervalLimiter) Wait(ctx context.Context) error {
	if l.interval <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(l.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
