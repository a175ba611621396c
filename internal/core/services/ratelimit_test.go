package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntervalLimiterZeroInterval(t *testing.T) {
	limiter := NewIntervalLimiter(0)

	start := time.Now()
	err := limiter.Wait(context.Background())

	assert.NoError(t, err)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestIntervalLimiterWaits(t *testing.T) {
	limiter := NewIntervalLimiter(20 * time.Millisecond)

	start := time.Now()
	err := limiter.Wait(context.Background())

	assert.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestIntervalLimiterCanceledContext(t *testing.T) {
	limiter := NewIntervalLimiter(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := limiter.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
