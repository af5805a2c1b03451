package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketLimiter_AllowWithinBurst(t *testing.T) {
	limiter := NewTokenBucketLimiter(ProviderNameOpenAI, 600, 5)

	// Full bucket allows burst
	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow(), "request %d within burst should pass", i)
	}

	// Bucket drained
	assert.False(t, limiter.Allow())
}

func TestTokenBucketLimiter_Refill(t *testing.T) {
	// 6000 req/min = 100 req/sec, refills quickly
	limiter := NewTokenBucketLimiter(ProviderNameOpenAI, 6000, 1)

	require.True(t, limiter.Allow())
	require.False(t, limiter.Allow())

	time.Sleep(50 * time.Millisecond)
	assert.True(t, limiter.Allow(), "bucket should have refilled")
}

func TestTokenBucketLimiter_WaitCancellation(t *testing.T) {
	// Very slow refill so Wait must block
	limiter := NewTokenBucketLimiter(ProviderNameOpenAI, 1, 1)
	require.True(t, limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	require.Error(t, err)
}

func TestTokenBucketLimiter_DefaultBurst(t *testing.T) {
	limiter := NewTokenBucketLimiter(ProviderNameOpenAI, 500, 0)
	assert.InDelta(t, 500.0, limiter.Limit(), 1e-9)
}

func TestNoOpLimiter(t *testing.T) {
	limiter := NewNoOpLimiter()

	assert.True(t, limiter.Allow())
	assert.NoError(t, limiter.Wait(context.Background()))
	assert.Equal(t, -1.0, limiter.Limit())
}

func TestRateLimiterFactory_Disabled(t *testing.T) {
	factory := NewRateLimiterFactory(nil)

	limiter := factory.Create(ProviderNameOpenAI, RateLimitConfig{Enabled: false})
	_, isNoop := limiter.(*NoOpLimiter)
	assert.True(t, isNoop)
}

func TestRateLimitError_Unwrap(t *testing.T) {
	inner := context.DeadlineExceeded
	err := &RateLimitError{Provider: ProviderNameGemini, Limit: 60, Err: inner}

	assert.Contains(t, err.Error(), "gemini")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
