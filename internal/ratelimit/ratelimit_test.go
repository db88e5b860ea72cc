package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceBudget(t *testing.T) {
	rl := NewAIRateLimiter(0, nil)
	rl.SetLimit(Gemini, 2, 0)
	ctx := context.Background()

	require.NoError(t, rl.Acquire(ctx, Gemini))
	require.NoError(t, rl.Acquire(ctx, Gemini))
	assert.False(t, rl.CanUse(Gemini))

	err := rl.Acquire(ctx, Gemini)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBudgetExhausted))
	assert.Equal(t, 2, rl.Used(Gemini))

	// other services are unaffected without a total cap
	assert.True(t, rl.CanUse(Translate))
}

func TestTotalBudget(t *testing.T) {
	rl := NewAIRateLimiter(2, nil)
	ctx := context.Background()

	require.NoError(t, rl.Acquire(ctx, Gemini))
	require.NoError(t, rl.Acquire(ctx, Translate))
	assert.ErrorIs(t, rl.Acquire(ctx, Translate), ErrBudgetExhausted)
	assert.Equal(t, 2, rl.Total())
}

func TestPacingHonoursContext(t *testing.T) {
	rl := NewAIRateLimiter(0, nil)
	rl.SetLimit(Gemini, 0, time.Hour)

	require.NoError(t, rl.Acquire(context.Background(), Gemini)) // burst of one

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, rl.Acquire(ctx, Gemini))
}

func TestCacheStats(t *testing.T) {
	rl := NewAIRateLimiter(0, nil)
	require.NoError(t, rl.Acquire(context.Background(), Gemini))
	rl.RecordCacheHit(500)
	rl.RecordCacheHit(500)
	rl.RecordCacheHit(500)

	assert.InDelta(t, 75.0, rl.CacheHitRate(), 1e-9)
	stats := rl.GetStats()
	assert.Equal(t, 1500, stats["tokens_saved"])
	assert.Equal(t, 1, stats["gemini_used"])
}
