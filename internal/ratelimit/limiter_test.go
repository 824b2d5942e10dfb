package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "civicfix:report-limit:a@example.com", Key("civicfix:report-limit", "a@example.com"))
}

func TestMemoryLimiterFixedWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(2, time.Hour)
	l.now = func() time.Time { return now }

	for i := 1; i <= 2; i++ {
		d, err := l.Allow(ctx, "a")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.EqualValues(t, i, d.Count)
	}

	now = now.Add(15 * time.Minute)
	d, err := l.Allow(ctx, "a")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 45*time.Minute, d.RetryAfter)

	other, err := l.Allow(ctx, "b")
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	now = now.Add(time.Hour)
	d, err = l.Allow(ctx, "a")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.EqualValues(t, 1, d.Count)
}

func TestMemoryLimiterRefundFreesSlot(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(1, time.Hour)
	l.now = func() time.Time { return now }

	d, err := l.Allow(ctx, "a")
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.NoError(t, l.Refund(ctx, "a"))

	d, err = l.Allow(ctx, "a")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.EqualValues(t, 1, d.Count)

	d, err = l.Allow(ctx, "a")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestMemoryLimiterRefundWithoutHitsIsHarmless(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(1, time.Hour)
	require.NoError(t, l.Refund(ctx, "nobody"))

	d, err := l.Allow(ctx, "nobody")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	require.NoError(t, l.Refund(ctx, "nobody"))
	require.NoError(t, l.Refund(ctx, "nobody"))

	d, err = l.Allow(ctx, "nobody")
	require.NoError(t, err)
	assert.EqualValues(t, 1, d.Count)
}

func TestNewLimitersDefaultWindow(t *testing.T) {
	assert.Equal(t, DefaultWindow, NewMemoryLimiter(1, 0).window)
	assert.Equal(t, DefaultWindow, NewRedisLimiter(nil, "p", 1, -time.Second).window)
}
