package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCounter_FixedWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCounter()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := c.Incr(ctx, "k", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	other, err := c.Incr(ctx, "other", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), other)

	now = now.Add(59 * time.Second)
	got, _ := c.Incr(ctx, "k", time.Minute)
	assert.Equal(t, int64(4), got)

	now = now.Add(time.Second)
	got, _ = c.Incr(ctx, "k", time.Minute)
	assert.Equal(t, int64(1), got, "window should reset")
}

func TestMemoryCounter_SweepsExpiredKeys(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCounter()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = c.Incr(ctx, "a", time.Second)
	_, _ = c.Incr(ctx, "b", time.Second)
	now = now.Add(2 * time.Second)
	_, _ = c.Incr(ctx, "c", time.Second)

	assert.Len(t, c.entries, 1)
}

func TestMemoryCounter_SweepsAtMostOncePerWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCounter()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = c.Incr(ctx, "a", time.Second)
	now = now.Add(2 * time.Second)
	_, _ = c.Incr(ctx, "b", time.Second)
	assert.Len(t, c.entries, 1, "a expired and is swept")

	now = now.Add(500 * time.Millisecond)
	_, _ = c.Incr(ctx, "c", 100*time.Millisecond)
	now = now.Add(200 * time.Millisecond)
	_, _ = c.Incr(ctx, "d", 100*time.Millisecond)
	assert.Len(t, c.entries, 3, "no sweep before the previous window elapses")

	got, err := c.Incr(ctx, "c", 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got, "expired entries still reset without a sweep")

	now = now.Add(300 * time.Millisecond)
	_, _ = c.Incr(ctx, "e", time.Second)
	assert.Len(t, c.entries, 1)
}

func TestMemoryCounter_Concurrent(t *testing.T) {
	c := NewMemoryCounter()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Incr(context.Background(), "k", time.Hour)
		}()
	}
	wg.Wait()

	got, err := c.Incr(context.Background(), "k", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(51), got)
}
