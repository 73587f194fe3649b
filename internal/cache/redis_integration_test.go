//go:build integration

package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCounter(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()

	rdb, err := NewRedisClient(ctx, addr)
	require.NoError(t, err)
	c := NewRedisCounter(rdb, "test:"+uuid.NewString()+":")
	defer c.Close()

	for want := int64(1); want <= 3; want++ {
		got, err := c.Incr(ctx, "k", time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	time.Sleep(1100 * time.Millisecond)
	got, err := c.Incr(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}
