package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/bounty-warden/internal/config"
	"github.com/sevigo/bounty-warden/internal/logger"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)
	defer c.Close()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	value := []byte(`{"message":"Confidence score: 5/5"}`)
	require.NoError(t, c.Set(ctx, "greptile-pr-acme-widgets-12", value, 0))
	value[0] = 'X'

	got, ok, err := c.Get(ctx, "greptile-pr-acme-widgets-12")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"message":"Confidence score: 5/5"}`, string(got))
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNew_UnsupportedBackend(t *testing.T) {
	_, cleanup, err := New(&config.CacheConfig{Backend: "memcached"}, logger.Nop())
	defer cleanup()
	assert.Error(t, err)
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("Skipping Redis-dependent test: REDIS_ADDR is not set")
	}

	ctx := context.Background()
	c, cleanup, err := New(&config.CacheConfig{Backend: "redis", RedisAddr: addr, TTL: time.Minute}, logger.Nop())
	if err != nil {
		t.Skipf("Skipping Redis-dependent test: %v", err)
	}
	defer cleanup()

	require.NoError(t, c.Set(ctx, "test-key", []byte("value"), time.Minute))
	got, ok, err := c.Get(ctx, "test-key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "value", string(got))

	_, ok, err = c.Get(ctx, "test-key-missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
