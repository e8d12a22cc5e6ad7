package extraction

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*RedisCache, *mr.Miniredis) {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return NewRedisCache(redis.NewClient(&redis.Options{Addr: m.Addr()}), ttl), m
}

func TestRedisCache_SetGetExpire(t *testing.T) {
	ctx := context.Background()
	c, m := newTestCache(t, time.Minute)

	_, ok, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, "abc", &CachedResult{DocumentType: "packing_list", ExtractedData: []byte(`{"n":1}`)}))
	require.True(t, m.Exists("extraction:abc"))
	got, ok, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "packing_list", got.DocumentType)
	require.JSONEq(t, `{"n":1}`, string(got.ExtractedData))

	m.FastForward(time.Minute + time.Second)
	_, ok, err = c.Get(ctx, "abc")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisCache_InvalidateAndCorrupt(t *testing.T) {
	ctx := context.Background()
	c, m := newTestCache(t, 0)

	require.NoError(t, c.Set(ctx, "abc", &CachedResult{ExtractedData: []byte(`{}`)}))
	require.Equal(t, DefaultCacheTTL, m.TTL("extraction:abc"))
	require.NoError(t, c.Invalidate(ctx, "abc"))
	require.False(t, m.Exists("extraction:abc"))

	require.NoError(t, m.Set("extraction:bad", "not json"))
	_, ok, err := c.Get(ctx, "bad")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisCache_Down(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	c := NewRedisCache(redis.NewClient(&redis.Options{Addr: m.Addr(), MaxRetries: -1}), time.Minute)
	m.Close()

	_, ok, err := c.Get(context.Background(), "abc")
	require.Error(t, err)
	require.False(t, ok)
}
