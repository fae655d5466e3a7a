package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestLocalCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewLocalCache(8)
	require.NoError(t, err)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set(ctx, "k", []byte("v"), time.Minute)
	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	require.Equal(t, []byte("v"), got)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(ctx, "k")
	require.False(t, ok)
}

func TestLocalCache_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	c, err := NewLocalCache(2)
	require.NoError(t, err)

	c.Set(ctx, "a", []byte("1"), time.Hour)
	c.Set(ctx, "b", []byte("2"), time.Hour)
	c.Set(ctx, "c", []byte("3"), time.Hour)

	_, ok := c.Get(ctx, "a")
	require.False(t, ok)
	_, ok = c.Get(ctx, "c")
	require.True(t, ok)

	c.Delete(ctx, "c")
	_, ok = c.Get(ctx, "c")
	require.False(t, ok)
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	c, err := NewRedisCache(ctx, "redis://"+mr.Addr(), "thicket:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	_, ok := c.Get(ctx, "page")
	require.False(t, ok)

	c.Set(ctx, "page", []byte(`{"rows":[]}`), time.Minute)
	require.True(t, mr.Exists("thicket:page"))

	got, ok := c.Get(ctx, "page")
	require.True(t, ok)
	require.JSONEq(t, `{"rows":[]}`, string(got))

	mr.FastForward(2 * time.Minute)
	_, ok = c.Get(ctx, "page")
	require.False(t, ok)

	c.Set(ctx, "page", []byte("x"), time.Minute)
	c.Delete(ctx, "page")
	require.False(t, mr.Exists("thicket:page"))
}

func TestNewRedisCache_BadURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), "not a url", "")
	require.Error(t, err)
}
