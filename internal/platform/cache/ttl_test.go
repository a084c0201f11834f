package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheRoundTrip(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewTTLCache(client, time.Minute)
	ctx := context.Background()

	type payload struct {
		ItemID int64   `json:"item_id"`
		Qty    float64 `json:"qty"`
	}

	require.NoError(t, c.Set(ctx, "stock:low:1", payload{ItemID: 1, Qty: 4}))

	var got payload
	require.NoError(t, c.Get(ctx, "stock:low:1", &got))
	require.Equal(t, int64(1), got.ItemID)
	require.InDelta(t, 4.0, got.Qty, 0.0001)

	require.NoError(t, c.Invalidate(ctx, "stock:low:1"))
	require.ErrorIs(t, c.Get(ctx, "stock:low:1", &got), ErrMiss)
}

func TestTTLCacheExpiry(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewTTLCache(client, time.Second)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", 42))
	srv.FastForward(2 * time.Second)

	var got int
	require.ErrorIs(t, c.Get(ctx, "k", &got), ErrMiss)
}
