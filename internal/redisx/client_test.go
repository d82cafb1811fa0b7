package redisx

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := New(mr.Addr())
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

type cached struct {
	OrderID string `json:"order_id"`
	Total   int64  `json:"total"`
}

func TestJSONRoundTrip(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()

	_, ok, err := GetJSON[cached](ctx, rdb, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SetJSON(ctx, rdb, "k", cached{OrderID: "o1", Total: 7000}, time.Minute))
	got, ok, err := GetJSON[cached](ctx, rdb, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, cached{OrderID: "o1", Total: 7000}, got)

	mr.FastForward(2 * time.Minute)
	_, ok, err = GetJSON[cached](ctx, rdb, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetJSON_CorruptValue(t *testing.T) {
	mr, rdb := newTestRedis(t)
	require.NoError(t, mr.Set("k", "{not json"))

	_, ok, err := GetJSON[cached](context.Background(), rdb, "k")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestMarkOnce(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	first, err := MarkOnce(ctx, rdb, "dedup:x:1", TTLDedup)
	require.NoError(t, err)
	second, err := MarkOnce(ctx, rdb, "dedup:x:1", TTLDedup)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
}

func TestInvalidateCatalog(t *testing.T) {
	mr, rdb := newTestRedis(t)
	require.NoError(t, mr.Set(KeyCatalogMedicines, "[]"))
	require.NoError(t, mr.Set(KeyCatalogServices, "[]"))

	require.NoError(t, InvalidateCatalog(context.Background(), rdb))
	assert.False(t, mr.Exists(KeyCatalogMedicines))
	assert.False(t, mr.Exists(KeyCatalogServices))
}
