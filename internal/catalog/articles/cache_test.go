package articles

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestFetchJSONLoadsOnce(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "catalog", "articles", "test")
	require.NoError(t, err)

	loads := 0
	loader := func(ctx context.Context) (interface{}, error) {
		loads++
		return map[string]int{"total": 42}, nil
	}

	var first map[string]int
	require.NoError(t, cache.FetchJSON(ctx, key, &first, loader))
	require.Equal(t, 42, first["total"])

	var second map[string]int
	require.NoError(t, cache.FetchJSON(ctx, key, &second, loader))
	require.Equal(t, 42, second["total"])

	require.Equal(t, 1, loads)
}

func TestBumpInvalidatesKeys(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	before, err := cache.BuildKey(ctx, "catalog", "articles")
	require.NoError(t, err)

	require.NoError(t, cache.Bump(ctx))

	after, err := cache.BuildKey(ctx, "catalog", "articles")
	require.NoError(t, err)
	require.NotEqual(t, before, after)
}

func TestNilClientPassesThrough(t *testing.T) {
	cache := NewCache(nil, time.Minute)
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "catalog", "articles")
	require.NoError(t, err)

	loads := 0
	var dest map[string]int
	loader := func(ctx context.Context) (interface{}, error) {
		loads++
		return map[string]int{"total": 7}, nil
	}

	require.NoError(t, cache.FetchJSON(ctx, key, &dest, loader))
	require.NoError(t, cache.FetchJSON(ctx, key, &dest, loader))
	require.Equal(t, 2, loads)
	require.Equal(t, 7, dest["total"])
}
