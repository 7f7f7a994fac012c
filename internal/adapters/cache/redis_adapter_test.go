package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/sheetfeedback/internal/adapters/cache"
	"github.com/zatekoja/sheetfeedback/internal/domain/providers"
	redisclient "github.com/zatekoja/sheetfeedback/internal/infrastructure/clients/redis"
)

func newAdapter(t *testing.T) *cache.RedisAdapter {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set, skipping Redis integration test")
	}
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	return cache.NewRedisAdapter(redisclient.NewFromClient(client))
}

func TestRedisAdapter_GetSetDelete(t *testing.T) {
	adapter := newAdapter(t)
	ctx := context.Background()
	key := "test:cache:" + uuid.NewString()

	_, err := adapter.Get(ctx, key)
	assert.ErrorIs(t, err, providers.ErrCacheMiss)

	require.NoError(t, adapter.Set(ctx, key, []byte("value"), 30))
	got, err := adapter.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), got)

	exists, err := adapter.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, adapter.Delete(ctx, key))
	exists, err = adapter.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRedisAdapter_Increment(t *testing.T) {
	adapter := newAdapter(t)
	ctx := context.Background()
	key := "test:rate:" + uuid.NewString()
	t.Cleanup(func() { _ = adapter.Delete(ctx, key) })

	for want := int64(1); want <= 3; want++ {
		count, remaining, err := adapter.Increment(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, count)
		assert.LessOrEqual(t, remaining, time.Minute)
		assert.Greater(t, remaining, time.Duration(0))
	}
}
