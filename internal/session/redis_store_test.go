package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("SALEOR_E2E_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("Redis not available, skipping test")
	}

	ctx := context.Background()
	store, err := NewRedisStore(ctx, RedisConfig{
		Addr:   addr,
		Prefix: "dashboard-e2e-test:" + uuid.NewString() + ":",
		TTL:    time.Minute,
	})
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)

	t.Run("cache round trip", func(t *testing.T) {
		cache := NewCache(store)
		defer cache.ClearAll(ctx)

		var calls int32
		target := &fakeTarget{}
		_, err := cache.Session(ctx, "shared-user", target, loginInto(target, &calls))
		require.NoError(t, err)

		other := &fakeTarget{}
		outcome, err := NewCache(store).Session(ctx, "shared-user", other, nil)
		require.NoError(t, err)
		assert.Equal(t, Restored, outcome)
		assert.True(t, other.loggedIn())
	})
}

func TestRedisStoreUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := NewRedisStore(ctx, RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
