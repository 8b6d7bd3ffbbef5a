package kv

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRedisStoreForTesting connects to CLASSROOM_TEST_REDIS_ADDR or skips.
func newRedisStoreForTesting(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("CLASSROOM_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CLASSROOM_TEST_REDIS_ADDR not set")
	}

	store, err := NewRedisStore(context.Background(), RedisOptions{
		Addr:   addr,
		Prefix: "classroom-test:" + uuid.NewString() + ":",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRedisStore_SetGetRemove(t *testing.T) {
	ctx := context.Background()
	store := newRedisStoreForTesting(t)

	_, err := store.Get(ctx, KeyToken)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, KeyToken, "tok"))
	v, err := store.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "tok", v)

	require.NoError(t, store.Remove(ctx, KeyToken))
	_, err = store.Get(ctx, KeyToken)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, store.Remove(ctx, KeyToken))
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	_, err := NewRedisStore(context.Background(), RedisOptions{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
