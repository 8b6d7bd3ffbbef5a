package kv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Backends(t *testing.T) {
	ctx := context.Background()

	t.Run("file", func(t *testing.T) {
		store, err := Open(ctx, Options{Backend: BackendFile, Path: filepath.Join(t.TempDir(), "s.json")})
		require.NoError(t, err)
		assert.IsType(t, &FileStore{}, store)
	})

	t.Run("default is file", func(t *testing.T) {
		store, err := Open(ctx, Options{Path: filepath.Join(t.TempDir(), "s.json")})
		require.NoError(t, err)
		assert.IsType(t, &FileStore{}, store)
	})

	t.Run("file without path", func(t *testing.T) {
		_, err := Open(ctx, Options{Backend: BackendFile})
		assert.ErrorIs(t, err, ErrMissingPath)
	})

	t.Run("memory", func(t *testing.T) {
		store, err := Open(ctx, Options{Backend: BackendMemory})
		require.NoError(t, err)
		assert.IsType(t, &MemoryStore{}, store)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := Open(ctx, Options{Backend: "sqlite"})
		assert.ErrorIs(t, err, ErrUnknownBackend)
	})
}

func TestOpen_QuarantinesCorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0600))

	store, err := Open(ctx, Options{Backend: BackendFile, Path: path})
	require.NoError(t, err)

	_, err = store.Get(ctx, KeyToken)
	assert.ErrorIs(t, err, ErrNotFound)

	moved, err := os.ReadFile(path + ".corrupt")
	require.NoError(t, err)
	assert.Equal(t, "garbage", string(moved))
}

func TestPersistenceError(t *testing.T) {
	base := errors.New("disk full")
	err := WrapPersistenceError("set", KeyFeed, base)

	assert.EqualError(t, err, `set "local_feed_posts_v1": disk full`)
	assert.ErrorIs(t, err, ErrPersist)
	assert.ErrorIs(t, err, base)

	assert.NoError(t, WrapPersistenceError("set", KeyFeed, nil))

	notFound := WrapPersistenceError("get", KeyFeed, ErrNotFound)
	assert.Same(t, ErrNotFound, notFound)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	require.NoError(t, m.Set(ctx, KeyToken, "tok"))
	assert.True(t, m.Has(KeyToken))

	m.SetFailWrites(true)
	err := m.Set(ctx, KeyToken, "other")
	assert.ErrorIs(t, err, ErrPersist)
	assert.ErrorIs(t, m.Remove(ctx, KeyToken), ErrPersist)

	v, err := m.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "tok", v)

	m.SetFailWrites(false)
	require.NoError(t, m.Remove(ctx, KeyToken))
	assert.False(t, m.Has(KeyToken))

	require.NoError(t, m.Close())
	_, err = m.Get(ctx, KeyToken)
	assert.ErrorIs(t, err, ErrClosed)
}
