package kv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	storePath := filepath.Join(tmpDir, "subdir", "nested", "state.json")

	store, err := NewFileStore(storePath)
	require.NoError(t, err)
	require.NotNil(t, store)

	info, err := os.Stat(filepath.Dir(storePath))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, storePath, store.Path())
	assert.Equal(t, 0, store.Keys())
}

func TestNewFileStore_MissingPath(t *testing.T) {
	_, err := NewFileStore("")
	assert.ErrorIs(t, err, ErrMissingPath)
}

func TestNewFileStore_EmptyFileIsValid(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(storePath, nil, 0600))

	store, err := NewFileStore(storePath)
	require.NoError(t, err)
	assert.Equal(t, 0, store.Keys())
}

func TestNewFileStore_Corrupted(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(storePath, []byte("{not json"), 0600))

	_, err := NewFileStore(storePath)
	assert.ErrorIs(t, err, ErrStoreCorrupted)
}

func TestFileStore_SetGetRemove(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)

	_, err = store.Get(ctx, KeyToken)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, KeyToken, "tok"))
	v, err := store.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "tok", v)

	require.NoError(t, store.Remove(ctx, KeyToken))
	_, err = store.Get(ctx, KeyToken)
	assert.ErrorIs(t, err, ErrNotFound)

	// Removing an absent key is fine.
	assert.NoError(t, store.Remove(ctx, KeyToken))
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	storePath := filepath.Join(t.TempDir(), "state.json")

	store, err := NewFileStore(storePath)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, KeyUser, `{"_id":"1"}`))
	require.NoError(t, store.Set(ctx, KeyFeed, `[]`))
	require.NoError(t, store.Close())

	reopened, err := NewFileStore(storePath)
	require.NoError(t, err)

	v, err := reopened.Get(ctx, KeyUser)
	require.NoError(t, err)
	assert.Equal(t, `{"_id":"1"}`, v)
	assert.Equal(t, 2, reopened.Keys())

	info, err := os.Stat(storePath)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	_, err = os.Stat(storePath + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must not remain")
}

func TestFileStore_WriteFailureKeepsPreviousValue(t *testing.T) {
	if runtime.GOOS == "windows" || os.Getuid() == 0 {
		t.Skip("directory permissions are not enforced")
	}
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "ro")
	store, err := NewFileStore(filepath.Join(dir, "state.json"))
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, KeyToken, "old"))

	require.NoError(t, os.Chmod(dir, 0500))
	t.Cleanup(func() { _ = os.Chmod(dir, 0700) })

	err = store.Set(ctx, KeyToken, "new")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersist)

	var perr *PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "set", perr.Op)
	assert.Equal(t, KeyToken, perr.Key)

	v, err := store.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "old", v)
}

func TestFileStore_Closed(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.Get(ctx, KeyToken)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, store.Set(ctx, KeyToken, "x"), ErrClosed)
	assert.ErrorIs(t, store.Remove(ctx, KeyToken), ErrClosed)
}

func TestFileStore_ConcurrentSets(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			assert.NoError(t, store.Set(ctx, key, key))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, store.Keys())
}
