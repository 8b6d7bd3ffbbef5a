// Package kv provides the process-wide persistent key-value storage used by the
// session and feed stores, plus an asynchronous write queue in front of it.
//
// Keys are fixed strings and values are opaque strings (usually JSON). There is
// no schema versioning: readers must tolerate absent or corrupt values.
package kv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
)

// Fixed storage keys.
const (
	KeyToken = "token"
	KeyUser  = "user"
	KeyFeed  = "local_feed_posts_v1"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Store is a persistent string key-value store.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	// Close releases resources held by the store.
	Close() error
}

// Options selects and configures a backend for Open.
type Options struct {
	Backend string
	Path    string
	Redis   RedisOptions
	Logger  *slog.Logger
}

// Open creates the Store named by opts.Backend.
//
// A corrupt file store is moved aside to "<path>.corrupt" and replaced by an
// empty one, so a damaged state file never prevents startup.
func Open(ctx context.Context, opts Options) (Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	switch opts.Backend {
	case "", BackendFile:
		if opts.Path == "" {
			return nil, ErrMissingPath
		}
		path := filepath.Clean(opts.Path)
		store, err := NewFileStore(path)
		if errors.Is(err, ErrStoreCorrupted) {
			moved, qerr := quarantine(path)
			if qerr != nil {
				return nil, errors.Join(err, qerr)
			}
			logger.Warn("state file corrupted, starting empty",
				slog.String("path", path),
				slog.String("moved_to", moved),
				slog.String("error", err.Error()),
			)
			return NewFileStore(path)
		}
		return store, err
	case BackendRedis:
		return NewRedisStore(ctx, opts.Redis)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
