package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps every key in one JSON document with atomic file persistence.
type FileStore struct {
	mu     sync.RWMutex
	path   string
	data   map[string]string
	closed bool
}

// NewFileStore creates or opens a store at the given path.
// If the file doesn't exist, a new empty store is created.
// If the directory doesn't exist, it is created with 0700 permissions.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, ErrMissingPath
	}

	store := &FileStore{
		path: path,
		data: make(map[string]string),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	if err := store.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return store, nil
}

// load reads store data from disk.
// Returns os.ErrNotExist if file doesn't exist (which is not an error for new stores).
func (s *FileStore) load() error {
	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	// Empty file is valid - treat as empty store
	if len(raw) == 0 {
		return nil
	}

	var data map[string]string
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreCorrupted, err)
	}
	if data == nil {
		data = make(map[string]string)
	}

	s.data = data
	return nil
}

// syncLocked writes store data atomically using temp file + rename pattern.
// Must be called with write lock held.
func (s *FileStore) syncLocked() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	tmpPath := s.path + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("%w: create temp: %v", ErrPersist, err)
	}

	if _, err := f.Write(raw); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: write: %v", ErrPersist, err)
	}

	// Fsync to ensure data is on disk before rename
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: fsync: %v", ErrPersist, err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: close: %v", ErrPersist, err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: rename: %v", ErrPersist, err)
	}

	return nil
}

// Path returns the store file path.
func (s *FileStore) Path() string {
	return s.path
}

// Get returns the value stored under key.
func (s *FileStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", ErrClosed
	}
	v, ok := s.data[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return v, nil
}

// Set stores value under key and syncs the file.
func (s *FileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	prev, existed := s.data[key]
	s.data[key] = value
	if err := s.syncLocked(); err != nil {
		// Keep memory and disk in agreement.
		if existed {
			s.data[key] = prev
		} else {
			delete(s.data, key)
		}
		return WrapPersistenceError("set", key, err)
	}
	return nil
}

// Remove deletes key and syncs the file.
func (s *FileStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	prev, existed := s.data[key]
	if !existed {
		return nil
	}
	delete(s.data, key)
	if err := s.syncLocked(); err != nil {
		s.data[key] = prev
		return WrapPersistenceError("remove", key, err)
	}
	return nil
}

// Keys returns the number of stored keys.
func (s *FileStore) Keys() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Close marks the store closed. Every write is already synced.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// quarantine moves a corrupt store file aside so a fresh store can be opened.
func quarantine(path string) (string, error) {
	dst := path + ".corrupt"
	if err := os.Rename(path, dst); err != nil {
		return "", fmt.Errorf("quarantine store: %w", err)
	}
	return dst, nil
}
