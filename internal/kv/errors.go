package kv

import (
	"errors"
	"fmt"
)

// Sentinel errors - Configuration
var (
	ErrMissingPath    = errors.New("kv: store path is required")
	ErrUnknownBackend = errors.New("kv: unknown storage backend")
)

// Sentinel errors - Operations
var (
	ErrNotFound       = errors.New("kv: key not found")
	ErrPersist        = errors.New("kv: failed to persist")
	ErrStoreCorrupted = errors.New("kv: store corrupted")
	ErrClosed         = errors.New("kv: store closed")
)

// PersistenceError wraps a backend failure with key context.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap implements the errors.Unwrap interface for error chaining.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is reports every PersistenceError as ErrPersist so callers can match the
// whole class without knowing the backend.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersist
}

// WrapPersistenceError wraps an error with key operation context.
// Returns nil if err is nil. ErrNotFound passes through unwrapped.
func WrapPersistenceError(op, key string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	return &PersistenceError{Op: op, Key: key, Err: err}
}
