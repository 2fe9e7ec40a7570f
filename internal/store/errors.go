package store

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned when operating on a closed store.
	ErrClosed = errors.New("store: closed")

	// ErrNotFound is returned when no event exists with the requested id.
	ErrNotFound = errors.New("store: event not found")
)

// StorageError wraps a failure of the underlying durable layer.
// The store never retries these; retry policy belongs to the caller.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// SerializationError wraps a payload that could not be encoded or decoded.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("store: serialize event: %v", e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }
