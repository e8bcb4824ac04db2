// ABOUTME: Key/value state store interface shared by the console persistence backends
// ABOUTME: Defines ErrNotFound and the Open helper that picks a backend by driver name

package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested key has no saved state
var ErrNotFound = errors.New("not found")

// ErrUnknownDriver is returned by Open for an unsupported driver name
var ErrUnknownDriver = errors.New("unknown storage driver")

// Driver names accepted by Open
const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
	DriverMemory = "memory"
)

// StateStore persists opaque state blobs by key. It is the durable medium behind
// the conversation snapshot.
type StateStore interface {
	// GetState returns the bytes saved under key, or ErrNotFound.
	GetState(ctx context.Context, key string) ([]byte, error)

	// SaveState replaces the bytes saved under key.
	SaveState(ctx context.Context, key string, state []byte) error

	// DeleteState removes the key. Deleting a missing key is not an error.
	DeleteState(ctx context.Context, key string) error

	// Close releases any resources held by the store
	Close() error
}

// Open creates the StateStore for the given driver. For sqlite, path is the
// database file; for file, path is the directory holding one file per key.
// The memory driver ignores path.
func Open(driver, path string) (StateStore, error) {
	switch driver {
	case DriverSQLite:
		s, err := NewSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverFile:
		f, err := NewFileStore(path)
		if err != nil {
			return nil, err
		}
		return f, nil
	case DriverMemory, "":
		return NewMockStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
