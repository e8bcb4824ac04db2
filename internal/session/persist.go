// ABOUTME: Snapshot type and the pluggable Storage interface used by the store
// ABOUTME: KVStorage encodes snapshots as versioned JSON over any byte state store

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/2389/coven-console/internal/store"
)

// ErrNoSnapshot is returned by Storage.Load when nothing has been persisted yet
var ErrNoSnapshot = errors.New("no snapshot")

// DefaultStorageKey is the key the snapshot is saved under.
const DefaultStorageKey = "chat-storage"

// snapshotVersion is written into every envelope. Loading a newer version fails.
const snapshotVersion = 1

// Snapshot is the durable subset of conversation state.
// Restoring one is not an exact round trip when a message was streaming at
// save time: the restored message is settled as failed.
type Snapshot struct {
	Messages        []Message   `json:"messages"`
	SessionID       string      `json:"sessionId"`
	UserPreferences Preferences `json:"userPreferences"`
}

// Storage loads and saves snapshots.
type Storage interface {
	// Load returns the last saved snapshot, or ErrNoSnapshot.
	Load(ctx context.Context) (*Snapshot, error)

	// Save replaces the saved snapshot.
	Save(ctx context.Context, snap *Snapshot) error
}

// KV is the byte-level state store KVStorage writes through.
// store.SQLiteStore, store.FileStore and store.MockStore satisfy it.
type KV interface {
	GetState(ctx context.Context, key string) ([]byte, error)
	SaveState(ctx context.Context, key string, state []byte) error
}

// envelope wraps the snapshot with a format version.
type envelope struct {
	State   json.RawMessage `json:"state"`
	Version int             `json:"version"`
}

// KVStorage is a Storage that keeps the snapshot as JSON under one key.
type KVStorage struct {
	kv  KV
	key string
}

// NewKVStorage creates a KVStorage. An empty key uses DefaultStorageKey.
func NewKVStorage(kv KV, key string) *KVStorage {
	if key == "" {
		key = DefaultStorageKey
	}
	return &KVStorage{kv: kv, key: key}
}

// Load reads and decodes the snapshot.
func (s *KVStorage) Load(ctx context.Context) (*Snapshot, error) {
	data, err := s.kv.GetState(ctx, s.key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding snapshot envelope: %w", err)
	}
	if env.Version > snapshotVersion {
		return nil, fmt.Errorf("snapshot version %d is newer than supported version %d", env.Version, snapshotVersion)
	}
	if len(env.State) == 0 {
		return nil, fmt.Errorf("snapshot envelope has no state")
	}

	var snap Snapshot
	if err := json.Unmarshal(env.State, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snap, nil
}

// Save encodes and writes the snapshot.
func (s *KVStorage) Save(ctx context.Context, snap *Snapshot) error {
	state, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	data, err := json.Marshal(envelope{State: state, Version: snapshotVersion})
	if err != nil {
		return fmt.Errorf("encoding snapshot envelope: %w", err)
	}
	if err := s.kv.SaveState(ctx, s.key, data); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}
