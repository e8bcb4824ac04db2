// ABOUTME: Tests for SQLite state store implementation
// ABOUTME: Covers persistence across reopen, binary payloads and cancelled contexts

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "console.db")
	ctx := context.Background()

	s1, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s1.SaveState(ctx, "chat-storage", []byte("snapshot")))
	require.NoError(t, s1.Close())

	s2, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.GetState(ctx, "chat-storage")
	require.NoError(t, err)
	assert.Equal(t, "snapshot", string(got))
}

func TestSQLiteStore_BinarySafe(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	blob := []byte{0x00, 0xff, 0x10, 0x00}
	require.NoError(t, s.SaveState(ctx, "bin", blob))

	got, err := s.GetState(ctx, "bin")
	require.NoError(t, err)
	assert.Equal(t, blob, got)
}

func TestSQLiteStore_CancelledContext(t *testing.T) {
	s := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.SaveState(ctx, "k", []byte("v"))
	assert.Error(t, err)
}
