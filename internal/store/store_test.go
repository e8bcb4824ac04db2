// ABOUTME: Tests shared by every StateStore backend
// ABOUTME: Covers Open driver selection and the get/save/delete contract

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Drivers(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name   string
		driver string
		path   string
		want   any
	}{
		{"sqlite", DriverSQLite, filepath.Join(tmpDir, "db", "console.db"), &SQLiteStore{}},
		{"file", DriverFile, filepath.Join(tmpDir, "state"), &FileStore{}},
		{"memory", DriverMemory, "", &MockStore{}},
		{"empty defaults to memory", "", "", &MockStore{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.driver, tt.path)
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			assert.IsType(t, tt.want, s)
		})
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("postgres", "")
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

// Every backend must satisfy the same StateStore contract.
func TestStateStore_Contract(t *testing.T) {
	backends := map[string]func(t *testing.T) StateStore{
		"sqlite": func(t *testing.T) StateStore { return setupTestStore(t) },
		"file": func(t *testing.T) StateStore {
			s, err := NewFileStore(t.TempDir())
			require.NoError(t, err)
			return s
		},
		"memory": func(t *testing.T) StateStore { return NewMockStore() },
	}

	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			_, err := s.GetState(ctx, "chat-storage")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.SaveState(ctx, "chat-storage", []byte(`{"v":1}`)))
			got, err := s.GetState(ctx, "chat-storage")
			require.NoError(t, err)
			assert.Equal(t, `{"v":1}`, string(got))

			// Overwrite replaces the previous value
			require.NoError(t, s.SaveState(ctx, "chat-storage", []byte(`{"v":2}`)))
			got, err = s.GetState(ctx, "chat-storage")
			require.NoError(t, err)
			assert.Equal(t, `{"v":2}`, string(got))

			// Keys are independent
			_, err = s.GetState(ctx, "other")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.DeleteState(ctx, "chat-storage"))
			_, err = s.GetState(ctx, "chat-storage")
			assert.ErrorIs(t, err, ErrNotFound)

			// Deleting a missing key is fine
			assert.NoError(t, s.DeleteState(ctx, "chat-storage"))
		})
	}
}
