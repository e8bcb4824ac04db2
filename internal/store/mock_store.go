// ABOUTME: Mock StateStore implementation for testing and the memory driver
// ABOUTME: Allows tests to run without SQLite and to inject load/save failures

package store

import (
	"context"
	"sync"
)

// MockStore is an in-memory StateStore implementation.
type MockStore struct {
	mu     sync.RWMutex
	states map[string][]byte // keyed by state key

	saveErr error // returned by every SaveState when set
	loadErr error // returned by every GetState when set

	saves int
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		states: make(map[string][]byte),
	}
}

// GetState returns a copy of the bytes saved under key.
func (m *MockStore) GetState(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.loadErr != nil {
		return nil, m.loadErr
	}

	state, ok := m.states[key]
	if !ok {
		return nil, ErrNotFound
	}

	// Make a copy to avoid external modification
	out := make([]byte, len(state))
	copy(out, state)
	return out, nil
}

// SaveState stores a copy of state under key.
func (m *MockStore) SaveState(_ context.Context, key string, state []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}

	cp := make([]byte, len(state))
	copy(cp, state)
	m.states[key] = cp
	return nil
}

// DeleteState removes key.
func (m *MockStore) DeleteState(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states, key)
	return nil
}

// SetLoadErr sets the error returned by GetState.
func (m *MockStore) SetLoadErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
}

// SetSaveErr sets the error returned by SaveState.
func (m *MockStore) SetSaveErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

// SaveCount reports how many times SaveState was called, including failed calls.
func (m *MockStore) SaveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// Close is a no-op for MockStore.
func (m *MockStore) Close() error {
	return nil
}
