package store

import (
	"context"
	"sync"
)

// MockTrackingStore is a configurable mock implementation of TrackingStore
// for use in tests. Unset funcs succeed, and LockTableExists reports true.
type MockTrackingStore struct {
	mu sync.Mutex

	// EnsureSchemaFunc is called by EnsureSchema if set.
	EnsureSchemaFunc func(ctx context.Context) error

	// LockTableExistsFunc is called by LockTableExists if set.
	LockTableExistsFunc func(ctx context.Context) (bool, error)

	// ReleaseLockFunc is called by ReleaseLock if set.
	ReleaseLockFunc func(ctx context.Context) error

	// Call tracking
	EnsureSchemaCalls    int
	LockTableExistsCalls int
	ReleaseLockCalls     int
}

// NewMockTrackingStore creates a new mock tracking store.
func NewMockTrackingStore() *MockTrackingStore {
	return &MockTrackingStore{}
}

// EnsureSchema implements TrackingStore.
func (m *MockTrackingStore) EnsureSchema(ctx context.Context) error {
	m.mu.Lock()
	m.EnsureSchemaCalls++
	m.mu.Unlock()

	if m.EnsureSchemaFunc != nil {
		return m.EnsureSchemaFunc(ctx)
	}
	return nil
}

// LockTableExists implements TrackingStore.
func (m *MockTrackingStore) LockTableExists(ctx context.Context) (bool, error) {
	m.mu.Lock()
	m.LockTableExistsCalls++
	m.mu.Unlock()

	if m.LockTableExistsFunc != nil {
		return m.LockTableExistsFunc(ctx)
	}
	return true, nil
}

// ReleaseLock implements TrackingStore.
func (m *MockTrackingStore) ReleaseLock(ctx context.Context) error {
	m.mu.Lock()
	m.ReleaseLockCalls++
	m.mu.Unlock()

	if m.ReleaseLockFunc != nil {
		return m.ReleaseLockFunc(ctx)
	}
	return nil
}

// Resets returns how many times the lock was released.
func (m *MockTrackingStore) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ReleaseLockCalls
}
