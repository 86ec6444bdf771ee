package state

import (
	"context"
	"sync"
)

// Store loads and persists the deployment state.
//
// Load returns an empty state when nothing has been persisted yet and fails only when persisted
// data cannot be read or parsed. Save atomically replaces the whole persisted state.
type Store interface {
	Load(ctx context.Context) (DeploymentState, error)
	Save(ctx context.Context, s DeploymentState) error
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*SQLStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

// MemoryStore keeps the state in memory. It is used by tests and dry runs.
type MemoryStore struct {
	mu    sync.Mutex
	state DeploymentState
	saves int
}

// NewMemoryStore returns a MemoryStore holding a copy of initial.
func NewMemoryStore(initial DeploymentState) *MemoryStore {
	return &MemoryStore{state: initial.Clone()}
}

// Load returns a copy of the stored state.
func (m *MemoryStore) Load(context.Context) (DeploymentState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state.Clone(), nil
}

// Save replaces the stored state with a copy of s.
func (m *MemoryStore) Save(_ context.Context, s DeploymentState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = s.Clone()
	m.saves++

	return nil
}

// Saves returns how many times Save was called.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.saves
}
