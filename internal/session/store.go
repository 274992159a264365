package session

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned by stores when no state exists for a key.
	ErrNotFound = errors.New("session state not found")
	// ErrEmptyKey is returned for an empty session key.
	ErrEmptyKey = errors.New("session key must not be empty")
)

// Store persists session state by key.
type Store interface {
	Load(ctx context.Context, key string) (*State, error)
	Save(ctx context.Context, key string, state *State) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// MemoryStore keeps state for the lifetime of the process, i.e. one run.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]*State
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]*State)}
}

func (m *MemoryStore) Load(_ context.Context, key string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.states[key]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, key string, state *State) error {
	if key == "" {
		return ErrEmptyKey
	}
	if state == nil {
		return errors.New("cannot store nil session state")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[key] = state.Clone()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, key)
	return nil
}

func (m *MemoryStore) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.states))
	for k := range m.states {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
