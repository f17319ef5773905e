package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/docchat/docchat/internal/memory"
)

// Store creates, loads, and persists sessions.
type Store interface {
	// Create makes a new idle session with the given default settings.
	Create(ctx context.Context, settings Settings) (*Session, error)

	// Get returns the session with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Put persists the session's current state. In-memory implementations
	// may treat this as a no-op.
	Put(ctx context.Context, s *Session) error

	// Delete removes a session. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps live sessions in a map. The default store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	model  string
	budget int
}

// NewMemoryStore creates a MemoryStore. model and budget configure the
// conversation memory of sessions it creates.
func NewMemoryStore(model string, budget int) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		model:    model,
		budget:   budget,
	}
}

func (m *MemoryStore) Create(ctx context.Context, settings Settings) (*Session, error) {
	s := New(uuid.New().String(), settings, memory.NewBuffer(m.model, m.budget))
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	return s, nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Put is a no-op: Get returns live pointers.
func (m *MemoryStore) Put(ctx context.Context, s *Session) error {
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}
