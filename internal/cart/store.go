package cart

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Store persists cart line items keyed by cart id.
type Store interface {
	Load(ctx context.Context, id uuid.UUID) ([]LineItem, error)
	Save(ctx context.Context, id uuid.UUID, lines []LineItem) error
	Clear(ctx context.Context, id uuid.UUID) error
}

// MemoryStore is an in-process Store used in tests and single-node setups.
type MemoryStore struct {
	mu    sync.RWMutex
	carts map[uuid.UUID][]LineItem
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[uuid.UUID][]LineItem)}
}

func (s *MemoryStore) Load(ctx context.Context, id uuid.UUID) ([]LineItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines, ok := s.carts[id]
	if !ok {
		return nil, nil
	}
	out := make([]LineItem, len(lines))
	copy(out, lines)
	return out, nil
}

func (s *MemoryStore) Save(ctx context.Context, id uuid.UUID, lines []LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]LineItem, len(lines))
	copy(stored, lines)
	s.carts[id] = stored
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, id)
	return nil
}
