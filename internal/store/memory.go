package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps all versions in process memory. Default backend for
// tests and single-shot runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]Record
	pending map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string][]Record),
		pending: make(map[string]bool),
	}
}

func (s *MemoryStore) Put(ctx context.Context, key, content string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := Record{
		Key:       key,
		Version:   len(s.records[key]) + 1,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	s.records[key] = append(s.records[key], rec)
	delete(s.pending, key)
	return &rec, nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.records[key]
	if len(versions) == 0 {
		return nil, ErrNotFound
	}
	rec := versions[len(versions)-1]
	return &rec, nil
}

func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records[key]) > 0, nil
}

func (s *MemoryStore) MarkPending(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[key] = true
	return nil
}

func (s *MemoryStore) Pending(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending[key], nil
}

// Versions returns how many versions were committed under key. Used by tests
// asserting regeneration behaviour.
func (s *MemoryStore) Versions(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records[key])
}
