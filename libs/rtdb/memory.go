package rtdb

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is an in-process Store for tests and local development
// without Redis. Values round-trip through JSON so anything accepted here
// is also representable in the real store.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: map[string][]byte{}}
}

func (s *MemoryStore) Set(_ context.Context, path string, value map[string]any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[path] = data
	return nil
}

func (s *MemoryStore) Get(_ context.Context, path string) (map[string]any, error) {
	s.mu.RLock()
	data, ok := s.docs[path]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	var value map[string]any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, err
	}
	return value, nil
}

func (s *MemoryStore) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, path)
	return nil
}

// Len reports the number of stored documents.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
