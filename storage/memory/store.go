// Package memory provides an in-process storage backend.
package memory

import (
	"sync"

	"github.com/govm-net/wasmrpc/storage"
)

// Store keeps every cell in a map
type Store struct {
	mu    sync.RWMutex
	cells map[string][]byte
}

func init() {
	storage.Register(storage.MemoryBackend, func(storage.Params) (storage.Store, error) {
		return NewStore(), nil
	})
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{cells: make(map[string][]byte)}
}

// Get returns a copy of the value under key
func (s *Store) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.cells[string(key)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Put stores a copy of value under key
func (s *Store) Put(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	s.cells[string(key)] = v
	return nil
}

// Len returns the number of cells
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cells)
}

func (s *Store) Close() error {
	return nil
}
