// Copyright 2025 Certen Protocol
//
// MemStore: an in-memory MessageStore, the default used in tests and for
// process definitions published locally during a single node's lifetime.
package procstore

import (
	"sync"

	"github.com/megabyte0x/HyperBEAM/internal/bundle"
)

// MemStore is a process-local, non-durable MessageStore; it intentionally
// never persists anything.
type MemStore struct {
	mu   sync.RWMutex
	msgs map[bundle.ID]*bundle.Item
}

// NewMemStore builds an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{msgs: make(map[bundle.ID]*bundle.Item)}
}

// Put records msg under its unsigned content ID.
func (s *MemStore) Put(msg *bundle.Item) bundle.ID {
	id := bundle.UnsignedID(msg)
	s.mu.Lock()
	s.msgs[id] = msg
	s.mu.Unlock()
	return id
}

// ReadMessage implements execstate.MessageStore.
func (s *MemStore) ReadMessage(id bundle.ID) (*bundle.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.msgs[id]
	return msg, ok
}
