// Copyright 2025 Certen Protocol
//
// KVStore: a CometBFT-DB backed MessageStore for a single node that wants
// its process-definition cache to survive restarts.
package procstore

import (
	"encoding/json"
	"fmt"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/megabyte0x/HyperBEAM/internal/bundle"
)

// KVStore persists messages keyed by their raw address bytes in an
// embedded CometBFT key-value database (e.g. goleveldb, badgerdb).
type KVStore struct {
	db dbm.DB
}

// NewKVStore wraps db as a MessageStore.
func NewKVStore(db dbm.DB) *KVStore {
	return &KVStore{db: db}
}

// Put serializes msg as JSON and writes it under its unsigned content ID,
// using SetSync so the write is durable before returning.
func (s *KVStore) Put(msg *bundle.Item) (bundle.ID, error) {
	id := bundle.UnsignedID(msg)
	raw, err := json.Marshal(msg)
	if err != nil {
		return id, fmt.Errorf("procstore: marshal message: %w", err)
	}
	if err := s.db.SetSync(id.Bytes(), raw); err != nil {
		return id, fmt.Errorf("procstore: write message: %w", err)
	}
	return id, nil
}

// ReadMessage implements execstate.MessageStore. A missing key or a nil
// value (CometBFT's not-found convention) both report ok=false.
func (s *KVStore) ReadMessage(id bundle.ID) (*bundle.Item, bool) {
	raw, err := s.db.Get(id.Bytes())
	if err != nil || raw == nil {
		return nil, false
	}
	var msg bundle.Item
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, false
	}
	return &msg, true
}
