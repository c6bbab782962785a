// Copyright 2025 Certen Protocol
package procstore

import "github.com/megabyte0x/HyperBEAM/internal/execstate"

var (
	_ execstate.MessageStore = (*MemStore)(nil)
	_ execstate.MessageStore = (*KVStore)(nil)
	_ execstate.MessageStore = (*FirestoreStore)(nil)
)
