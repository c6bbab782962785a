// Copyright 2025 Certen Protocol
//
// ExecState is the heterogeneous state bag the enclosing runtime threads
// through every device invocation: the well-known slots this device reads
// and writes, plus the collaborator interfaces (MessageStore, Router,
// ComputeClient) the device consumes but never implements itself.
package execstate

import (
	"context"
	"log"

	"github.com/megabyte0x/HyperBEAM/internal/bundle"
	"github.com/megabyte0x/HyperBEAM/internal/walletkey"
)

// Pass numbers the runtime recognizes. This device acts only on PreExec;
// PostResults and every other pass are no-ops for it.
const (
	PassPreExec     = 1
	PassPostResults = 3
)

// Outcome is the device's verdict for a single execute() call.
type Outcome int

const (
	// OutcomeOK lets the runtime proceed with execution.
	OutcomeOK Outcome = iota
	// OutcomeSkip signals the runtime to bypass execution; a result (e.g.
	// a signed error outbox item) has already been placed in Results.
	OutcomeSkip
)

func (o Outcome) String() string {
	if o == OutcomeSkip {
		return "skip"
	}
	return "ok"
}

// ComputeNode is the opaque handle a Router hands back for a given
// (process, authority) pair; its shape is transport-specific.
type ComputeNode struct {
	Addr string
}

// MessageStore is the cache collaborator for process-definition lookups.
// Returns (nil, false) on a cache miss; callers must treat a miss as "no
// process definition available", never as an error.
type MessageStore interface {
	ReadMessage(id bundle.ID) (*bundle.Item, bool)
}

// Router resolves which peer compute node is responsible for attesting a
// given process on behalf of a given authority.
type Router interface {
	Find(ctx context.Context, processID bundle.ID, authority walletkey.Address) (ComputeNode, error)
}

// ComputeClient asks a peer compute node to validate and attest a process
// execution.
type ComputeClient interface {
	Compute(ctx context.Context, node ComputeNode, processID, assignmentID bundle.ID) (*bundle.Item, error)
}

// ExecState is the bag of slots this device reads and writes. Other devices
// in the host's table own slots not listed here; this struct only models
// the ones the PoDA core touches.
type ExecState struct {
	Pass       int
	VFS        map[string][]byte
	ArgPrefix  []*bundle.Item
	Wallet     *walletkey.Wallet
	Assignment *bundle.Item
	Store      MessageStore
	Router     Router
	Compute    ComputeClient
	Logger     *log.Logger
	// Results holds the program's output mapping, e.g. data["/Outbox"],
	// data["/Spawn"] -> item whose data maps sub-keys to outbound items.
	Results *bundle.Item
}

// New builds an ExecState ready for pass 1, with an empty VFS.
func New(wallet *walletkey.Wallet) *ExecState {
	return &ExecState{
		Pass:   PassPreExec,
		VFS:    make(map[string][]byte),
		Wallet: wallet,
	}
}

// Log returns s.Logger, falling back to the standard logger so device code
// never has to nil-check before logging.
func (s *ExecState) Log() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}
