// Copyright 2025 Certen Protocol
//
// Server-side handlers for the peer endpoints Client calls: other nodes'
// find and compute requests land here.
package peernet

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/megabyte0x/HyperBEAM/internal/bundle"
	"github.com/megabyte0x/HyperBEAM/internal/execstate"
	"github.com/megabyte0x/HyperBEAM/internal/walletkey"
)

// ProcessHost answers this node's own view of Router/ComputeClient
// requests: which node runs a process locally, and what its current
// attestation for an assignment is.
type ProcessHost interface {
	LocalNode(processID bundle.ID) (execstate.ComputeNode, bool)
	Compute(processID, assignmentID bundle.ID) (*bundle.Item, error)
}

// Handlers serves the HTTP counterpart of Client: other nodes' Find/Compute
// calls land here.
type Handlers struct {
	host   ProcessHost
	local  walletkey.Address
	logger *log.Logger
}

// NewHandlers builds Handlers over host. HandleFind rejects any request whose
// authority is not local.
func NewHandlers(host ProcessHost, local walletkey.Address, logger *log.Logger) *Handlers {
	if logger == nil {
		logger = log.New(log.Writer(), "[peernet] ", log.LstdFlags)
	}
	return &Handlers{host: host, local: local, logger: logger}
}

// HandleFind serves POST /poda/find.
func (h *Handlers) HandleFind(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodPost {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req findRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Authority != h.local {
		writeError(w, "authority mismatch", http.StatusBadRequest)
		return
	}

	processID, err := walletkey.DecodeAddress(req.ProcessID)
	if err != nil {
		writeError(w, "invalid process_id", http.StatusBadRequest)
		return
	}

	node, ok := h.host.LocalNode(processID)
	resp := findResponse{RequestID: req.RequestID}
	if !ok {
		resp.Success = false
		resp.Error = "process not hosted locally"
	} else {
		resp.Success = true
		resp.NodeAddr = node.Addr
	}
	json.NewEncoder(w).Encode(resp)
}

// HandleCompute serves POST /poda/compute.
func (h *Handlers) HandleCompute(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodPost {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req computeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	processID, err := walletkey.DecodeAddress(req.ProcessID)
	if err != nil {
		writeError(w, "invalid process_id", http.StatusBadRequest)
		return
	}
	assignmentID, err := walletkey.DecodeAddress(req.AssignmentID)
	if err != nil {
		writeError(w, "invalid assignment_id", http.StatusBadRequest)
		return
	}

	att, err := h.host.Compute(processID, assignmentID)
	resp := computeResponse{RequestID: req.RequestID}
	if err != nil {
		h.logger.Printf("compute failed for process %s: %v", req.ProcessID, err)
		resp.Success = false
		resp.Error = err.Error()
	} else {
		resp.Success = true
		resp.Attestation = att
	}
	json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, msg string, status int) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
