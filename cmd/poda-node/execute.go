// Copyright 2025 Certen Protocol
//
// HTTP surface exercising the device's gate and push operations end to
// end, for driving a node without an embedding runtime.
package main

import (
	"encoding/json"
	"net/http"

	"github.com/megabyte0x/HyperBEAM/internal/bundle"
	"github.com/megabyte0x/HyperBEAM/internal/execstate"
	"github.com/megabyte0x/HyperBEAM/internal/poda"
	"github.com/megabyte0x/HyperBEAM/internal/walletkey"
)

// nodeServer ties the device to this process's collaborators for the demo
// /poda/execute and /poda/push endpoints.
type nodeServer struct {
	device *poda.Device
	wallet *walletkey.Wallet
	store  execstate.MessageStore
	router execstate.Router
	client execstate.ComputeClient
}

type executeRequest struct {
	Outer       *bundle.Item `json:"outer"`
	ProcessTags []bundle.Tag `json:"process_tags"`
}

type executeResponse struct {
	Outcome string       `json:"outcome"`
	Results *bundle.Item `json:"results,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// handleExecute runs the pre-execution gate over a posted outer item,
// using process_tags to derive this process's DeviceOptions.
func (n *nodeServer) handleExecute(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Outer == nil {
		http.Error(w, "outer is required", http.StatusBadRequest)
		return
	}

	opts, err := n.device.Init(req.ProcessTags)
	if err != nil {
		json.NewEncoder(w).Encode(executeResponse{Outcome: "error", Error: err.Error()})
		return
	}

	state := execstate.New(n.wallet)
	state.Store = n.store
	state.Router = n.router
	state.Compute = n.client

	outcome, state, err := n.device.Execute(req.Outer, state, opts)
	if err != nil {
		json.NewEncoder(w).Encode(executeResponse{Outcome: outcome.String(), Error: err.Error()})
		return
	}
	json.NewEncoder(w).Encode(executeResponse{Outcome: outcome.String(), Results: state.Results})
}

type pushRequest struct {
	Results *bundle.Item `json:"results"`
}

// handlePush runs the attestation aggregator over a posted results bag,
// polling configured peers for fresh compute attestations.
func (n *nodeServer) handlePush(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req pushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	state := execstate.New(n.wallet)
	state.Store = n.store
	state.Router = n.router
	state.Compute = n.client
	state.Results = req.Results

	state, err := n.device.Push(r.Context(), state)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(state.Results)
}
