// Copyright 2025 Certen Protocol
//
// HTTP transport for the Router and ComputeClient collaborators: a JSON
// POST per peer, uuid-correlated, over a single shared http.Client.
package peernet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/megabyte0x/HyperBEAM/internal/bundle"
	"github.com/megabyte0x/HyperBEAM/internal/execstate"
	"github.com/megabyte0x/HyperBEAM/internal/walletkey"
)

// findRequest is the wire shape of a Router.Find call.
type findRequest struct {
	RequestID uuid.UUID         `json:"request_id"`
	ProcessID string            `json:"process_id"`
	Authority walletkey.Address `json:"authority"`
}

type findResponse struct {
	RequestID uuid.UUID `json:"request_id"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	NodeAddr  string    `json:"node_addr,omitempty"`
}

// computeRequest is the wire shape of a ComputeClient.Compute call.
type computeRequest struct {
	RequestID    uuid.UUID `json:"request_id"`
	ProcessID    string    `json:"process_id"`
	AssignmentID string    `json:"assignment_id"`
}

type computeResponse struct {
	RequestID   uuid.UUID    `json:"request_id"`
	Success     bool         `json:"success"`
	Error       string       `json:"error,omitempty"`
	Attestation *bundle.Item `json:"attestation,omitempty"`
}

// Directory maps an authority address to the base URL of the compute node
// it runs, e.g. "http://validator-2:8080". Routing in this device is static:
// one authority, one endpoint; there is no discovery protocol.
type Directory map[walletkey.Address]string

// Client is the HTTP-backed Router + ComputeClient.
type Client struct {
	dirs Directory
	http *http.Client
}

// NewClient builds a Client with the given directory and request timeout.
// The timeout bounds a single HTTP round trip; overall cancellation is
// still the caller's context.
func NewClient(dirs Directory, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{dirs: dirs, http: &http.Client{Timeout: timeout}}
}

var _ execstate.Router = (*Client)(nil)
var _ execstate.ComputeClient = (*Client)(nil)

// Find resolves which compute node serves processID for the given authority,
// by asking that authority's own node which node it currently runs it on.
func (c *Client) Find(ctx context.Context, processID bundle.ID, authority walletkey.Address) (execstate.ComputeNode, error) {
	base, ok := c.dirs[authority]
	if !ok {
		return execstate.ComputeNode{}, fmt.Errorf("peernet: no endpoint known for authority %s", bundle.EncodeID(authority))
	}

	req := findRequest{
		RequestID: uuid.New(),
		ProcessID: bundle.EncodeID(processID),
		Authority: authority,
	}
	var resp findResponse
	if err := c.post(ctx, base+"/poda/find", req, &resp); err != nil {
		return execstate.ComputeNode{}, err
	}
	if !resp.Success {
		return execstate.ComputeNode{}, fmt.Errorf("peernet: find failed: %s", resp.Error)
	}
	return execstate.ComputeNode{Addr: resp.NodeAddr}, nil
}

// Compute asks node to produce its attestation for assignmentID under
// processID, returning the signed attestation item it responds with.
func (c *Client) Compute(ctx context.Context, node execstate.ComputeNode, processID, assignmentID bundle.ID) (*bundle.Item, error) {
	if node.Addr == "" {
		return nil, fmt.Errorf("peernet: empty compute node address")
	}
	req := computeRequest{
		RequestID:    uuid.New(),
		ProcessID:    bundle.EncodeID(processID),
		AssignmentID: bundle.EncodeID(assignmentID),
	}
	var resp computeResponse
	if err := c.post(ctx, node.Addr+"/poda/compute", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Attestation == nil {
		return nil, fmt.Errorf("peernet: compute failed: %s", resp.Error)
	}
	return resp.Attestation, nil
}

func (c *Client) post(ctx context.Context, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("peernet: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("peernet: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("peernet: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("peernet: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("peernet: peer returned status %d: %s", resp.StatusCode, string(respBody))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("peernet: parse response: %w", err)
	}
	return nil
}
