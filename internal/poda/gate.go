// Copyright 2025 Certen Protocol
//
// Pre-Execution Gate: validates process-originated messages before the
// runtime executes them, publishes their attestations into the VFS, and
// turns validation failures into a signed error outbox item plus a skip.
package poda

import (
	"fmt"

	"github.com/megabyte0x/HyperBEAM/internal/bundle"
	"github.com/megabyte0x/HyperBEAM/internal/execstate"
)

// Execute dispatches on state.Pass, as the host contract requires.
func (d *Device) Execute(outer *bundle.Item, state *execstate.ExecState, opts *DeviceOptions) (execstate.Outcome, *execstate.ExecState, error) {
	switch state.Pass {
	case execstate.PassPreExec:
		return d.gate(outer, state, opts)
	default:
		// pass = 3 (post-results) and any other pass are no-ops: this
		// device attests outputs on the push path, not here.
		return execstate.OutcomeOK, state, nil
	}
}

func (d *Device) gate(outer *bundle.Item, state *execstate.ExecState, opts *DeviceOptions) (execstate.Outcome, *execstate.ExecState, error) {
	msg, ok := outer.Map["Message"]
	if !ok {
		// No inner Message to inspect at all; nothing for this device to
		// gate, so let the runtime proceed as if user-signed.
		return execstate.OutcomeOK, state, nil
	}

	if IsUserSigned(msg) {
		return execstate.OutcomeOK, state, nil
	}

	result, err := Verify(msg, opts)
	if err != nil {
		vf, ok := err.(*VerifyFailure)
		if !ok {
			return execstate.OutcomeSkip, state, fmt.Errorf("poda: verify: %w", err)
		}
		return d.errorSkip(state, vf.Reason)
	}

	for _, att := range result.Attestations {
		signer, serr := bundle.Signer(att)
		if serr != nil {
			continue
		}
		state.VFS[vfsPath(signer)] = att.Bytes
	}

	unwrapped := unwrapOuter(outer, result.Content)
	state.ArgPrefix = []*bundle.Item{unwrapped}

	if d.Metrics != nil {
		d.Metrics.RecordVerify("ok")
		d.Metrics.RecordQuorumMet()
	}
	return execstate.OutcomeOK, state, nil
}

// vfsPath is the VFS location an attestation's payload is published under.
// Later signers with the same encoded address overwrite earlier ones;
// ordering is intentionally irrelevant.
func vfsPath(signer bundle.ID) string {
	return "/Attestations/" + bundle.EncodeID(signer)
}

// unwrapOuter strips one layer of wrapping: same outer item, but its
// data["Message"] is replaced by the already-validated content, so the
// executor sees the actual message instead of the attestation envelope.
func unwrapOuter(outer *bundle.Item, content *bundle.Item) *bundle.Item {
	newMap := make(map[string]*bundle.Item, len(outer.Map))
	for k, v := range outer.Map {
		newMap[k] = v
	}
	newMap["Message"] = content
	unwrapped := *outer
	unwrapped.Map = newMap
	unwrapped.Signature = nil // the unwrapped view is not the signed wire form
	return &unwrapped
}

// errorSkip builds a signed error outbox item carrying reason and signals
// the runtime to bypass execution; the error stays deliverable downstream.
func (d *Device) errorSkip(state *execstate.ExecState, reason Reason) (execstate.Outcome, *execstate.ExecState, error) {
	errItem := &bundle.Item{
		Tags:  []bundle.Tag{{Name: "Error", Value: "PoDA"}},
		Bytes: []byte(reason),
	}
	if err := bundle.SignItem(errItem, state.Wallet); err != nil {
		return execstate.OutcomeSkip, state, fmt.Errorf("poda: sign error outbox: %w", err)
	}

	if state.Results == nil {
		state.Results = &bundle.Item{Map: map[string]*bundle.Item{}}
	}
	if state.Results.Map == nil {
		state.Results.Map = map[string]*bundle.Item{}
	}
	state.Results.Map["/Outbox"] = errItem

	if d.Metrics != nil {
		d.Metrics.RecordVerify(string(reason))
	}
	return execstate.OutcomeSkip, state, nil
}
