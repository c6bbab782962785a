// Copyright 2025 Certen Protocol
//
// Attestation Aggregator: on the push path, fan out to peer compute nodes
// for fresh attestations, sign a local one, and wrap each outbound message
// whose target process is PoDA-governed as an attestation-bearing bundle.
package poda

import (
	"bytes"
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/megabyte0x/HyperBEAM/internal/bundle"
	"github.com/megabyte0x/HyperBEAM/internal/execstate"
	"github.com/megabyte0x/HyperBEAM/internal/walletkey"
)

// outboxKeys are the two result paths the aggregator walks.
var outboxKeys = []string{"/Outbox", "/Spawn"}

// Push walks state.Results, replacing every outbound message under
// "/Outbox" and "/Spawn" whose target process declares Device=PODA with an
// attestation-bearing bundle. Other keys pass through unmodified.
func (d *Device) Push(ctx context.Context, state *execstate.ExecState) (*execstate.ExecState, error) {
	if state.Results == nil || state.Results.Map == nil {
		return state, nil
	}

	for _, key := range outboxKeys {
		inner, ok := state.Results.Map[key]
		if !ok || inner == nil || inner.Map == nil {
			continue
		}
		for subKey, msg := range inner.Map {
			wrapped, err := d.addAttestations(ctx, msg, state)
			if err != nil {
				state.Log().Printf("poda: push %s%s: %v", key, subKey, err)
				continue
			}
			inner.Map[subKey] = wrapped
		}
	}
	return state, nil
}

// addAttestations resolves msg's target process, polls its authorities for
// attestations, and wraps msg in a signed attestation bundle. Messages
// whose process cannot be resolved or is not PoDA-governed pass through
// unchanged.
func (d *Device) addAttestations(ctx context.Context, msg *bundle.Item, state *execstate.ExecState) (*bundle.Item, error) {
	process := FindProcess(msg, state.Store)
	if process == nil {
		return msg, nil
	}
	if !process.HasTag("Device", "PODA") {
		return msg, nil
	}

	opts, err := ParseOptions(process.Tags, d.Local.Address())
	if err != nil {
		// Process declares itself PoDA-governed but its own options are
		// malformed: nothing this device can do, pass the message through.
		return msg, nil
	}

	processID := bundle.UnsignedID(process)
	msgID := bundle.UnsignedID(msg)
	var assignmentID bundle.ID
	if state.Assignment != nil {
		assignmentID = bundle.UnsignedID(state.Assignment)
	}

	// The local node may also be listed as an authority; it must not poll
	// itself as a peer, since its attestation is added directly below.
	localAddr := d.Local.Address()
	peers := make([]walletkey.Address, 0, len(opts.Authorities))
	for a := range opts.Authorities {
		if a == localAddr {
			continue
		}
		peers = append(peers, a)
	}

	var poller func(context.Context, walletkey.Address) (bool, *bundle.Item, error)
	if state.Router != nil && state.Compute != nil {
		poller = func(ctx context.Context, authority walletkey.Address) (bool, *bundle.Item, error) {
			start := time.Now()
			node, err := state.Router.Find(ctx, processID, authority)
			if err != nil {
				return false, nil, err
			}
			att, err := state.Compute.Compute(ctx, node, processID, assignmentID)
			if d.Metrics != nil {
				d.Metrics.ObservePeerPoll(time.Since(start))
			}
			if err != nil {
				return false, nil, err
			}
			return true, att, nil
		}
	} else {
		poller = func(context.Context, walletkey.Address) (bool, *bundle.Item, error) {
			return false, nil, nil
		}
	}
	peerAttestations := PollParallel(ctx, peers, poller)

	local := &bundle.Item{
		Tags: []bundle.Tag{{Name: "Attestation-For", Value: bundle.EncodeID(msgID)}},
	}
	if err := bundle.SignItem(local, d.Local); err != nil {
		return nil, err
	}

	all := append([]*bundle.Item{local}, peerAttestations...)
	// Index assignment is stable across runs regardless of peer completion
	// order: sort on signer address after the join.
	sort.Slice(all, func(i, j int) bool {
		si, _ := bundle.Signer(all[i])
		sj, _ := bundle.Signer(all[j])
		return bytes.Compare(si.Bytes(), sj.Bytes()) < 0
	})

	attMap := make(map[string]*bundle.Item, len(all))
	for i, att := range all {
		attMap[strconv.Itoa(i+1)] = att
	}
	completeAttestations := &bundle.Item{Map: attMap}
	if err := bundle.SignItem(completeAttestations, d.Local); err != nil {
		return nil, err
	}

	attestationBundle := &bundle.Item{
		Target:    msg.Target,
		HasTarget: msg.HasTarget,
		Map: map[string]*bundle.Item{
			"Attestations": completeAttestations,
			"Message":      msg,
		},
	}
	if err := bundle.SignItem(attestationBundle, d.Local); err != nil {
		return nil, err
	}
	return attestationBundle, nil
}

// FindProcess resolves the process definition for msg: a cached message
// looked up by target ID, or msg itself when it is tagged as a
// self-describing process. Returns nil when neither applies.
func FindProcess(msg *bundle.Item, store execstate.MessageStore) *bundle.Item {
	if msg == nil {
		return nil
	}
	if msg.HasTarget {
		if store == nil {
			return nil
		}
		if proc, ok := store.ReadMessage(msg.Target); ok {
			return proc
		}
		return nil
	}
	if msg.HasTag("Type", "Process") {
		return msg
	}
	return nil
}
