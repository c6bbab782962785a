// Copyright 2025 Certen Protocol
package poda

import (
	"reflect"
	"testing"

	"github.com/megabyte0x/HyperBEAM/internal/bundle"
	"github.com/megabyte0x/HyperBEAM/internal/execstate"
)

func processOriginatedOuter(content *bundle.Item, atts map[string]*bundle.Item) *bundle.Item {
	inner := wrappedMessage(content, atts)
	return &bundle.Item{Map: map[string]*bundle.Item{"Message": inner}}
}

func TestExecute_S1_HappyPath(t *testing.T) {
	local := mustWallet(t)
	a := mustWallet(t)
	b := mustWallet(t)

	content := &bundle.Item{Tags: []bundle.Tag{{Name: "From-Process", Value: "proc-1"}}, Bytes: []byte("do work")}
	contentID := bundle.UnsignedID(content)
	atts := map[string]*bundle.Item{
		"1": signedAttestationFor(t, a, contentID),
		"2": signedAttestationFor(t, b, contentID),
	}
	outer := processOriginatedOuter(content, atts)
	opts := optionsWith(t, local, 2, a, b)

	d := New(local, nil)
	state := execstate.New(local)

	outcome, state, err := d.Execute(outer, state, opts)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if outcome != execstate.OutcomeOK {
		t.Fatalf("expected ok outcome, got %s", outcome)
	}
	if _, ok := state.VFS["/Attestations/"+bundle.EncodeID(a.Address())]; !ok {
		t.Fatal("expected VFS entry for authority a")
	}
	if _, ok := state.VFS["/Attestations/"+bundle.EncodeID(b.Address())]; !ok {
		t.Fatal("expected VFS entry for authority b")
	}
	if len(state.ArgPrefix) != 1 {
		t.Fatalf("expected arg_prefix length 1, got %d", len(state.ArgPrefix))
	}
}

func TestExecute_S2_QuorumUnmet_ErrorSkip(t *testing.T) {
	local := mustWallet(t)
	a := mustWallet(t)
	b := mustWallet(t)

	content := &bundle.Item{Tags: []bundle.Tag{{Name: "From-Process", Value: "proc-1"}}, Bytes: []byte("do work")}
	contentID := bundle.UnsignedID(content)
	atts := map[string]*bundle.Item{
		"1": signedAttestationFor(t, a, contentID),
		"2": signedAttestationFor(t, b, contentID),
	}
	outer := processOriginatedOuter(content, atts)
	opts := optionsWith(t, local, 3, a, b) // quorum 3, only 2 attest

	d := New(local, nil)
	state := execstate.New(local)

	outcome, state, err := d.Execute(outer, state, opts)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if outcome != execstate.OutcomeSkip {
		t.Fatalf("expected skip outcome, got %s", outcome)
	}
	outbox := state.Results.Map["/Outbox"]
	if outbox == nil {
		t.Fatal("expected an error outbox item")
	}
	if v, _ := outbox.Tag("Error"); v != "PoDA" {
		t.Fatalf(`expected Error tag "PoDA", got %q`, v)
	}
	if string(outbox.Bytes) != string(ReasonQuorumUnmet) {
		t.Fatalf("expected reason %q, got %q", ReasonQuorumUnmet, outbox.Bytes)
	}
	if !bundle.VerifyItem(outbox) {
		t.Fatal("error outbox item must be signed")
	}
}

func TestExecute_S5_UserSignedBypass_StateUnchanged(t *testing.T) {
	local := mustWallet(t)
	content := &bundle.Item{Bytes: []byte("hello from a user")} // no From-Process tag
	outer := &bundle.Item{Map: map[string]*bundle.Item{
		"Message": {Map: map[string]*bundle.Item{"Message": content}},
	}}
	opts := optionsWith(t, local, 1)

	d := New(local, nil)
	before := execstate.New(local)
	snapshot := *before

	outcome, after, err := d.Execute(outer, before, opts)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if outcome != execstate.OutcomeOK {
		t.Fatalf("expected ok outcome, got %s", outcome)
	}
	if !reflect.DeepEqual(snapshot.VFS, after.VFS) || !reflect.DeepEqual(snapshot.ArgPrefix, after.ArgPrefix) || !reflect.DeepEqual(snapshot.Results, after.Results) {
		t.Fatal("user-signed bypass must leave ExecState unchanged")
	}
}

func TestExecute_OtherPassIsNoop(t *testing.T) {
	local := mustWallet(t)
	opts := optionsWith(t, local, 1)
	d := New(local, nil)
	state := execstate.New(local)
	state.Pass = execstate.PassPostResults

	outcome, _, err := d.Execute(&bundle.Item{}, state, opts)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if outcome != execstate.OutcomeOK {
		t.Fatalf("expected ok outcome on pass 3, got %s", outcome)
	}
}

