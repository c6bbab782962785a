// Copyright 2025 Certen Protocol
//
// Attestation Verifier: the three-stage validation pipeline applied to a
// process-originated message bundle, short-circuited on first failure.
// Structural shape, then cryptographic validity of each attestation, then
// authority membership, relevance, and quorum count.
package poda

import (
	"github.com/megabyte0x/HyperBEAM/internal/bundle"
	"github.com/megabyte0x/HyperBEAM/internal/walletkey"
)

// AttestationSet is a mapping from arbitrary string keys (typically decimal
// indices) to attestation items. Keys are opaque; only values carry meaning.
type AttestationSet map[string]*bundle.Item

// VerifyResult carries the extracted pieces a successful verification
// produces, so the pre-execution gate can publish them to the VFS and
// unwrap the outer item without re-parsing it.
type VerifyResult struct {
	Attestations AttestationSet
	Content      *bundle.Item
	// ValidSigners is the deduplicated set of signer addresses whose
	// attestation satisfied Stage 3 (cryptographically valid, in
	// authority, relevant to Content).
	ValidSigners map[walletkey.Address]*bundle.Item
}

// Verify runs the three-stage pipeline over msg, a process-originated
// message whose data mapping must contain "Attestations" and "Message".
func Verify(msg *bundle.Item, opts *DeviceOptions) (*VerifyResult, error) {
	atts, content, err := extractStructural(msg)
	if err != nil {
		return nil, &VerifyFailure{Reason: ReasonMalformedBundle}
	}

	// Stage 2: cryptographic validity of every attestation.
	for _, att := range atts {
		if !bundle.VerifyItem(att) {
			return nil, &VerifyFailure{Reason: ReasonBadSignature}
		}
	}

	// Stage 3: authority membership, relevance, and quorum count.
	contentID := bundle.UnsignedID(content)
	valid := make(map[walletkey.Address]*bundle.Item)
	for _, att := range atts {
		signer, err := bundle.Signer(att)
		if err != nil {
			continue // dropped silently, not an error
		}
		if !opts.IsAuthority(signer) {
			continue
		}
		if !isRelevant(att, contentID) {
			continue
		}
		// Re-checked here as literal defense-in-depth: Stage 2 already
		// verified this attestation, but Stage 3 must not trust that
		// atts and the signer recovery above still refer to the same
		// bytes after any future refactor that reorders the stages.
		if !bundle.VerifyItem(att) {
			continue
		}
		valid[signer] = att
	}

	if uint32(len(valid)) < opts.Quorum {
		return nil, &VerifyFailure{Reason: ReasonQuorumUnmet}
	}

	return &VerifyResult{Attestations: atts, Content: content, ValidSigners: valid}, nil
}

// extractStructural is Stage 1: find "Attestations" and "Message" in msg's
// data mapping. An attestation set is always carried as a mapping-shaped
// item in this model, so a bare mapping and a set wrapped one item deeper
// both collapse to the same *bundle.Item with a non-nil Map; no separate
// unwrap step is needed.
func extractStructural(msg *bundle.Item) (AttestationSet, *bundle.Item, error) {
	if msg == nil || msg.Map == nil {
		return nil, nil, errMalformed
	}
	attItem, ok := msg.Map["Attestations"]
	if !ok || attItem == nil || attItem.Map == nil {
		return nil, nil, errMalformed
	}
	content, ok := msg.Map["Message"]
	if !ok || content == nil {
		return nil, nil, errMalformed
	}
	return AttestationSet(attItem.Map), content, nil
}

var errMalformed = &VerifyFailure{Reason: ReasonMalformedBundle}

// isRelevant implements the three binding forms an attestation may use to
// claim "I have seen and validated the message with unsigned ID contentID".
func isRelevant(att *bundle.Item, contentID bundle.ID) bool {
	if bundle.UnsignedID(att) == contentID {
		return true
	}
	if v, ok := att.Tag("Attestation-For"); ok && v == bundle.EncodeID(contentID) {
		return true
	}
	return bundle.Member(contentID, att)
}
