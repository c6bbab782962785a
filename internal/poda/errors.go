// Copyright 2025 Certen Protocol
package poda

import "errors"

// Reason is the opaque failure text carried in a signed error-skip outbox
// item.
type Reason string

const (
	// ReasonMalformedBundle is returned when Stage 1 can't find both
	// "Attestations" and "Message" in the inbound item's data mapping.
	ReasonMalformedBundle Reason = "Required PoDA messages missing"
	// ReasonBadSignature is returned when any attestation fails
	// cryptographic verification at Stage 2.
	ReasonBadSignature Reason = "Invalid attestations"
	// ReasonQuorumUnmet is returned when the count of valid, in-authority,
	// relevant attestations falls short of the configured quorum.
	ReasonQuorumUnmet Reason = "Not enough validations"
)

// ErrInvalidOptions is the fatal, parse-time error the Options Parser
// returns; unlike the Reasons above it never becomes an outbox item; it
// propagates straight to the host.
var ErrInvalidOptions = errors.New("poda: invalid options")

// VerifyFailure is the error type Verify returns on a failed stage; its
// Reason is what the pre-execution gate signs into the error outbox.
type VerifyFailure struct {
	Reason Reason
}

func (e *VerifyFailure) Error() string { return string(e.Reason) }
