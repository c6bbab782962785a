// Copyright 2025 Certen Protocol
//
// User-Signed Discriminator: classifies an incoming message as
// user-originated or process-originated. Fails open: any shape other than
// a well-formed wrapped process message is treated as user-signed; the
// Verifier is the actual enforcer for well-formed process messages.
package poda

import "github.com/megabyte0x/HyperBEAM/internal/bundle"

// IsUserSigned reports whether msg was submitted by an end user (true, no
// attestations required) or produced by another process (false).
func IsUserSigned(msg *bundle.Item) bool {
	if msg == nil {
		return true
	}
	inner, ok := msg.Map["Message"]
	if !ok {
		return true
	}
	_, hasFromProcess := inner.Tag("From-Process")
	return !hasFromProcess
}
