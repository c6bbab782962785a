// Copyright 2025 Certen Protocol
//
// Options Parser: translates a process's declared tags into an
// AuthoritySet and Quorum threshold, always self-authorizing the local node.
package poda

import (
	"fmt"
	"strconv"

	"github.com/megabyte0x/HyperBEAM/internal/bundle"
	"github.com/megabyte0x/HyperBEAM/internal/walletkey"
)

// DeviceOptions is the parsed {authorities, quorum} pair a process's tags
// resolve to. Authorities is stored as a set: the wire tag sequence may
// repeat an address, but only set membership governs Stage 3.
type DeviceOptions struct {
	Authorities map[walletkey.Address]struct{}
	Quorum      uint32
}

// IsAuthority reports whether addr is one of the process's declared
// authorities (including the local node, always appended at parse time).
func (o *DeviceOptions) IsAuthority(addr walletkey.Address) bool {
	_, ok := o.Authorities[addr]
	return ok
}

// AuthorityList returns the authority set as a slice, useful for iteration
// order in the aggregator.
func (o *DeviceOptions) AuthorityList() []walletkey.Address {
	out := make([]walletkey.Address, 0, len(o.Authorities))
	for a := range o.Authorities {
		out = append(out, a)
	}
	return out
}

// ParseOptions extracts {authorities, quorum} from a process's tag
// sequence, appending local's own address to the authority set. Tags are
// typically process.Tags, i.e. the declaring item's own Tags field.
func ParseOptions(tags []bundle.Tag, local walletkey.Address) (*DeviceOptions, error) {
	var explicit []string
	var quorumValue string
	var sawQuorum bool

	for _, t := range tags {
		switch t.Name {
		case "Authority":
			explicit = append(explicit, t.Value)
		case "Quorum":
			quorumValue = t.Value
			sawQuorum = true
		}
	}

	if len(explicit) == 0 {
		return nil, fmt.Errorf("%w: no Authority tags declared", ErrInvalidOptions)
	}
	if !sawQuorum {
		return nil, fmt.Errorf("%w: missing Quorum tag", ErrInvalidOptions)
	}

	quorum, err := strconv.ParseUint(quorumValue, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: Quorum tag %q is not a base-10 integer", ErrInvalidOptions, quorumValue)
	}

	authorities := make(map[walletkey.Address]struct{}, len(explicit)+1)
	for _, v := range explicit {
		addr, err := walletkey.DecodeAddress(v)
		if err != nil {
			return nil, fmt.Errorf("%w: Authority tag %q: %v", ErrInvalidOptions, v, err)
		}
		authorities[addr] = struct{}{}
	}
	authorities[local] = struct{}{}

	return &DeviceOptions{Authorities: authorities, Quorum: uint32(quorum)}, nil
}
