// Copyright 2025 Certen Protocol
//
// Device is the host contract this package exports: Init, Execute, Push,
// and IsUserSigned. It's a thin struct tying the local wallet and optional
// metrics to the stateless pipeline functions in this package.
package poda

import (
	"github.com/megabyte0x/HyperBEAM/internal/bundle"
	"github.com/megabyte0x/HyperBEAM/internal/metrics"
	"github.com/megabyte0x/HyperBEAM/internal/walletkey"
)

// Device implements the four host operations the enclosing runtime invokes.
type Device struct {
	// Local is the local node's signing identity. It self-authorizes at
	// options-parse time and signs every local attestation and attestation
	// bundle this device produces on the push path. Error outbox items are
	// signed with the ExecState's Wallet instead.
	Local *walletkey.Wallet
	// Metrics is optional; a nil Metrics disables instrumentation.
	Metrics *metrics.Recorder
}

// New builds a Device for the given local wallet.
func New(local *walletkey.Wallet, rec *metrics.Recorder) *Device {
	return &Device{Local: local, Metrics: rec}
}

// Init translates a process's declared tags into DeviceOptions.
func (d *Device) Init(tags []bundle.Tag) (*DeviceOptions, error) {
	return ParseOptions(tags, d.Local.Address())
}

// IsUserSigned exposes the discriminator as a Device method so a host can
// register all four operations off of a single value.
func (d *Device) IsUserSigned(msg *bundle.Item) bool {
	return IsUserSigned(msg)
}
