// Package splitkb wires the scanner, resolver, radio link and heartbeat of
// one half of a split keyboard.
package splitkb

import (
	"github.com/ystepanoff/splitkb/heartbeat"
	"github.com/ystepanoff/splitkb/protocol"
	"github.com/ystepanoff/splitkb/transport"
)

// The constructors are split into build-tag specific files:
// - constructors_nrf.go - for embedded platforms (//go:build tinygo || baremetal)
// - constructors_host.go - for development/testing (//go:build !tinygo && !baremetal)

// Re-exported types
type (
	DeviceID        = protocol.DeviceID
	Origin          = protocol.Origin
	Message         = protocol.Message
	LinkStats       = transport.Stats
	ConnectionState = heartbeat.State
)

// Error constants exposed in the public API
var (
	ErrInvalidPayload = protocol.ErrInvalidPayload
	ErrTimeout        = protocol.ErrTimeout
	ErrInvalidChannel = protocol.ErrInvalidChannel
	ErrOutboxFull     = transport.ErrOutboxFull
)

// Constants exposed in the public API
const (
	Primary   = protocol.OriginPrimary
	Secondary = protocol.OriginSecondary

	DefaultPrimaryID   DeviceID = 0x534B0001
	DefaultSecondaryID DeviceID = 0x534B0002
)
