//go:build !tinygo && !baremetal

// This file is built only for non-embedded targets (host-based testing).
package splitkb

import (
	"github.com/ystepanoff/splitkb/driver/stub"
	"github.com/ystepanoff/splitkb/heartbeat"
	"github.com/ystepanoff/splitkb/hid"
	"github.com/ystepanoff/splitkb/keymap"
	"github.com/ystepanoff/splitkb/matrix"
)

// NewPrimary returns a Primary half with the stock configuration on an
// in-memory radio.
func NewPrimary(km *keymap.Keymap, gpio matrix.GPIO, host hid.Transport) (*Half, error) {
	return New(km, Deps{GPIO: gpio, Radio: stub.New(), Host: host}, DefaultConfig(Primary))
}

// NewSecondary returns a Secondary half with the stock configuration on an
// in-memory radio.
func NewSecondary(km *keymap.Keymap, gpio matrix.GPIO, ind heartbeat.Indicator) (*Half, error) {
	return New(km, Deps{GPIO: gpio, Radio: stub.New(), Indicator: ind}, DefaultConfig(Secondary))
}
