// Package hid holds the canonical keyboard and consumer reports sent to the
// host and the small contract of the transport that carries them.
package hid

import "errors"

// MaxKeys is the number of simultaneous keycode slots in a boot-protocol
// keyboard report.
const MaxKeys = 6

// KeyReportSize is the on-wire size of a KeyReport:
// modifiers(1) | reserved(1) | keys(6).
const KeyReportSize = 2 + MaxKeys

// ConsumerReportSize is the on-wire size of a ConsumerReport.
const ConsumerReportSize = 2

// ErrReportFull is returned by Add when every keycode slot is occupied.
var ErrReportFull = errors.New("hid report full")

// KeyReport is the keyboard input report. Occupied slots are packed at the
// front in press order; a zero slot terminates the list.
type KeyReport struct {
	Modifiers uint8
	Reserved  uint8
	Keys      [MaxKeys]uint8
}

// Add places keycode in the first free slot. Adding a keycode that is
// already present is a no-op. KeyNone is ignored.
func (r *KeyReport) Add(keycode uint8) error {
	if keycode == KeyNone {
		return nil
	}
	for i := 0; i < MaxKeys; i++ {
		switch r.Keys[i] {
		case keycode:
			return nil
		case KeyNone:
			r.Keys[i] = keycode
			return nil
		}
	}
	return ErrReportFull
}

// Remove deletes keycode and shifts the following slots left so the
// remaining keys keep their relative order. Removing an absent key is a no-op.
func (r *KeyReport) Remove(keycode uint8) {
	if keycode == KeyNone {
		return
	}
	for i := 0; i < MaxKeys; i++ {
		if r.Keys[i] != keycode {
			continue
		}
		copy(r.Keys[i:], r.Keys[i+1:])
		r.Keys[MaxKeys-1] = KeyNone
		return
	}
}

// Contains reports whether keycode occupies a slot.
func (r *KeyReport) Contains(keycode uint8) bool {
	if keycode == KeyNone {
		return false
	}
	for _, k := range r.Keys {
		if k == keycode {
			return true
		}
	}
	return false
}

// Len returns the number of occupied slots.
func (r *KeyReport) Len() int {
	n := 0
	for _, k := range r.Keys {
		if k == KeyNone {
			break
		}
		n++
	}
	return n
}

// SetModifier ORs mask into the modifier byte.
func (r *KeyReport) SetModifier(mask uint8) { r.Modifiers |= mask }

// ClearModifier clears the bits of mask from the modifier byte.
func (r *KeyReport) ClearModifier(mask uint8) { r.Modifiers &^= mask }

// Clear zeroes the whole report.
func (r *KeyReport) Clear() { *r = KeyReport{} }

// MarshalTo writes the wire layout of r into b, which must hold at least
// KeyReportSize bytes.
func (r KeyReport) MarshalTo(b []byte) {
	_ = b[KeyReportSize-1]
	b[0] = r.Modifiers
	b[1] = r.Reserved
	copy(b[2:KeyReportSize], r.Keys[:])
}

// Bytes returns the wire layout of r.
func (r KeyReport) Bytes() []byte {
	b := make([]byte, KeyReportSize)
	r.MarshalTo(b)
	return b
}

// ParseKeyReport is the inverse of MarshalTo. b must hold at least
// KeyReportSize bytes.
func ParseKeyReport(b []byte) KeyReport {
	_ = b[KeyReportSize-1]
	r := KeyReport{Modifiers: b[0], Reserved: b[1]}
	copy(r.Keys[:], b[2:KeyReportSize])
	return r
}

// ConsumerReport carries a single consumer-page usage; 0 means released.
type ConsumerReport struct {
	Usage uint16
}

// Set replaces the active usage.
func (c *ConsumerReport) Set(usage uint16) { c.Usage = usage }

// Clear releases the active usage.
func (c *ConsumerReport) Clear() { c.Usage = 0 }

// Bytes returns the little-endian wire layout of c.
func (c ConsumerReport) Bytes() []byte {
	return []byte{byte(c.Usage), byte(c.Usage >> 8)}
}
