// Package layer tracks the base layer and the momentarily active layers of
// one keyboard half.
package layer

// MaxLayers bounds the number of layers a keymap may define.
const MaxLayers = 8

// Manager holds one persistent base layer plus a bounded set of momentary
// flags. The zero value is not usable; call New.
type Manager struct {
	count     int
	def       int
	base      int
	momentary [MaxLayers]bool
}

// New returns a Manager for count layers whose base starts at def. count is
// clamped to [1, MaxLayers] and def to the valid range.
func New(count, def int) *Manager {
	if count < 1 {
		count = 1
	}
	if count > MaxLayers {
		count = MaxLayers
	}
	if def < 0 || def >= count {
		def = 0
	}
	return &Manager{count: count, def: def, base: def}
}

// Count returns the number of layers.
func (m *Manager) Count() int { return m.count }

// Default returns the layer that a repeated toggle falls back to.
func (m *Manager) Default() int { return m.def }

// Base returns the persistent base layer.
func (m *Manager) Base() int { return m.base }

// Active returns the highest layer with its momentary flag set, or the base
// layer when none is.
func (m *Manager) Active() int {
	for i := m.count - 1; i >= 0; i-- {
		if m.momentary[i] {
			return i
		}
	}
	return m.base
}

// IsMomentary reports whether layer n has its momentary flag set.
func (m *Manager) IsMomentary(n int) bool {
	return m.valid(n) && m.momentary[n]
}

// ActivateMomentary sets the flag of layer n. It reports whether the state
// changed; out-of-range indices are ignored.
func (m *Manager) ActivateMomentary(n int) bool {
	if !m.valid(n) || m.momentary[n] {
		return false
	}
	m.momentary[n] = true
	return true
}

// DeactivateMomentary clears the flag of layer n. It reports whether the
// state changed.
func (m *Manager) DeactivateMomentary(n int) bool {
	if !m.valid(n) || !m.momentary[n] {
		return false
	}
	m.momentary[n] = false
	return true
}

// ToggleBase makes n the base layer, or restores the default layer when n
// is already the base.
func (m *Manager) ToggleBase(n int) {
	if !m.valid(n) {
		return
	}
	if m.base == n {
		m.base = m.def
		return
	}
	m.base = n
}

// Reset drops every momentary flag and restores the default base layer.
func (m *Manager) Reset() {
	m.momentary = [MaxLayers]bool{}
	m.base = m.def
}

func (m *Manager) valid(n int) bool { return n >= 0 && n < m.count }
