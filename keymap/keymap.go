package keymap

import (
	"errors"
	"fmt"
)

var (
	ErrShape         = errors.New("keymap shape mismatch")
	ErrLayerRange    = errors.New("layer index out of range")
	ErrUnknownMacro  = errors.New("unknown macro")
	ErrUnknownKey    = errors.New("unknown key name")
	ErrBadExpression = errors.New("malformed key expression")
)

// Keymap is a stack of layers, each a rows x cols grid of Defs, plus the
// macro table referenced by Macro keys.
type Keymap struct {
	rows, cols int
	layers     [][]Def
	macros     map[uint8][]uint8
}

// New returns a keymap of the given shape with every entry set to No.
func New(layers, rows, cols int) *Keymap {
	k := &Keymap{
		rows:   rows,
		cols:   cols,
		layers: make([][]Def, layers),
		macros: make(map[uint8][]uint8),
	}
	for i := range k.layers {
		k.layers[i] = make([]Def, rows*cols)
	}
	return k
}

func (k *Keymap) Rows() int   { return k.rows }
func (k *Keymap) Cols() int   { return k.cols }
func (k *Keymap) Layers() int { return len(k.layers) }

func (k *Keymap) inRange(layer, row, col int) bool {
	return layer >= 0 && layer < len(k.layers) &&
		row >= 0 && row < k.rows &&
		col >= 0 && col < k.cols
}

// Set stores d at the given position. Out-of-range positions are ignored.
func (k *Keymap) Set(layer, row, col int, d Def) {
	if !k.inRange(layer, row, col) {
		return
	}
	k.layers[layer][row*k.cols+col] = d
}

// At returns the raw entry at the given position, or No when out of range.
func (k *Keymap) At(layer, row, col int) Def {
	if !k.inRange(layer, row, col) {
		return No()
	}
	return k.layers[layer][row*k.cols+col]
}

// Resolve returns the definition in effect at (row, col) while active is
// the active layer. Transparent entries fall through to the next lower
// layer; a cell that is transparent all the way down resolves to No.
func (k *Keymap) Resolve(active, row, col int) Def {
	if active >= len(k.layers) {
		active = len(k.layers) - 1
	}
	for l := active; l >= 0; l-- {
		d := k.At(l, row, col)
		if d.Kind != KindTransparent {
			return d
		}
	}
	return No()
}

// SetMacro registers the keycode sequence typed by Macro(id).
func (k *Keymap) SetMacro(id uint8, keys []uint8) {
	seq := make([]uint8, len(keys))
	copy(seq, keys)
	k.macros[id] = seq
}

// Macro returns the keycode sequence of macro id.
func (k *Keymap) Macro(id uint8) ([]uint8, bool) {
	seq, ok := k.macros[id]
	return seq, ok
}

// MacroIDs returns the registered macro ids in ascending order.
func (k *Keymap) MacroIDs() []uint8 {
	ids := make([]uint8, 0, len(k.macros))
	for id := 0; id < 256; id++ {
		if _, ok := k.macros[uint8(id)]; ok {
			ids = append(ids, uint8(id))
		}
	}
	return ids
}

// Validate checks that every layer reference stays within the keymap and
// every macro key names a registered macro.
func (k *Keymap) Validate() error {
	if len(k.layers) == 0 || k.rows <= 0 || k.cols <= 0 {
		return fmt.Errorf("%w: %d layers of %dx%d", ErrShape, len(k.layers), k.rows, k.cols)
	}
	for l, grid := range k.layers {
		for i, d := range grid {
			row, col := i/k.cols, i%k.cols
			switch d.Kind {
			case KindLayerTap, KindLayerMomentary, KindLayerToggle:
				if int(d.Layer) >= len(k.layers) {
					return fmt.Errorf("%w: %s at layer %d (%d,%d)", ErrLayerRange, d, l, row, col)
				}
			case KindMacro:
				if _, ok := k.macros[d.Macro]; !ok {
					return fmt.Errorf("%w: %d at layer %d (%d,%d)", ErrUnknownMacro, d.Macro, l, row, col)
				}
			}
		}
	}
	return nil
}
