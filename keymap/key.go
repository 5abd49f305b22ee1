// Package keymap defines key definitions, layered keymaps and the lookup
// that resolves Transparent entries against lower layers.
package keymap

// Kind tags the variant carried by a Def.
type Kind uint8

const (
	KindNone Kind = iota
	KindNormal
	KindModifier
	KindShifted
	KindConsumer
	KindLayerTap
	KindModTap
	KindLayerMomentary
	KindLayerToggle
	KindTransparent
	KindMacro
)

var kindNames = [...]string{
	KindNone:           "none",
	KindNormal:         "normal",
	KindModifier:       "modifier",
	KindShifted:        "shifted",
	KindConsumer:       "consumer",
	KindLayerTap:       "layer-tap",
	KindModTap:         "mod-tap",
	KindLayerMomentary: "layer-momentary",
	KindLayerToggle:    "layer-toggle",
	KindTransparent:    "transparent",
	KindMacro:          "macro",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Def is one keymap entry. Which fields are meaningful depends on Kind:
//
//	Normal, Shifted         Key
//	Modifier                Mod
//	Consumer                Usage
//	LayerTap                Key (tap), Layer (hold), Timeout
//	ModTap                  Key (tap), Mod (hold), Timeout
//	LayerMomentary, Toggle  Layer
//	Macro                   Macro
//
// Timeout is in milliseconds; 0 selects the resolver default.
type Def struct {
	Kind    Kind
	Key     uint8
	Mod     uint8
	Layer   uint8
	Macro   uint8
	Usage   uint16
	Timeout uint16
}

func No() Def                   { return Def{Kind: KindNone} }
func Key(code uint8) Def        { return Def{Kind: KindNormal, Key: code} }
func Mod(mask uint8) Def        { return Def{Kind: KindModifier, Mod: mask} }
func Shifted(code uint8) Def    { return Def{Kind: KindShifted, Key: code} }
func Consumer(usage uint16) Def { return Def{Kind: KindConsumer, Usage: usage} }
func MO(layer uint8) Def        { return Def{Kind: KindLayerMomentary, Layer: layer} }
func TO(layer uint8) Def        { return Def{Kind: KindLayerToggle, Layer: layer} }
func Trns() Def                 { return Def{Kind: KindTransparent} }
func Macro(id uint8) Def        { return Def{Kind: KindMacro, Macro: id} }

// LT taps tap and holds layer.
func LT(layer, tap uint8) Def { return Def{Kind: KindLayerTap, Key: tap, Layer: layer} }

// LTTimeout is LT with a per-key hold timeout in milliseconds.
func LTTimeout(layer, tap uint8, ms uint16) Def {
	d := LT(layer, tap)
	d.Timeout = ms
	return d
}

// MT taps tap and holds the modifier mask mod.
func MT(mod, tap uint8) Def { return Def{Kind: KindModTap, Key: tap, Mod: mod} }

// MTTimeout is MT with a per-key hold timeout in milliseconds.
func MTTimeout(mod, tap uint8, ms uint16) Def {
	d := MT(mod, tap)
	d.Timeout = ms
	return d
}

// DualFunction reports whether d resolves to a tap or a hold depending on
// how long it is held.
func (d Def) DualFunction() bool {
	return d.Kind == KindLayerTap || d.Kind == KindModTap
}

// HoldTimeout returns the per-key timeout, or def when none is set.
func (d Def) HoldTimeout(def uint32) uint32 {
	if d.Timeout == 0 {
		return def
	}
	return uint32(d.Timeout)
}
