package keymap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ystepanoff/splitkb/hid"
)

type name8 struct {
	name string
	code uint8
}

type name16 struct {
	name string
	code uint16
}

// keyNames lists canonical names first; later entries for the same code
// are aliases accepted by the parser.
var keyNames = []name8{
	{"A", hid.KeyA}, {"B", hid.KeyB}, {"C", hid.KeyC}, {"D", hid.KeyD},
	{"E", hid.KeyE}, {"F", hid.KeyF}, {"G", hid.KeyG}, {"H", hid.KeyH},
	{"I", hid.KeyI}, {"J", hid.KeyJ}, {"K", hid.KeyK}, {"L", hid.KeyL},
	{"M", hid.KeyM}, {"N", hid.KeyN}, {"O", hid.KeyO}, {"P", hid.KeyP},
	{"Q", hid.KeyQ}, {"R", hid.KeyR}, {"S", hid.KeyS}, {"T", hid.KeyT},
	{"U", hid.KeyU}, {"V", hid.KeyV}, {"W", hid.KeyW}, {"X", hid.KeyX},
	{"Y", hid.KeyY}, {"Z", hid.KeyZ},
	{"1", hid.Key1}, {"2", hid.Key2}, {"3", hid.Key3}, {"4", hid.Key4},
	{"5", hid.Key5}, {"6", hid.Key6}, {"7", hid.Key7}, {"8", hid.Key8},
	{"9", hid.Key9}, {"0", hid.Key0},
	{"Enter", hid.KeyEnter}, {"Esc", hid.KeyEsc}, {"Backspace", hid.KeyBackspace},
	{"Tab", hid.KeyTab}, {"Space", hid.KeySpace}, {"Minus", hid.KeyMinus},
	{"Equal", hid.KeyEqual}, {"LBrace", hid.KeyLeftBrace}, {"RBrace", hid.KeyRightBrace},
	{"Backslash", hid.KeyBackslash}, {"HashTilde", hid.KeyHashTilde},
	{"Semicolon", hid.KeySemicolon}, {"Quote", hid.KeyApostrophe}, {"Grave", hid.KeyGrave},
	{"Comma", hid.KeyComma}, {"Dot", hid.KeyDot}, {"Slash", hid.KeySlash},
	{"CapsLock", hid.KeyCapsLock},
	{"F1", hid.KeyF1}, {"F2", hid.KeyF2}, {"F3", hid.KeyF3}, {"F4", hid.KeyF4},
	{"F5", hid.KeyF5}, {"F6", hid.KeyF6}, {"F7", hid.KeyF7}, {"F8", hid.KeyF8},
	{"F9", hid.KeyF9}, {"F10", hid.KeyF10}, {"F11", hid.KeyF11}, {"F12", hid.KeyF12},
	{"PrintScreen", hid.KeyPrintScreen}, {"ScrollLock", hid.KeyScrollLock},
	{"Pause", hid.KeyPause}, {"Insert", hid.KeyInsert}, {"Home", hid.KeyHome},
	{"PageUp", hid.KeyPageUp}, {"Delete", hid.KeyDelete}, {"End", hid.KeyEnd},
	{"PageDown", hid.KeyPageDown}, {"Right", hid.KeyRight}, {"Left", hid.KeyLeft},
	{"Down", hid.KeyDown}, {"Up", hid.KeyUp},
	{"NumLock", hid.KeyNumLock}, {"KPSlash", hid.KeyKPSlash}, {"KPAsterisk", hid.KeyKPAsterisk},
	{"KPMinus", hid.KeyKPMinus}, {"KPPlus", hid.KeyKPPlus}, {"KPEnter", hid.KeyKPEnter},
	{"KP1", hid.KeyKP1}, {"KP2", hid.KeyKP2}, {"KP3", hid.KeyKP3}, {"KP4", hid.KeyKP4},
	{"KP5", hid.KeyKP5}, {"KP6", hid.KeyKP6}, {"KP7", hid.KeyKP7}, {"KP8", hid.KeyKP8},
	{"KP9", hid.KeyKP9}, {"KP0", hid.KeyKP0}, {"KPDot", hid.KeyKPDot},
	{"Menu", hid.KeyMenu},

	{"Ent", hid.KeyEnter}, {"Ret", hid.KeyEnter}, {"Escape", hid.KeyEsc},
	{"Bspc", hid.KeyBackspace}, {"Spc", hid.KeySpace}, {"Mins", hid.KeyMinus},
	{"Eql", hid.KeyEqual}, {"Lbrc", hid.KeyLeftBrace}, {"Rbrc", hid.KeyRightBrace},
	{"Bslash", hid.KeyBackslash}, {"Bsls", hid.KeyBackslash}, {"Scln", hid.KeySemicolon},
	{"Quot", hid.KeyApostrophe}, {"Apostrophe", hid.KeyApostrophe}, {"Grv", hid.KeyGrave},
	{"Comm", hid.KeyComma}, {"Slsh", hid.KeySlash}, {"Caps", hid.KeyCapsLock},
	{"Pscr", hid.KeyPrintScreen}, {"Slck", hid.KeyScrollLock}, {"Paus", hid.KeyPause},
	{"Ins", hid.KeyInsert}, {"Pgup", hid.KeyPageUp}, {"Del", hid.KeyDelete},
	{"Pgdn", hid.KeyPageDown}, {"Rght", hid.KeyRight},
}

var modNames = []name8{
	{"LCtrl", hid.ModLeftCtrl}, {"LShift", hid.ModLeftShift},
	{"LAlt", hid.ModLeftAlt}, {"LGui", hid.ModLeftGUI},
	{"RCtrl", hid.ModRightCtrl}, {"RShift", hid.ModRightShift},
	{"RAlt", hid.ModRightAlt}, {"RGui", hid.ModRightGUI},

	{"LSft", hid.ModLeftShift}, {"LCmd", hid.ModLeftGUI}, {"LWin", hid.ModLeftGUI},
	{"RSft", hid.ModRightShift}, {"RCmd", hid.ModRightGUI}, {"RWin", hid.ModRightGUI},
}

var consumerNames = []name16{
	{"BrightnessUp", hid.ConsumerBrightnessUp}, {"BrightnessDown", hid.ConsumerBrightnessDown},
	{"Play", hid.ConsumerPlay}, {"Pause", hid.ConsumerPause}, {"Record", hid.ConsumerRecord},
	{"FastForward", hid.ConsumerFastForward}, {"Rewind", hid.ConsumerRewind},
	{"NextTrack", hid.ConsumerNextTrack}, {"PrevTrack", hid.ConsumerPrevTrack},
	{"Stop", hid.ConsumerStop}, {"Eject", hid.ConsumerEject},
	{"PlayPause", hid.ConsumerPlayPause}, {"Mute", hid.ConsumerMute},
	{"BassBoost", hid.ConsumerBassBoost}, {"Loudness", hid.ConsumerLoudness},
	{"VolUp", hid.ConsumerVolumeUp}, {"VolDown", hid.ConsumerVolumeDown},
}

// shiftedSymbols maps a shifted US-layout key to the character it types.
var shiftedSymbols = []name8{
	{"!", hid.Key1}, {"@", hid.Key2}, {"#", hid.Key3}, {"$", hid.Key4},
	{"%", hid.Key5}, {"^", hid.Key6}, {"&", hid.Key7}, {"*", hid.Key8},
	{"(", hid.Key9}, {")", hid.Key0}, {"_", hid.KeyMinus}, {"+", hid.KeyEqual},
	{"{", hid.KeyLeftBrace}, {"}", hid.KeyRightBrace}, {"|", hid.KeyBackslash},
	{":", hid.KeySemicolon}, {"\"", hid.KeyApostrophe}, {"~", hid.KeyGrave},
	{"<", hid.KeyComma}, {">", hid.KeyDot}, {"?", hid.KeySlash},
}

func lookup8(table []name8, code uint8) (string, bool) {
	for _, n := range table {
		if n.code == code {
			return n.name, true
		}
	}
	return "", false
}

func find8(table []name8, name string) (uint8, bool) {
	for _, n := range table {
		if strings.EqualFold(n.name, name) {
			return n.code, true
		}
	}
	return 0, false
}

func find16(table []name16, name string) (uint16, bool) {
	for _, n := range table {
		if strings.EqualFold(n.name, name) {
			return n.code, true
		}
	}
	return 0, false
}

// KeyName returns the canonical name of a keyboard usage, or its hex value.
func KeyName(code uint8) string {
	if name, ok := lookup8(keyNames, code); ok {
		return name
	}
	return fmt.Sprintf("0x%02X", code)
}

// ModName returns the name of a single modifier bit, or a "+"-joined list
// for a mask with several bits set.
func ModName(mask uint8) string {
	if name, ok := lookup8(modNames, mask); ok {
		return name
	}
	var parts []string
	for bit := uint8(1); bit != 0; bit <<= 1 {
		if mask&bit == 0 {
			continue
		}
		name, _ := lookup8(modNames, bit)
		parts = append(parts, name)
	}
	if len(parts) == 0 {
		return "0x00"
	}
	return strings.Join(parts, "+")
}

// ConsumerName returns the name of a consumer usage, or its hex value.
func ConsumerName(usage uint16) string {
	for _, n := range consumerNames {
		if n.code == usage {
			return n.name
		}
	}
	return fmt.Sprintf("0x%03X", usage)
}

// String renders d in the expression syntax accepted by Parse.
func (d Def) String() string {
	switch d.Kind {
	case KindNone:
		return "None"
	case KindNormal:
		return KeyName(d.Key)
	case KindModifier:
		return ModName(d.Mod)
	case KindShifted:
		if sym, ok := lookup8(shiftedSymbols, d.Key); ok {
			return sym
		}
		return "S(" + KeyName(d.Key) + ")"
	case KindConsumer:
		return "CONS(" + ConsumerName(d.Usage) + ")"
	case KindLayerTap:
		return withTimeout("LT("+strconv.Itoa(int(d.Layer))+","+KeyName(d.Key), d.Timeout)
	case KindModTap:
		return withTimeout("MT("+ModName(d.Mod)+","+KeyName(d.Key), d.Timeout)
	case KindLayerMomentary:
		return "MO(" + strconv.Itoa(int(d.Layer)) + ")"
	case KindLayerToggle:
		return "TO(" + strconv.Itoa(int(d.Layer)) + ")"
	case KindTransparent:
		return "Trns"
	case KindMacro:
		return "MACRO(" + strconv.Itoa(int(d.Macro)) + ")"
	}
	return "Unknown"
}

func withTimeout(prefix string, ms uint16) string {
	if ms == 0 {
		return prefix + ")"
	}
	return prefix + "," + strconv.Itoa(int(ms)) + ")"
}

// Parse reads one key expression:
//
//	A, Enter, F5, ...        normal key
//	LCtrl, RGui, ...         modifier
//	!, @, S(Slash)           shifted key
//	CONS(VolUp)              consumer usage
//	LT(1,Tab) LT(1,Tab,100)  layer-tap, optional timeout
//	MT(LGui,Space,130)       mod-tap, optional timeout
//	MO(1) TO(2)              momentary / toggled layer
//	MACRO(0)                 macro
//	Trns, ___                transparent
//	None, No                 no key
//
// Names are case-insensitive.
func Parse(expr string) (Def, error) {
	s := strings.TrimSpace(expr)
	if s == "" {
		return Def{}, fmt.Errorf("%w: empty", ErrBadExpression)
	}
	if code, ok := find8(shiftedSymbols, s); ok {
		return Shifted(code), nil
	}

	open := strings.IndexByte(s, '(')
	if open < 0 {
		return parseAtom(s)
	}
	if !strings.HasSuffix(s, ")") || open == 0 {
		return Def{}, fmt.Errorf("%w: %q", ErrBadExpression, expr)
	}
	fn := strings.ToUpper(s[:open])
	args := strings.Split(s[open+1:len(s)-1], ",")
	for i := range args {
		args[i] = strings.TrimSpace(args[i])
	}

	switch fn {
	case "S":
		if len(args) != 1 {
			break
		}
		code, err := parseKey(args[0])
		if err != nil {
			return Def{}, err
		}
		return Shifted(code), nil
	case "CONS":
		if len(args) != 1 {
			break
		}
		usage, ok := find16(consumerNames, args[0])
		if !ok {
			return Def{}, fmt.Errorf("%w: consumer %q", ErrUnknownKey, args[0])
		}
		return Consumer(usage), nil
	case "LT", "MT":
		if len(args) != 2 && len(args) != 3 {
			break
		}
		tap, err := parseKey(args[1])
		if err != nil {
			return Def{}, err
		}
		var timeout uint16
		if len(args) == 3 {
			v, err := strconv.ParseUint(args[2], 10, 16)
			if err != nil {
				return Def{}, fmt.Errorf("%w: timeout %q", ErrBadExpression, args[2])
			}
			timeout = uint16(v)
		}
		if fn == "LT" {
			l, err := parseSmall(args[0])
			if err != nil {
				return Def{}, err
			}
			return LTTimeout(l, tap, timeout), nil
		}
		mod, err := parseMods(args[0])
		if err != nil {
			return Def{}, err
		}
		return MTTimeout(mod, tap, timeout), nil
	case "MO", "TO", "MACRO":
		if len(args) != 1 {
			break
		}
		n, err := parseSmall(args[0])
		if err != nil {
			return Def{}, err
		}
		switch fn {
		case "MO":
			return MO(n), nil
		case "TO":
			return TO(n), nil
		}
		return Macro(n), nil
	}
	return Def{}, fmt.Errorf("%w: %q", ErrBadExpression, expr)
}

func parseAtom(s string) (Def, error) {
	switch strings.ToUpper(s) {
	case "NONE", "NO":
		return No(), nil
	case "TRNS", "TRANSPARENT", "___":
		return Trns(), nil
	}
	if mod, err := parseMods(s); err == nil {
		return Mod(mod), nil
	}
	code, err := parseKey(s)
	if err != nil {
		return Def{}, err
	}
	return Key(code), nil
}

// parseMods accepts a single modifier name or several joined with "+".
func parseMods(s string) (uint8, error) {
	var mask uint8
	for _, part := range strings.Split(s, "+") {
		bit, ok := find8(modNames, strings.TrimSpace(part))
		if !ok {
			return 0, fmt.Errorf("%w: modifier %q", ErrUnknownKey, part)
		}
		mask |= bit
	}
	return mask, nil
}

func parseKey(s string) (uint8, error) {
	if code, ok := find8(keyNames, s); ok {
		return code, nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseUint(s[2:], 16, 8)
		if err == nil {
			return uint8(v), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKey, s)
}

func parseSmall(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a small integer", ErrBadExpression, s)
	}
	return uint8(v), nil
}
