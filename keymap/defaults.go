package keymap

import "github.com/ystepanoff/splitkb/hid"

// Shape of the stock boards.
const (
	DefaultRows   = 5
	DefaultCols   = 6
	DefaultLayers = 3
)

func fromGrid(grid [DefaultLayers][DefaultRows][DefaultCols]Def) *Keymap {
	k := New(DefaultLayers, DefaultRows, DefaultCols)
	for l := range grid {
		for r := range grid[l] {
			for c, d := range grid[l][r] {
				k.Set(l, r, c, d)
			}
		}
	}
	return k
}

// DefaultLeft returns the stock keymap of the left half.
//
//	layer 0: base          layer 1: symbols        layer 2: media
//	=   1 2 3 4 5          .  F2 F3 F4 F5 F6        .  F2 F3  F4   F5   F6
//	Esc Q W E R T          .  `  >  <  -  |         .  B+ Mut Vol- Vol+ -
//	Ctl A S D F G          .  !  *  /  =  &         .  B- Prv Nxt  Ply  Stp
//	Alt Z X C V B          .  ~  +  [  ]  %         .  -  -   -    -    -
//	        L1/Tab Gui/Spc          .  .                    .    .    .
func DefaultLeft() *Keymap {
	n := No()
	t := Trns()
	return fromGrid([DefaultLayers][DefaultRows][DefaultCols]Def{
		{
			{Key(hid.KeyEqual), Key(hid.Key1), Key(hid.Key2), Key(hid.Key3), Key(hid.Key4), Key(hid.Key5)},
			{Key(hid.KeyEsc), Key(hid.KeyQ), Key(hid.KeyW), Key(hid.KeyE), Key(hid.KeyR), Key(hid.KeyT)},
			{Mod(hid.ModLeftCtrl), Key(hid.KeyA), Key(hid.KeyS), Key(hid.KeyD), Key(hid.KeyF), Key(hid.KeyG)},
			{Mod(hid.ModLeftAlt), Key(hid.KeyZ), Key(hid.KeyX), Key(hid.KeyC), Key(hid.KeyV), Key(hid.KeyB)},
			{n, n, n, n, LTTimeout(1, hid.KeyTab, 100), MTTimeout(hid.ModLeftGUI, hid.KeySpace, 130)},
		},
		{
			{t, Key(hid.KeyF2), Key(hid.KeyF3), Key(hid.KeyF4), Key(hid.KeyF5), Key(hid.KeyF6)},
			{t, Key(hid.KeyGrave), Shifted(hid.KeyDot), Shifted(hid.KeyComma), Key(hid.KeyMinus), Shifted(hid.KeyBackslash)},
			{t, Shifted(hid.Key1), Shifted(hid.Key8), Key(hid.KeySlash), Key(hid.KeyEqual), Shifted(hid.Key7)},
			{t, Shifted(hid.KeyGrave), Shifted(hid.KeyEqual), Key(hid.KeyLeftBrace), Key(hid.KeyRightBrace), Shifted(hid.Key5)},
			{n, n, n, n, t, t},
		},
		{
			{t, Key(hid.KeyF2), Key(hid.KeyF3), Key(hid.KeyF4), Key(hid.KeyF5), Key(hid.KeyF6)},
			{t, Consumer(hid.ConsumerBrightnessUp), Consumer(hid.ConsumerMute), Consumer(hid.ConsumerVolumeDown), Consumer(hid.ConsumerVolumeUp), n},
			{t, Consumer(hid.ConsumerBrightnessDown), Consumer(hid.ConsumerPrevTrack), Consumer(hid.ConsumerNextTrack), Consumer(hid.ConsumerPlayPause), Consumer(hid.ConsumerStop)},
			{t, n, n, n, n, n},
			{n, n, n, t, t, t},
		},
	})
}

// DefaultRight returns the stock keymap of the right half.
//
//	layer 0: base            layer 1: symbols        layer 2: navigation
//	6 7 8 9 0 -              F7 F8 F9 F10 F11 F12     F7   F8   F9   F10   F11 F12
//	Y U I O P \              ^  "  :  ;   _   .       PgUp Home Up   End   -   Del
//	H J K L ; L1/'           $  (  {  [   @   .       PgDn Left Down Right -   Ins
//	N M , . / Gui            #  )  }  ]   -   -       -    -    -    -     -   -
//	RShift/Ent L2/Bspc       .  0                     .    .
func DefaultRight() *Keymap {
	n := No()
	t := Trns()
	return fromGrid([DefaultLayers][DefaultRows][DefaultCols]Def{
		{
			{Key(hid.Key6), Key(hid.Key7), Key(hid.Key8), Key(hid.Key9), Key(hid.Key0), Key(hid.KeyMinus)},
			{Key(hid.KeyY), Key(hid.KeyU), Key(hid.KeyI), Key(hid.KeyO), Key(hid.KeyP), Key(hid.KeyBackslash)},
			{Key(hid.KeyH), Key(hid.KeyJ), Key(hid.KeyK), Key(hid.KeyL), Key(hid.KeySemicolon), LT(1, hid.KeyApostrophe)},
			{Key(hid.KeyN), Key(hid.KeyM), Key(hid.KeyComma), Key(hid.KeyDot), Key(hid.KeySlash), Mod(hid.ModLeftGUI)},
			{MTTimeout(hid.ModRightShift, hid.KeyEnter, 130), LTTimeout(2, hid.KeyBackspace, 100), n, n, n, n},
		},
		{
			{Key(hid.KeyF7), Key(hid.KeyF8), Key(hid.KeyF9), Key(hid.KeyF10), Key(hid.KeyF11), Key(hid.KeyF12)},
			{Shifted(hid.Key6), Shifted(hid.KeyApostrophe), Shifted(hid.KeySemicolon), Key(hid.KeySemicolon), Shifted(hid.KeyMinus), t},
			{Shifted(hid.Key4), Shifted(hid.Key9), Shifted(hid.KeyLeftBrace), Key(hid.KeyLeftBrace), Shifted(hid.Key2), t},
			{Shifted(hid.Key3), Shifted(hid.Key0), Shifted(hid.KeyRightBrace), Key(hid.KeyRightBrace), n, n},
			{t, Key(hid.Key0), n, n, n, n},
		},
		{
			{Key(hid.KeyF7), Key(hid.KeyF8), Key(hid.KeyF9), Key(hid.KeyF10), Key(hid.KeyF11), Key(hid.KeyF12)},
			{Key(hid.KeyPageUp), Key(hid.KeyHome), Key(hid.KeyUp), Key(hid.KeyEnd), n, Key(hid.KeyDelete)},
			{Key(hid.KeyPageDown), Key(hid.KeyLeft), Key(hid.KeyDown), Key(hid.KeyRight), n, Key(hid.KeyInsert)},
			{n, n, n, n, n, n},
			{t, t, n, n, n, n},
		},
	})
}
