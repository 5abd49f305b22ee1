package hid

// Modifier bits of the first report byte.
const (
	ModLeftCtrl   uint8 = 0x01
	ModLeftShift  uint8 = 0x02
	ModLeftAlt    uint8 = 0x04
	ModLeftGUI    uint8 = 0x08
	ModRightCtrl  uint8 = 0x10
	ModRightShift uint8 = 0x20
	ModRightAlt   uint8 = 0x40
	ModRightGUI   uint8 = 0x80
)

// Keyboard/keypad page usages.
const (
	KeyNone uint8 = 0x00

	KeyA uint8 = 0x04
	KeyB uint8 = 0x05
	KeyC uint8 = 0x06
	KeyD uint8 = 0x07
	KeyE uint8 = 0x08
	KeyF uint8 = 0x09
	KeyG uint8 = 0x0A
	KeyH uint8 = 0x0B
	KeyI uint8 = 0x0C
	KeyJ uint8 = 0x0D
	KeyK uint8 = 0x0E
	KeyL uint8 = 0x0F
	KeyM uint8 = 0x10
	KeyN uint8 = 0x11
	KeyO uint8 = 0x12
	KeyP uint8 = 0x13
	KeyQ uint8 = 0x14
	KeyR uint8 = 0x15
	KeyS uint8 = 0x16
	KeyT uint8 = 0x17
	KeyU uint8 = 0x18
	KeyV uint8 = 0x19
	KeyW uint8 = 0x1A
	KeyX uint8 = 0x1B
	KeyY uint8 = 0x1C
	KeyZ uint8 = 0x1D

	Key1 uint8 = 0x1E
	Key2 uint8 = 0x1F
	Key3 uint8 = 0x20
	Key4 uint8 = 0x21
	Key5 uint8 = 0x22
	Key6 uint8 = 0x23
	Key7 uint8 = 0x24
	Key8 uint8 = 0x25
	Key9 uint8 = 0x26
	Key0 uint8 = 0x27

	KeyEnter      uint8 = 0x28
	KeyEsc        uint8 = 0x29
	KeyBackspace  uint8 = 0x2A
	KeyTab        uint8 = 0x2B
	KeySpace      uint8 = 0x2C
	KeyMinus      uint8 = 0x2D
	KeyEqual      uint8 = 0x2E
	KeyLeftBrace  uint8 = 0x2F
	KeyRightBrace uint8 = 0x30
	KeyBackslash  uint8 = 0x31
	KeyHashTilde  uint8 = 0x32
	KeySemicolon  uint8 = 0x33
	KeyApostrophe uint8 = 0x34
	KeyGrave      uint8 = 0x35
	KeyComma      uint8 = 0x36
	KeyDot        uint8 = 0x37
	KeySlash      uint8 = 0x38
	KeyCapsLock   uint8 = 0x39

	KeyF1  uint8 = 0x3A
	KeyF2  uint8 = 0x3B
	KeyF3  uint8 = 0x3C
	KeyF4  uint8 = 0x3D
	KeyF5  uint8 = 0x3E
	KeyF6  uint8 = 0x3F
	KeyF7  uint8 = 0x40
	KeyF8  uint8 = 0x41
	KeyF9  uint8 = 0x42
	KeyF10 uint8 = 0x43
	KeyF11 uint8 = 0x44
	KeyF12 uint8 = 0x45

	KeyPrintScreen uint8 = 0x46
	KeyScrollLock  uint8 = 0x47
	KeyPause       uint8 = 0x48
	KeyInsert      uint8 = 0x49
	KeyHome        uint8 = 0x4A
	KeyPageUp      uint8 = 0x4B
	KeyDelete      uint8 = 0x4C
	KeyEnd         uint8 = 0x4D
	KeyPageDown    uint8 = 0x4E
	KeyRight       uint8 = 0x4F
	KeyLeft        uint8 = 0x50
	KeyDown        uint8 = 0x51
	KeyUp          uint8 = 0x52

	KeyNumLock    uint8 = 0x53
	KeyKPSlash    uint8 = 0x54
	KeyKPAsterisk uint8 = 0x55
	KeyKPMinus    uint8 = 0x56
	KeyKPPlus     uint8 = 0x57
	KeyKPEnter    uint8 = 0x58
	KeyKP1        uint8 = 0x59
	KeyKP2        uint8 = 0x5A
	KeyKP3        uint8 = 0x5B
	KeyKP4        uint8 = 0x5C
	KeyKP5        uint8 = 0x5D
	KeyKP6        uint8 = 0x5E
	KeyKP7        uint8 = 0x5F
	KeyKP8        uint8 = 0x60
	KeyKP9        uint8 = 0x61
	KeyKP0        uint8 = 0x62
	KeyKPDot      uint8 = 0x63

	KeyMenu uint8 = 0x76
)

// Consumer page usages.
const (
	ConsumerBrightnessUp   uint16 = 0x6F
	ConsumerBrightnessDown uint16 = 0x70
	ConsumerPlay           uint16 = 0xB0
	ConsumerPause          uint16 = 0xB1
	ConsumerRecord         uint16 = 0xB2
	ConsumerFastForward    uint16 = 0xB3
	ConsumerRewind         uint16 = 0xB4
	ConsumerNextTrack      uint16 = 0xB5
	ConsumerPrevTrack      uint16 = 0xB6
	ConsumerStop           uint16 = 0xB7
	ConsumerEject          uint16 = 0xB8
	ConsumerPlayPause      uint16 = 0xCD
	ConsumerMute           uint16 = 0xE2
	ConsumerBassBoost      uint16 = 0xE5
	ConsumerLoudness       uint16 = 0xE7
	ConsumerVolumeUp       uint16 = 0xE9
	ConsumerVolumeDown     uint16 = 0xEA
)
