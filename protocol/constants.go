package protocol

// Radio framing constants (platform independent).
const (
	// Frame layout:
	//   Length (1) | SenderID (4) | Seq (4) | Payload (0-110) | CRC32 (4) | Terminal (1)
	// Length counts everything after the length byte, i.e., total frame size minus 1.

	LengthFieldSize   = 1
	SenderIDFieldSize = 4
	SequenceFieldSize = 4
	CRCSize           = 4 // CRC32 of the payload, little-endian
	TerminalSize      = 1

	FrameHeaderSize = LengthFieldSize + SenderIDFieldSize + SequenceFieldSize // 9 bytes

	MaxFrameSize   = 128
	MaxPayloadSize = MaxFrameSize - FrameHeaderSize - CRCSize - TerminalSize

	// Terminal byte value appended to the end of every frame
	FrameTerminal = 0x55

	headerWithoutLen = FrameHeaderSize - LengthFieldSize
)

// RF defaults shared by both halves.
const (
	DefaultAddress = 0xE7E7E7E7
	DefaultPrefix  = 0xE7
	DefaultChannel = 1
	MaxChannel     = 125
)
