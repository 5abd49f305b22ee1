package protocol

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"testing"
)

func TestFrameEncoding(t *testing.T) {
	tests := []struct {
		name        string
		frame       *Frame
		wantMinSize int
		wantMaxSize int
	}{
		{
			name: "empty payload",
			frame: &Frame{
				SenderID: 0xCAFE,
				Seq:      42,
				Payload:  []byte{},
			},
			wantMinSize: FrameHeaderSize + CRCSize + TerminalSize,
			wantMaxSize: FrameHeaderSize + CRCSize + TerminalSize,
		},
		{
			name: "sync record",
			frame: &Frame{
				SenderID: 0xBEEF,
				Seq:      123,
				Payload:  []byte{1, 1, 0, 0, 4, 0, 0, 0, 0, 0},
			},
			wantMinSize: FrameHeaderSize + RecordSize + CRCSize + TerminalSize,
			wantMaxSize: FrameHeaderSize + RecordSize + CRCSize + TerminalSize,
		},
		{
			name: "maximum payload",
			frame: &Frame{
				SenderID: 0xDEAD,
				Seq:      255,
				Payload:  bytes.Repeat([]byte{0xAA}, MaxPayloadSize),
			},
			wantMinSize: FrameHeaderSize + MaxPayloadSize + CRCSize + TerminalSize,
			wantMaxSize: MaxFrameSize,
		},
		{
			name: "too large payload gets truncated",
			frame: &Frame{
				SenderID: 0xDEAD,
				Seq:      255,
				Payload:  bytes.Repeat([]byte{0xAA}, MaxPayloadSize+50),
			},
			wantMinSize: FrameHeaderSize + MaxPayloadSize + CRCSize + TerminalSize,
			wantMaxSize: MaxFrameSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := EncodeFrame(tt.frame)

			if len(encoded) < tt.wantMinSize {
				t.Errorf("EncodeFrame() size = %v, want at least %v", len(encoded), tt.wantMinSize)
			}
			if len(encoded) > tt.wantMaxSize {
				t.Errorf("EncodeFrame() size = %v, exceeded max %v", len(encoded), tt.wantMaxSize)
			}

			if encoded[0] != byte(len(encoded)-1) {
				t.Errorf("Length byte = %v, want %v", encoded[0], len(encoded)-1)
			}

			gotSenderID := DeviceID(binary.LittleEndian.Uint32(encoded[1:5]))
			if gotSenderID != tt.frame.SenderID {
				t.Errorf("SenderID = %v, want %v", gotSenderID, tt.frame.SenderID)
			}

			gotSeq := binary.LittleEndian.Uint32(encoded[5:9])
			if gotSeq != tt.frame.Seq {
				t.Errorf("Seq = %v, want %v", gotSeq, tt.frame.Seq)
			}

			if encoded[len(encoded)-1] != FrameTerminal {
				t.Errorf("Terminal byte = %v, want %v", encoded[len(encoded)-1], FrameTerminal)
			}

			payloadLen := len(encoded) - (FrameHeaderSize + CRCSize + TerminalSize)
			if payloadLen > 0 {
				crcPos := FrameHeaderSize + payloadLen
				gotCRC := binary.LittleEndian.Uint32(encoded[crcPos : crcPos+CRCSize])
				expectedCRC := crc32.ChecksumIEEE(encoded[FrameHeaderSize:crcPos])
				if gotCRC != expectedCRC {
					t.Errorf("CRC = %v, want %v", gotCRC, expectedCRC)
				}
			}
		})
	}
}

func TestFrameRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		frame *Frame
	}{
		{
			name: "empty payload",
			frame: &Frame{
				SenderID: 0xCAFE,
				Seq:      42,
				Payload:  []byte{},
			},
		},
		{
			name: "sync record",
			frame: &Frame{
				SenderID: 0xBEEF,
				Seq:      0xFFFFFFFF,
				Payload:  []byte{1, 3, 1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
		{
			name: "maximum payload",
			frame: &Frame{
				SenderID: 0xDEAD,
				Seq:      255,
				Payload:  bytes.Repeat([]byte{0xAA}, MaxPayloadSize),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded := DecodeFrame(EncodeFrame(tt.frame))
			if decoded == nil {
				t.Fatal("DecodeFrame() returned nil, want successful decode")
			}

			if decoded.SenderID != tt.frame.SenderID {
				t.Errorf("SenderID = %v, want %v", decoded.SenderID, tt.frame.SenderID)
			}
			if decoded.Seq != tt.frame.Seq {
				t.Errorf("Seq = %v, want %v", decoded.Seq, tt.frame.Seq)
			}
			if !bytes.Equal(decoded.Payload, tt.frame.Payload) {
				t.Errorf("Payload = %v, want %v", decoded.Payload, tt.frame.Payload)
			}
		})
	}
}

func TestDecodeInvalidFrames(t *testing.T) {
	valid := func() []byte {
		return EncodeFrame(&Frame{SenderID: 0xBEEF, Seq: 1, Payload: []byte{1, 2, 3}})
	}

	tests := []struct {
		name string
		data []byte
	}{
		{
			name: "nil data",
			data: nil,
		},
		{
			name: "too short",
			data: []byte{0x01, 0x02},
		},
		{
			name: "bad length byte",
			data: append(
				[]byte{
					0xFF,                   // Length (impossibly large)
					0xEF, 0xBE, 0x00, 0x00, // SenderID
					0x01, 0x00, 0x00, 0x00, // Seq
				},
				bytes.Repeat([]byte{0x00}, 10)...,
			),
		},
		{
			name: "truncated",
			data: valid()[:FrameHeaderSize+2],
		},
		{
			name: "wrong terminal byte",
			data: func() []byte {
				data := valid()
				data[len(data)-1] = 0xAA
				return data
			}(),
		},
		{
			name: "corrupt CRC",
			data: func() []byte {
				data := valid()
				data[FrameHeaderSize+3] ^= 0xFF
				return data
			}(),
		},
		{
			name: "corrupt payload",
			data: func() []byte {
				data := valid()
				data[FrameHeaderSize] ^= 0x01
				return data
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded := DecodeFrame(tt.data)
			if decoded != nil {
				t.Errorf("DecodeFrame() = %v, want nil for invalid frame", decoded)
			}
		})
	}
}

func TestFrameSizeLimit(t *testing.T) {
	frame := &Frame{
		SenderID: 0xBEEF,
		Seq:      1,
		Payload:  bytes.Repeat([]byte{0xAA}, MaxPayloadSize*2),
	}

	encoded := EncodeFrame(frame)
	if len(encoded) > MaxFrameSize {
		t.Errorf("EncodeFrame() size = %v, want <= %v", len(encoded), MaxFrameSize)
	}

	decoded := DecodeFrame(encoded)
	if decoded == nil {
		t.Fatal("DecodeFrame() returned nil, expected valid frame")
	}
	if len(decoded.Payload) != MaxPayloadSize {
		t.Errorf("Decoded payload size = %v, want %v", len(decoded.Payload), MaxPayloadSize)
	}
}
