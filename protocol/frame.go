package protocol

import (
	"encoding/binary"
	"hash/crc32"
)

// Frame is one datagram on the radio link. It wraps a sync record with the
// sender id, a per-sender sequence number and a CRC.
// Layout: Length(1) | SenderID(4) | Seq(4) | Payload(0-110) | CRC32(4) | Terminal(1)
// Length counts everything AFTER the length byte (so full frame minus 1).
type Frame struct {
	Length   byte
	SenderID DeviceID
	Seq      uint32
	Payload  []byte
	CRC      uint32 // decoded frames only; ignored by encoder
}

// EncodeFrame serialises p. Payloads longer than MaxPayloadSize are truncated.
func EncodeFrame(p *Frame) []byte {
	if p == nil {
		return make([]byte, 0)
	}

	payloadLen := len(p.Payload)
	if payloadLen > MaxPayloadSize {
		payloadLen = MaxPayloadSize
	}

	bodyLen := headerWithoutLen + payloadLen + CRCSize + TerminalSize // bytes AFTER Length field
	totalLen := LengthFieldSize + bodyLen

	data := make([]byte, totalLen)
	data[0] = byte(bodyLen)
	binary.LittleEndian.PutUint32(data[1:5], uint32(p.SenderID))
	binary.LittleEndian.PutUint32(data[5:9], p.Seq)

	if payloadLen > 0 {
		copy(data[FrameHeaderSize:], p.Payload[:payloadLen])
	}

	var crc uint32
	if payloadLen > 0 {
		crc = crc32.ChecksumIEEE(p.Payload[:payloadLen])
	}
	crcPos := FrameHeaderSize + payloadLen
	binary.LittleEndian.PutUint32(data[crcPos:crcPos+CRCSize], crc)

	data[totalLen-1] = FrameTerminal

	p.Length = byte(bodyLen)

	return data
}

// DecodeFrame parses data, returning nil when the length, terminal byte or
// CRC do not check out. Trailing bytes past the declared length are ignored.
func DecodeFrame(data []byte) *Frame {
	// Must at least fit header + CRC + Terminal
	minLen := FrameHeaderSize + CRCSize + TerminalSize
	if len(data) < minLen {
		return nil
	}

	bodyLen := int(data[0])
	if bodyLen == 0 || (bodyLen+LengthFieldSize) > len(data) {
		return nil
	}

	if data[LengthFieldSize+bodyLen-1] != FrameTerminal {
		return nil
	}

	payloadLen := bodyLen - headerWithoutLen - (CRCSize + TerminalSize)
	if payloadLen < 0 || payloadLen > MaxPayloadSize {
		return nil
	}

	payloadOffset := FrameHeaderSize
	crcOffset := payloadOffset + payloadLen

	recvCRC := binary.LittleEndian.Uint32(data[crcOffset : crcOffset+CRCSize])

	var calcCRC uint32
	if payloadLen > 0 {
		calcCRC = crc32.ChecksumIEEE(data[payloadOffset:crcOffset])
	}
	if recvCRC != calcCRC {
		return nil
	}

	p := &Frame{
		Length:   byte(bodyLen),
		SenderID: DeviceID(binary.LittleEndian.Uint32(data[1:5])),
		Seq:      binary.LittleEndian.Uint32(data[5:9]),
		CRC:      recvCRC,
		Payload:  make([]byte, payloadLen),
	}
	copy(p.Payload, data[payloadOffset:crcOffset])

	return p
}
