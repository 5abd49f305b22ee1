package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/ystepanoff/splitkb/hid"
)

// Record layout, identical on both halves:
//
//	Origin (1) | Type (1) | Payload (8)
//
// The payload region is sized for the largest variant, a full key report.
// Unused payload bytes are zero.
const (
	PayloadSize = hid.KeyReportSize
	RecordSize  = 2 + PayloadSize
)

// Origin tags the half that produced a message.
type Origin uint8

const (
	OriginPrimary   Origin = 0
	OriginSecondary Origin = 1
)

func (o Origin) String() string {
	switch o {
	case OriginPrimary:
		return "primary"
	case OriginSecondary:
		return "secondary"
	}
	return fmt.Sprintf("origin(%d)", uint8(o))
}

// EventType tags the action a message mirrors.
type EventType uint8

const (
	EventConn EventType = iota
	EventTap
	EventBriefTap
	EventLayerSync
	EventLayerDesync
	EventModSync
	EventModDesync
	EventHeartbeatRequest
	EventHeartbeatResponse
	EventConsumer
)

var eventNames = [...]string{
	EventConn:              "conn",
	EventTap:               "tap",
	EventBriefTap:          "brief-tap",
	EventLayerSync:         "layer-sync",
	EventLayerDesync:       "layer-desync",
	EventModSync:           "mod-sync",
	EventModDesync:         "mod-desync",
	EventHeartbeatRequest:  "hb-req",
	EventHeartbeatResponse: "hb-res",
	EventConsumer:          "consumer",
}

func (t EventType) String() string {
	if int(t) < len(eventNames) {
		return eventNames[t]
	}
	return fmt.Sprintf("event(%d)", uint8(t))
}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool { return int(t) < len(eventNames) }

// Payload is the tagged payload of a Message. The concrete types are
// ReportPayload, ConsumerPayload, LayerPayload, ModifierPayload,
// FlagPayload and EmptyPayload.
type Payload interface {
	put(b []byte)
	isPayload()
}

// ReportPayload is a key report snapshot (tap, brief tap).
type ReportPayload struct{ Report hid.KeyReport }

// ConsumerPayload is a consumer report snapshot.
type ConsumerPayload struct{ Report hid.ConsumerReport }

// LayerPayload carries a layer index (layer sync/desync).
type LayerPayload struct{ Layer uint8 }

// ModifierPayload carries a modifier mask (modifier sync/desync).
type ModifierPayload struct{ Mask uint8 }

// FlagPayload carries a boolean (connection state).
type FlagPayload struct{ On bool }

// EmptyPayload is used by the heartbeat request and response.
type EmptyPayload struct{}

func (p ReportPayload) put(b []byte)   { p.Report.MarshalTo(b) }
func (p ConsumerPayload) put(b []byte) { binary.LittleEndian.PutUint16(b, p.Report.Usage) }
func (p LayerPayload) put(b []byte)    { b[0] = p.Layer }
func (p ModifierPayload) put(b []byte) { b[0] = p.Mask }
func (EmptyPayload) put([]byte)        {}

func (p FlagPayload) put(b []byte) {
	if p.On {
		b[0] = 1
	}
}

func (ReportPayload) isPayload()   {}
func (ConsumerPayload) isPayload() {}
func (LayerPayload) isPayload()    {}
func (ModifierPayload) isPayload() {}
func (FlagPayload) isPayload()     {}
func (EmptyPayload) isPayload()    {}

// Message is one sync record.
type Message struct {
	Origin  Origin
	Type    EventType
	Payload Payload
}

func NewConn(o Origin, up bool) Message {
	return Message{Origin: o, Type: EventConn, Payload: FlagPayload{On: up}}
}

func NewTap(o Origin, r hid.KeyReport) Message {
	return Message{Origin: o, Type: EventTap, Payload: ReportPayload{Report: r}}
}

func NewBriefTap(o Origin, r hid.KeyReport) Message {
	return Message{Origin: o, Type: EventBriefTap, Payload: ReportPayload{Report: r}}
}

func NewLayerSync(o Origin, layer uint8) Message {
	return Message{Origin: o, Type: EventLayerSync, Payload: LayerPayload{Layer: layer}}
}

func NewLayerDesync(o Origin, layer uint8) Message {
	return Message{Origin: o, Type: EventLayerDesync, Payload: LayerPayload{Layer: layer}}
}

func NewModSync(o Origin, mask uint8) Message {
	return Message{Origin: o, Type: EventModSync, Payload: ModifierPayload{Mask: mask}}
}

func NewModDesync(o Origin, mask uint8) Message {
	return Message{Origin: o, Type: EventModDesync, Payload: ModifierPayload{Mask: mask}}
}

func NewConsumer(o Origin, c hid.ConsumerReport) Message {
	return Message{Origin: o, Type: EventConsumer, Payload: ConsumerPayload{Report: c}}
}

func NewHeartbeatRequest(o Origin) Message {
	return Message{Origin: o, Type: EventHeartbeatRequest, Payload: EmptyPayload{}}
}

func NewHeartbeatResponse(o Origin) Message {
	return Message{Origin: o, Type: EventHeartbeatResponse, Payload: EmptyPayload{}}
}

// payloadMatches reports whether p is the variant carried by t.
func payloadMatches(t EventType, p Payload) bool {
	switch t {
	case EventConn:
		_, ok := p.(FlagPayload)
		return ok
	case EventTap, EventBriefTap:
		_, ok := p.(ReportPayload)
		return ok
	case EventLayerSync, EventLayerDesync:
		_, ok := p.(LayerPayload)
		return ok
	case EventModSync, EventModDesync:
		_, ok := p.(ModifierPayload)
		return ok
	case EventConsumer:
		_, ok := p.(ConsumerPayload)
		return ok
	case EventHeartbeatRequest, EventHeartbeatResponse:
		_, ok := p.(EmptyPayload)
		return ok
	}
	return false
}

// MarshalTo writes the record layout of m into b, which must hold at least
// RecordSize bytes.
func (m Message) MarshalTo(b []byte) error {
	if len(b) < RecordSize {
		return ErrInvalidPayload
	}
	if m.Origin > OriginSecondary {
		return fmt.Errorf("%w: %d", ErrUnknownOrigin, m.Origin)
	}
	if !m.Type.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownEvent, m.Type)
	}
	if m.Payload == nil || !payloadMatches(m.Type, m.Payload) {
		return fmt.Errorf("%w: %s with %T", ErrPayloadMismatch, m.Type, m.Payload)
	}
	b[0] = byte(m.Origin)
	b[1] = byte(m.Type)
	clear(b[2:RecordSize])
	m.Payload.put(b[2:RecordSize])
	return nil
}

// MarshalBinary returns the RecordSize-byte wire form of m.
func (m Message) MarshalBinary() ([]byte, error) {
	b := make([]byte, RecordSize)
	if err := m.MarshalTo(b); err != nil {
		return nil, err
	}
	return b, nil
}

// DecodeMessage parses one record. The record must be exactly RecordSize
// bytes and every payload byte beyond the variant's own must be zero, so a
// malformed datagram is rejected before it is interpreted.
func DecodeMessage(b []byte) (Message, error) {
	if len(b) != RecordSize {
		return Message{}, fmt.Errorf("%w: got %d bytes, want %d", ErrShortRecord, len(b), RecordSize)
	}
	origin := Origin(b[0])
	if origin > OriginSecondary {
		return Message{}, fmt.Errorf("%w: %d", ErrUnknownOrigin, b[0])
	}
	t := EventType(b[1])
	pl := b[2:]

	var (
		p    Payload
		used int
	)
	switch t {
	case EventConn:
		if pl[0] > 1 {
			return Message{}, fmt.Errorf("%w: flag %d", ErrPayloadMismatch, pl[0])
		}
		p, used = FlagPayload{On: pl[0] == 1}, 1
	case EventTap, EventBriefTap:
		p, used = ReportPayload{Report: hid.ParseKeyReport(pl)}, hid.KeyReportSize
	case EventLayerSync, EventLayerDesync:
		p, used = LayerPayload{Layer: pl[0]}, 1
	case EventModSync, EventModDesync:
		p, used = ModifierPayload{Mask: pl[0]}, 1
	case EventConsumer:
		p, used = ConsumerPayload{Report: hid.ConsumerReport{Usage: binary.LittleEndian.Uint16(pl)}}, hid.ConsumerReportSize
	case EventHeartbeatRequest, EventHeartbeatResponse:
		p = EmptyPayload{}
	default:
		return Message{}, fmt.Errorf("%w: %d", ErrUnknownEvent, b[1])
	}
	for _, v := range pl[used:] {
		if v != 0 {
			return Message{}, fmt.Errorf("%w: trailing bytes after %s payload", ErrPayloadMismatch, t)
		}
	}
	return Message{Origin: origin, Type: t, Payload: p}, nil
}

func (m Message) String() string {
	switch p := m.Payload.(type) {
	case ReportPayload:
		return fmt.Sprintf("%s/%s mods=%02x keys=% x", m.Origin, m.Type, p.Report.Modifiers, p.Report.Keys[:])
	case ConsumerPayload:
		return fmt.Sprintf("%s/%s usage=%#04x", m.Origin, m.Type, p.Report.Usage)
	case LayerPayload:
		return fmt.Sprintf("%s/%s layer=%d", m.Origin, m.Type, p.Layer)
	case ModifierPayload:
		return fmt.Sprintf("%s/%s mask=%02x", m.Origin, m.Type, p.Mask)
	case FlagPayload:
		return fmt.Sprintf("%s/%s on=%t", m.Origin, m.Type, p.On)
	}
	return fmt.Sprintf("%s/%s", m.Origin, m.Type)
}
