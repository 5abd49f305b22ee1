//go:build tinygo || baremetal

// Package nrf drives the nRF52 RADIO peripheral in the proprietary
// 1 Mbit mode used between the two halves.
package nrf

import (
	"time"
	"unsafe"

	proto "github.com/ystepanoff/splitkb/protocol"
	"github.com/ystepanoff/splitkb/transport"

	"device/nrf"
	"runtime/volatile"
)

// Driver provides a RadioDriver backed by the real NRF peripheral registers.
// One frame buffer is shared by transmit and receive; the link never does
// both at once.
type Driver struct {
	buffer [proto.MaxFrameSize]byte
}

var _ transport.RadioDriver = (*Driver)(nil)

func New() *Driver { return &Driver{} }

func (d *Driver) StartHFCLK() { StartHFCLK() }

func (d *Driver) Configure(address uint32, prefix byte, channel uint8) error {
	return ConfigureRadio(address, prefix, channel)
}

func (d *Driver) SetChannel(channel uint8) error {
	if channel > proto.MaxChannel {
		return proto.ErrInvalidChannel
	}
	nrf.RADIO.FREQUENCY.Set(uint32(channel))
	return nil
}

func (d *Driver) Tx(data []byte) error {
	if len(data) == 0 || len(data) > proto.MaxFrameSize {
		return proto.ErrInvalidPayload
	}
	copy(d.buffer[:], data)
	d.arm()
	nrf.RADIO.TASKS_TXEN.Set(1)
	wait(&nrf.RADIO.EVENTS_READY)
	nrf.RADIO.TASKS_START.Set(1)
	wait(&nrf.RADIO.EVENTS_END)
	disable()
	return nil
}

// Rx listens for one frame. A non-positive timeout checks once and gives
// up if nothing has arrived.
func (d *Driver) Rx(timeout time.Duration) ([]byte, error) {
	d.arm()
	nrf.RADIO.TASKS_RXEN.Set(1)
	wait(&nrf.RADIO.EVENTS_READY)
	nrf.RADIO.TASKS_START.Set(1)

	start := time.Now()
	for nrf.RADIO.EVENTS_END.Get() == 0 {
		if time.Since(start) >= timeout {
			disable()
			return nil, proto.ErrTimeout
		}
	}
	disable()
	if nrf.RADIO.CRCSTATUS.Get() == 0 {
		return nil, proto.ErrInvalidPayload
	}

	frameLen := int(d.buffer[0]) + 1
	if frameLen > proto.MaxFrameSize {
		frameLen = proto.MaxFrameSize
	}
	out := make([]byte, frameLen)
	copy(out, d.buffer[:frameLen])
	return out, nil
}

func (d *Driver) arm() {
	nrf.RADIO.PACKETPTR.Set(uint32(uintptr(unsafe.Pointer(&d.buffer[0]))))
	nrf.RADIO.EVENTS_READY.Set(0)
	nrf.RADIO.EVENTS_END.Set(0)
}

func wait(event *volatile.Register32) {
	for event.Get() == 0 {
	}
}

func disable() {
	nrf.RADIO.TASKS_DISABLE.Set(1)
	for nrf.RADIO.STATE.Get() != nrf.RADIO_STATE_STATE_Disabled {
	}
}
