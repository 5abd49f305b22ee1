//go:build tinygo || baremetal

package nrf

import (
	proto "github.com/ystepanoff/splitkb/protocol"

	"device/nrf"
)

// StartHFCLK starts the high-frequency crystal the radio needs and waits
// for it to settle.
func StartHFCLK() {
	nrf.CLOCK.EVENTS_HFCLKSTARTED.Set(0)
	nrf.CLOCK.TASKS_HFCLKSTART.Set(1)
	for nrf.CLOCK.EVENTS_HFCLKSTARTED.Get() == 0 {
	}
}

// ConfigureRadio sets mode, power and addressing. Both halves use the
// same address on the same channel and tell each other apart by the
// sender id inside the frame.
func ConfigureRadio(address uint32, prefix byte, channel uint8) error {
	if channel > proto.MaxChannel {
		return proto.ErrInvalidChannel
	}

	nrf.RADIO.POWER.Set(1)
	nrf.RADIO.MODE.Set(nrf.RADIO_MODE_MODE_Nrf_1Mbit)
	nrf.RADIO.TXPOWER.Set(nrf.RADIO_TXPOWER_TXPOWER_0dBm)
	nrf.RADIO.FREQUENCY.Set(uint32(channel))

	nrf.RADIO.BASE0.Set(address)
	nrf.RADIO.PREFIX0.Set(uint32(prefix))
	nrf.RADIO.TXADDRESS.Set(0)
	nrf.RADIO.RXADDRESSES.Set(1)

	// 8-bit length field, no S0/S1: the frame's own Length byte.
	nrf.RADIO.PCNF0.Set(8 << nrf.RADIO_PCNF0_LFLEN_Pos)

	nrf.RADIO.PCNF1.Set(
		(proto.MaxFrameSize << nrf.RADIO_PCNF1_MAXLEN_Pos) |
			(3 << nrf.RADIO_PCNF1_BALEN_Pos) |
			(nrf.RADIO_PCNF1_ENDIAN_Little << nrf.RADIO_PCNF1_ENDIAN_Pos))

	// 16-bit hardware CRC on top of the frame's CRC32.
	nrf.RADIO.CRCCNF.Set(2)
	nrf.RADIO.CRCINIT.Set(0xFFFF)
	nrf.RADIO.CRCPOLY.Set(0x11021)

	return nil
}
