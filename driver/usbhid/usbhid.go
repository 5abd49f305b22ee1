//go:build tinygo || baremetal

// Package usbhid sends keyboard and consumer reports over the TinyGo USB
// HID interface.
package usbhid

import (
	"errors"

	usb "machine/usb/hid"

	"github.com/ystepanoff/splitkb/hid"
)

// ErrUnknownReport is returned for report ids the descriptor does not
// carry.
var ErrUnknownReport = errors.New("unknown hid report id")

// Report ids of TinyGo's built-in composite descriptor.
const (
	keyboardReportID = 0x02
	consumerReportID = 0x03
)

type Transport struct {
	buf [1 + hid.KeyReportSize]byte
}

var _ hid.Transport = (*Transport)(nil)

func New() *Transport { return &Transport{} }

func (t *Transport) SendInputReport(reportID uint8, data []byte) error {
	switch reportID {
	case hid.ReportIDKeyboard:
		t.buf[0] = keyboardReportID
	case hid.ReportIDConsumer:
		t.buf[0] = consumerReportID
	default:
		return ErrUnknownReport
	}
	n := copy(t.buf[1:], data)
	usb.SendUSBPacket(t.buf[:1+n])
	return nil
}
