//go:build tinygo || baremetal

// Package pins scans a diode matrix wired to GPIO pins: rows are driven
// low to select them and columns read low through their pull-ups when a
// switch on the selected row is closed.
package pins

import (
	"machine"

	"github.com/ystepanoff/splitkb/heartbeat"
	"github.com/ystepanoff/splitkb/matrix"
)

type Matrix struct {
	rows []machine.Pin
	cols []machine.Pin
}

var _ matrix.GPIO = (*Matrix)(nil)

// New configures the pins and leaves every row inactive.
func New(rows, cols []machine.Pin) *Matrix {
	for _, p := range rows {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
		p.High()
	}
	for _, p := range cols {
		p.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	}
	return &Matrix{rows: rows, cols: cols}
}

func (m *Matrix) SetRow(index int, active bool) { m.rows[index].Set(!active) }
func (m *Matrix) ReadCol(index int) bool        { return !m.cols[index].Get() }

// LED shows the heartbeat state on a single LED: lit while connected.
type LED struct {
	pin machine.Pin
}

var _ heartbeat.Indicator = LED{}

func NewLED(pin machine.Pin) LED {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pin.Low()
	return LED{pin: pin}
}

func (l LED) SetConnectionState(s heartbeat.State) { l.pin.Set(s == heartbeat.Connected) }
