package matrix

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGPIO models a diode matrix: a column reads true when the switch at
// (active row, column) is closed. It also records the settle delays seen
// between driving a row and sampling.
type fakeGPIO struct {
	rows, cols int
	closed     [][]bool
	active     []bool
	settled    bool
	delays     int
	unsettled  int
}

func newFakeGPIO(rows, cols int) *fakeGPIO {
	g := &fakeGPIO{rows: rows, cols: cols, active: make([]bool, rows)}
	g.closed = make([][]bool, rows)
	for i := range g.closed {
		g.closed[i] = make([]bool, cols)
	}
	return g
}

func (g *fakeGPIO) SetRow(index int, active bool) {
	g.active[index] = active
	g.settled = false
}

func (g *fakeGPIO) ReadCol(index int) bool {
	if !g.settled {
		g.unsettled++
	}
	for r := 0; r < g.rows; r++ {
		if g.active[r] && g.closed[r][index] {
			return true
		}
	}
	return false
}

func (g *fakeGPIO) delay(time.Duration) {
	g.delays++
	g.settled = true
}

func newScanner(g *fakeGPIO) *Scanner {
	return New(g, Config{
		Rows:       g.rows,
		Cols:       g.cols,
		DebounceMs: 5,
		Settle:     5 * time.Microsecond,
		Delay:      g.delay,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestScan_CommitsAfterDebounceWindow(t *testing.T) {
	g := newFakeGPIO(2, 2)
	s := newScanner(g)

	g.closed[1][0] = true
	assert.Empty(t, s.Scan(100))
	assert.Empty(t, s.Scan(104))

	events := s.Scan(105)
	require.Len(t, events, 1)
	assert.Equal(t, Event{Row: 1, Col: 0, Pressed: true, Time: 105}, events[0])
	assert.True(t, s.Pressed(1, 0))

	assert.Empty(t, s.Scan(200), "no repeat while held")

	g.closed[1][0] = false
	assert.Empty(t, s.Scan(300))
	events = s.Scan(305)
	require.Len(t, events, 1)
	assert.False(t, events[0].Pressed)
}

func TestScan_BounceShorterThanWindowIsFiltered(t *testing.T) {
	g := newFakeGPIO(1, 3)
	s := newScanner(g)

	for now := uint32(0); now < 100; now += 2 {
		for c := 0; c < 3; c++ {
			g.closed[0][c] = !g.closed[0][c]
		}
		assert.Empty(t, s.Scan(now), "t=%d", now)
	}
}

func TestScan_SimultaneousEventsAreRowMajor(t *testing.T) {
	g := newFakeGPIO(3, 3)
	s := newScanner(g)

	g.closed[2][0] = true
	g.closed[0][2] = true
	g.closed[0][1] = true
	g.closed[1][1] = true
	s.Scan(0)
	events := s.Scan(10)

	var got [][2]uint8
	for _, e := range events {
		got = append(got, [2]uint8{e.Row, e.Col})
	}
	assert.Equal(t, [][2]uint8{{0, 1}, {0, 2}, {1, 1}, {2, 0}}, got)
}

func TestScan_SettlesBeforeSamplingAndReleasesRows(t *testing.T) {
	g := newFakeGPIO(5, 6)
	s := newScanner(g)

	s.Scan(0)

	assert.Zero(t, g.unsettled)
	assert.Equal(t, 5*(1+6), g.delays)
	for r, a := range g.active {
		assert.False(t, a, "row %d left active", r)
	}
}

func TestScan_TimestampWraparound(t *testing.T) {
	g := newFakeGPIO(1, 1)
	s := newScanner(g)

	g.closed[0][0] = true
	assert.Empty(t, s.Scan(0xFFFFFFFE))
	events := s.Scan(3)
	require.Len(t, events, 1)
	assert.True(t, events[0].Pressed)
}
