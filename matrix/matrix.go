// Package matrix scans a row/column switch matrix and debounces every cell
// into timestamped press and release events.
package matrix

import (
	"log/slog"
	"time"
)

// GPIO drives row lines and samples column lines. Levels are logical:
// active rows select a row, a true column means the switch at the
// intersection with the active row is closed.
type GPIO interface {
	SetRow(index int, active bool)
	ReadCol(index int) bool
}

// Event is one debounced transition. Pressed carries the new level.
type Event struct {
	Row     uint8
	Col     uint8
	Pressed bool
	Time    uint32
}

// Config holds the scanner parameters.
type Config struct {
	Rows       int
	Cols       int
	DebounceMs uint32
	Settle     time.Duration

	// Delay blocks for the settle time. Nil uses time.Sleep.
	Delay  func(time.Duration)
	Logger *slog.Logger
}

// DefaultConfig returns the stock 5x6 matrix with a 5 ms debounce window
// and a 5 µs GPIO settle delay.
func DefaultConfig() Config {
	return Config{
		Rows:       5,
		Cols:       6,
		DebounceMs: 5,
		Settle:     5 * time.Microsecond,
	}
}

type cell struct {
	raw      bool
	current  bool
	previous bool
	stamp    uint32
}

// Scanner owns the per-cell debounce state. It is not safe for concurrent
// use; one scan task drives it.
type Scanner struct {
	gpio   GPIO
	cfg    Config
	cells  []cell
	events []Event
	log    *slog.Logger
}

func New(gpio GPIO, cfg Config) *Scanner {
	if cfg.Delay == nil {
		cfg.Delay = time.Sleep
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		gpio:  gpio,
		cfg:   cfg,
		cells: make([]cell, cfg.Rows*cfg.Cols),
		log:   logger.With("component", "matrix"),
	}
}

// Scan performs one full pass over the matrix at time now (milliseconds)
// and returns the committed transitions in row-major, then column-major
// order. The returned slice is reused by the next call.
func (s *Scanner) Scan(now uint32) []Event {
	s.events = s.events[:0]
	for row := 0; row < s.cfg.Rows; row++ {
		for r := 0; r < s.cfg.Rows; r++ {
			s.gpio.SetRow(r, r == row)
		}
		s.cfg.Delay(s.cfg.Settle)

		for col := 0; col < s.cfg.Cols; col++ {
			level := s.gpio.ReadCol(col)
			c := &s.cells[row*s.cfg.Cols+col]
			if level != c.raw {
				c.raw = level
				c.stamp = now
			}
			if c.current != c.raw && now-c.stamp >= s.cfg.DebounceMs {
				c.previous = c.current
				c.current = c.raw
				s.events = append(s.events, Event{
					Row:     uint8(row),
					Col:     uint8(col),
					Pressed: c.current,
					Time:    now,
				})
				s.log.Debug("transition", "row", row, "col", col, "pressed", c.current)
			}
			s.cfg.Delay(s.cfg.Settle)
		}
	}
	for r := 0; r < s.cfg.Rows; r++ {
		s.gpio.SetRow(r, false)
	}
	return s.events
}

// Pressed reports the debounced level of a cell.
func (s *Scanner) Pressed(row, col int) bool {
	if row < 0 || row >= s.cfg.Rows || col < 0 || col >= s.cfg.Cols {
		return false
	}
	return s.cells[row*s.cfg.Cols+col].current
}

// Rows returns the number of matrix rows.
func (s *Scanner) Rows() int { return s.cfg.Rows }

// Cols returns the number of matrix columns.
func (s *Scanner) Cols() int { return s.cfg.Cols }
