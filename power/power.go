// Package power supplies the scan cadence and collects activity
// notifications from the resolver.
package power

import (
	"sync/atomic"
	"time"
)

// Scheduler decides how often the matrix is scanned.
type Scheduler interface {
	ScanInterval() time.Duration
	NotifyActivity(ts uint32)
}

// Fixed scans at a constant interval and only remembers the last
// activity.
type Fixed struct {
	interval time.Duration
	last     atomic.Uint32
}

func NewFixed(interval time.Duration) *Fixed {
	if interval <= 0 {
		interval = time.Millisecond
	}
	return &Fixed{interval: interval}
}

func (f *Fixed) ScanInterval() time.Duration { return f.interval }
func (f *Fixed) NotifyActivity(ts uint32)    { f.last.Store(ts) }

// LastActivity returns the timestamp of the most recent notification.
func (f *Fixed) LastActivity() uint32 { return f.last.Load() }

// AdaptiveConfig configures an Adaptive scheduler. Times are in
// milliseconds except the intervals.
type AdaptiveConfig struct {
	Active    time.Duration // while typing
	Idle      time.Duration // after IdleAfter ms without activity
	IdleAfter uint32

	Clock func() uint32
}

func DefaultAdaptiveConfig() AdaptiveConfig {
	return AdaptiveConfig{
		Active:    time.Millisecond,
		Idle:      100 * time.Millisecond,
		IdleAfter: 5_000,
	}
}

// Adaptive scans fast while keys are being used and backs off to the idle
// interval once activity stops.
type Adaptive struct {
	cfg  AdaptiveConfig
	last atomic.Uint32
}

func NewAdaptive(cfg AdaptiveConfig) *Adaptive {
	def := DefaultAdaptiveConfig()
	if cfg.Active <= 0 {
		cfg.Active = def.Active
	}
	if cfg.Idle < cfg.Active {
		cfg.Idle = cfg.Active
	}
	if cfg.IdleAfter == 0 {
		cfg.IdleAfter = def.IdleAfter
	}
	if cfg.Clock == nil {
		start := time.Now()
		cfg.Clock = func() uint32 { return uint32(time.Since(start).Milliseconds()) }
	}
	a := &Adaptive{cfg: cfg}
	a.last.Store(cfg.Clock())
	return a
}

func (a *Adaptive) ScanInterval() time.Duration {
	if a.cfg.Clock()-a.last.Load() >= a.cfg.IdleAfter {
		return a.cfg.Idle
	}
	return a.cfg.Active
}

func (a *Adaptive) NotifyActivity(ts uint32) { a.last.Store(ts) }
