// Package heartbeat tracks whether the Primary is answering the
// Secondary's heartbeat requests.
package heartbeat

import (
	"log/slog"
)

// State is the connection state shown on the indicator.
type State uint8

const (
	Connected State = iota
	Waiting
	Sleeping
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	case Waiting:
		return "waiting"
	case Sleeping:
		return "sleeping"
	}
	return "unknown"
}

// Indicator displays the connection state.
type Indicator interface {
	SetConnectionState(s State)
}

// Config holds the heartbeat timings in milliseconds.
type Config struct {
	Interval     uint32 // between requests
	StableWindow uint32 // unanswered this long while Connected: Waiting
	Timeout      uint32 // further unanswered time before Sleeping

	Logger *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		Interval:     30_000,
		StableWindow: 1_000,
		Timeout:      10_000,
	}
}

// Monitor is the heartbeat state machine. It starts in Waiting and asks
// for a request on its first tick. It is not safe for concurrent use.
type Monitor struct {
	cfg Config
	ind Indicator
	log *slog.Logger

	state      State
	started    bool
	lastReq    uint32
	unanswered bool
}

// New returns a monitor in the Waiting state. ind may be nil.
func New(ind Indicator, cfg Config) *Monitor {
	def := DefaultConfig()
	if cfg.Interval == 0 {
		cfg.Interval = def.Interval
	}
	if cfg.StableWindow == 0 {
		cfg.StableWindow = def.StableWindow
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &Monitor{
		cfg:   cfg,
		ind:   ind,
		log:   logger.With("component", "heartbeat"),
		state: Waiting,
	}
	if ind != nil {
		ind.SetConnectionState(Waiting)
	}
	return m
}

func (m *Monitor) State() State { return m.state }

// Paused reports whether local scanning should stop.
func (m *Monitor) Paused() bool { return m.state == Sleeping }

// Tick advances the machine to now and reports whether a heartbeat
// request should be sent.
func (m *Monitor) Tick(now uint32) bool {
	send := false
	if !m.started || now-m.lastReq >= m.cfg.Interval {
		m.started = true
		m.lastReq = now
		m.unanswered = true
		send = true
	}
	if !m.unanswered {
		return send
	}

	elapsed := now - m.lastReq
	if m.state == Connected && elapsed >= m.cfg.StableWindow {
		m.transition(Waiting, elapsed)
	}
	if m.state == Waiting && elapsed >= m.cfg.StableWindow+m.cfg.Timeout {
		m.transition(Sleeping, elapsed)
	}
	return send
}

// Received records a heartbeat response. Any state becomes Connected.
func (m *Monitor) Received(now uint32) {
	m.unanswered = false
	if m.state != Connected {
		m.transition(Connected, now-m.lastReq)
	}
}

func (m *Monitor) transition(to State, elapsed uint32) {
	m.log.Info("connection state", "from", m.state.String(), "to", to.String(), "since_request_ms", elapsed)
	m.state = to
	if m.ind != nil {
		m.ind.SetConnectionState(to)
	}
}
