package splitkb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ystepanoff/splitkb/core"
	"github.com/ystepanoff/splitkb/heartbeat"
	"github.com/ystepanoff/splitkb/hid"
	"github.com/ystepanoff/splitkb/keymap"
	"github.com/ystepanoff/splitkb/matrix"
	"github.com/ystepanoff/splitkb/power"
	"github.com/ystepanoff/splitkb/protocol"
	"github.com/ystepanoff/splitkb/transport"
)

// ErrConfig is returned by New when the parts of a half do not fit
// together.
var ErrConfig = errors.New("invalid half configuration")

// Config gathers the configuration of every part of a half.
type Config struct {
	Role         Origin
	Matrix       matrix.Config
	Keyboard     core.Config
	Link         transport.Config
	Heartbeat    heartbeat.Config
	ScanInterval time.Duration // used when no power scheduler is supplied

	Logger *slog.Logger
}

// DefaultConfig returns the stock configuration of the given half.
func DefaultConfig(role Origin) Config {
	local, peer := DefaultPrimaryID, DefaultSecondaryID
	if role == Secondary {
		local, peer = peer, local
	}
	return Config{
		Role:         role,
		Matrix:       matrix.DefaultConfig(),
		Keyboard:     core.DefaultConfig(role),
		Link:         transport.DefaultConfig(local, peer),
		Heartbeat:    heartbeat.DefaultConfig(),
		ScanInterval: time.Millisecond,
	}
}

// Deps are the hardware collaborators of a half. Host is required on the
// Primary and ignored on the Secondary; Power, Indicator and Clock are
// optional.
type Deps struct {
	GPIO      matrix.GPIO
	Radio     transport.RadioDriver
	Host      hid.Transport
	Power     power.Scheduler
	Indicator heartbeat.Indicator
	Clock     func() uint32 // milliseconds
}

// Half is one running half of the keyboard.
type Half struct {
	cfg     Config
	scanner *matrix.Scanner
	kb      *core.Keyboard
	link    *transport.Link
	host    hid.Transport
	power   power.Scheduler
	clock   func() uint32
	log     *slog.Logger

	hbMu   sync.Mutex
	hb     *heartbeat.Monitor // Secondary only
	asleep bool               // Step only

	peerTimeout uint32 // Primary only

	hostUp atomic.Bool
}

// New assembles a half over km. The keymap shape must match the matrix.
func New(km *keymap.Keymap, d Deps, cfg Config) (*Half, error) {
	if km == nil || d.GPIO == nil || d.Radio == nil {
		return nil, fmt.Errorf("%w: keymap, GPIO and radio are required", ErrConfig)
	}
	if km.Rows() != cfg.Matrix.Rows || km.Cols() != cfg.Matrix.Cols {
		return nil, fmt.Errorf("%w: keymap is %dx%d, matrix is %dx%d",
			ErrConfig, km.Rows(), km.Cols(), cfg.Matrix.Rows, cfg.Matrix.Cols)
	}
	if cfg.Role == Primary && d.Host == nil {
		return nil, fmt.Errorf("%w: primary needs a HID transport", ErrConfig)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := d.Clock
	if clock == nil {
		start := time.Now()
		clock = func() uint32 { return uint32(time.Since(start).Milliseconds()) }
	}
	sched := d.Power
	if sched == nil {
		sched = power.NewFixed(cfg.ScanInterval)
	}

	h := &Half{
		cfg:   cfg,
		host:  d.Host,
		power: sched,
		clock: clock,
		log:   logger.With("component", "half", "role", cfg.Role.String()),
	}

	if cfg.Matrix.Logger == nil {
		cfg.Matrix.Logger = logger
	}
	h.scanner = matrix.New(d.GPIO, cfg.Matrix)

	if cfg.Link.Logger == nil {
		cfg.Link.Logger = logger
	}
	if cfg.Link.Clock == nil {
		cfg.Link.Clock = clock
	}
	h.link = transport.NewLink(d.Radio, cfg.Link)

	cfg.Keyboard.Role = cfg.Role
	cfg.Keyboard.Activity = sched
	if cfg.Keyboard.Logger == nil {
		cfg.Keyboard.Logger = logger
	}
	h.kb = core.New(km, output{h}, cfg.Keyboard)

	if cfg.Role == Secondary {
		if cfg.Heartbeat.Logger == nil {
			cfg.Heartbeat.Logger = logger
		}
		h.hb = heartbeat.New(d.Indicator, cfg.Heartbeat)
	} else {
		h.peerTimeout = peerTimeout(cfg.Heartbeat)
	}
	return h, nil
}

func (h *Half) Role() Origin             { return h.cfg.Role }
func (h *Half) Keyboard() *core.Keyboard { return h.kb }
func (h *Half) Stats() LinkStats         { return h.link.Stats() }

// Initialise brings up the radio.
func (h *Half) Initialise() error {
	if err := h.link.Initialise(); err != nil {
		return fmt.Errorf("initialise radio: %w", err)
	}
	return nil
}

// ConnectionState returns the heartbeat state. The Primary is always
// Connected.
func (h *Half) ConnectionState() ConnectionState {
	if h.hb == nil {
		return heartbeat.Connected
	}
	h.hbMu.Lock()
	defer h.hbMu.Unlock()
	return h.hb.State()
}

// HostConnected reports whether the Primary has a host. On the Secondary
// it is the last state the Primary announced.
func (h *Half) HostConnected() bool { return h.hostUp.Load() }

// SetHostConnected records a change of the host link on the Primary and
// announces it to the Secondary.
func (h *Half) SetHostConnected(up bool) {
	if h.cfg.Role != Primary {
		return
	}
	if h.hostUp.Swap(up) != up {
		h.log.Info("host connection", "up", up)
	}
	h.send(protocol.NewConn(h.cfg.Role, up))
}

// Paused reports whether local scanning is suspended: on the Secondary
// while the heartbeat sleeps or the Primary has no host.
func (h *Half) Paused() bool {
	if h.hb == nil {
		return false
	}
	if !h.hostUp.Load() {
		return true
	}
	h.hbMu.Lock()
	defer h.hbMu.Unlock()
	return h.hb.Paused()
}

// Step runs one scan iteration at now: heartbeat, timeout sweep, matrix
// scan and event batch. Keys whose timeout has elapsed by now are held
// before a release in the same iteration is seen.
func (h *Half) Step(now uint32) {
	if h.hb != nil {
		h.hbMu.Lock()
		req := h.hb.Tick(now)
		sleeping := h.hb.State() == heartbeat.Sleeping
		h.hbMu.Unlock()
		if req {
			h.send(protocol.NewHeartbeatRequest(h.cfg.Role))
		}
		if sleeping && !h.asleep {
			h.log.Info("primary lost, releasing everything")
			h.kb.Reset()
		}
		h.asleep = sleeping
	}
	if h.peerTimeout > 0 && !h.link.PeerAlive(h.peerTimeout) {
		h.kb.DropRemote()
	}
	if h.Paused() {
		return
	}
	_ = h.kb.Sweep(now)
	if events := h.scanner.Scan(now); len(events) > 0 {
		_ = h.kb.Process(events)
	}
}

// peerTimeout is how long the Primary waits for any frame before it
// treats the Secondary as gone. A Secondary sends a heartbeat request at
// least once per interval, asleep or not.
func peerTimeout(c heartbeat.Config) uint32 {
	def := heartbeat.DefaultConfig()
	if c.Interval == 0 {
		c.Interval = def.Interval
	}
	return c.Interval + c.StableWindow + c.Timeout
}

// Apply handles one message from the other half. Connection and heartbeat
// messages are handled here; everything else goes to the keyboard.
func (h *Half) Apply(m Message, now uint32) {
	if m.Origin == h.cfg.Role {
		h.log.Debug("ignoring own message", "msg", m.String())
		return
	}
	switch m.Type {
	case protocol.EventHeartbeatRequest:
		if h.cfg.Role == Primary {
			h.send(protocol.NewHeartbeatResponse(h.cfg.Role))
			h.send(protocol.NewConn(h.cfg.Role, h.hostUp.Load()))
		}
	case protocol.EventHeartbeatResponse:
		if h.hb != nil {
			h.hbMu.Lock()
			h.hb.Received(now)
			h.hbMu.Unlock()
		}
	case protocol.EventConn:
		if h.cfg.Role != Secondary {
			return
		}
		p, _ := m.Payload.(protocol.FlagPayload)
		if h.hostUp.Swap(p.On) != p.On {
			h.log.Info("primary host connection", "up", p.On)
		}
	default:
		_ = h.kb.Apply(m, now)
	}
}

// Drain applies every message already queued on the link and returns how
// many it applied.
func (h *Half) Drain(now uint32) int {
	n := 0
	for {
		select {
		case m := <-h.link.Inbound():
			h.Apply(m, now)
			n++
		default:
			return n
		}
	}
}

// Service moves the radio without blocking: it transmits the outbox and
// applies everything received. Used instead of Run where the caller owns
// the clock.
func (h *Half) Service(now uint32) {
	h.link.PumpTx()
	for {
		h.link.PollAll()
		if h.Drain(now) == 0 {
			break
		}
	}
	h.link.PumpTx()
}

// Run drives the half until ctx is cancelled: the radio pumps, the scan
// task at the scheduler's cadence and the task draining inbound messages.
func (h *Half) Run(ctx context.Context) error {
	if err := h.Initialise(); err != nil {
		return err
	}
	if h.cfg.Role == Primary {
		h.send(protocol.NewConn(h.cfg.Role, h.hostUp.Load()))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return h.link.Run(ctx) })

	g.Go(func() error {
		t := time.NewTimer(h.power.ScanInterval())
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
				h.Step(h.clock())
				t.Reset(h.power.ScanInterval())
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case m := <-h.link.Inbound():
				h.Apply(m, h.clock())
			}
		}
	})

	return g.Wait()
}

func (h *Half) send(m Message) {
	if err := h.link.Send(m); err != nil {
		h.log.Debug("send failed", "msg", m.String(), "err", err)
	}
}

// output routes keyboard output to the host or the radio.
type output struct{ h *Half }

func (o output) Keys(r hid.KeyReport) {
	o.report(hid.ReportIDKeyboard, r.Bytes())
}

func (o output) Consumer(r hid.ConsumerReport) {
	o.report(hid.ReportIDConsumer, r.Bytes())
}

func (o output) Mirror(m Message) { o.h.send(m) }

func (o output) report(id uint8, data []byte) {
	if o.h.host == nil {
		return
	}
	if !o.h.hostUp.Load() {
		o.h.log.Debug("no host, report dropped", "report_id", id)
		return
	}
	if err := o.h.host.SendInputReport(id, data); err != nil {
		o.h.log.Warn("hid report failed", "report_id", id, "err", err)
	}
}
