package sim

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ystepanoff/splitkb"
	"github.com/ystepanoff/splitkb/driver/stub"
	"github.com/ystepanoff/splitkb/heartbeat"
	"github.com/ystepanoff/splitkb/hid"
	"github.com/ystepanoff/splitkb/keymap"
)

var errReport = errors.New("unexpected host report")

// Options adjusts a simulation. Zero values select the stock
// configuration and the built-in keymaps.
type Options struct {
	Primary   *splitkb.Config
	Secondary *splitkb.Config
	Left      *keymap.Keymap
	Right     *keymap.Keymap
	Logger    *slog.Logger
}

// Entry is one line of the trace.
type Entry struct {
	At   uint32
	Text string
}

// Result is the outcome of a run.
type Result struct {
	RunID     uuid.UUID
	Name      string
	Trace     []Entry
	Primary   splitkb.LinkStats
	Secondary splitkb.LinkStats
}

// WriteTrace writes the trace, one entry per line, after a header naming
// the script.
func (r *Result) WriteTrace(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "# %s\n", r.Name); err != nil {
		return err
	}
	for _, e := range r.Trace {
		if _, err := fmt.Fprintf(w, "%5dms %s\n", e.At, e.Text); err != nil {
			return err
		}
	}
	return nil
}

// Run plays s against a Primary and a Secondary joined by an in-memory
// radio. Every simulated millisecond applies the events due, steps both
// halves and then services both radios, so a message sent in one
// millisecond is applied by the other half in the same millisecond.
func Run(s *Script, opts Options) (*Result, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("run_id", id.String())

	left, right, err := keymaps(s, opts)
	if err != nil {
		return nil, err
	}

	r := &runner{res: &Result{RunID: id, Name: s.Name}}
	r.left = newSwitches()
	r.right = newSwitches()
	clock := func() uint32 { return r.now }

	pCfg := halfConfig(opts.Primary, splitkb.Primary, logger)
	sCfg := halfConfig(opts.Secondary, splitkb.Secondary, logger)
	pRadio, sRadio := stub.NewPair()

	r.primary, err = splitkb.New(right, splitkb.Deps{
		GPIO:  r.right,
		Radio: pRadio,
		Host:  &host{r: r},
		Clock: clock,
	}, pCfg)
	if err != nil {
		return nil, fmt.Errorf("primary: %w", err)
	}
	r.secondary, err = splitkb.New(left, splitkb.Deps{
		GPIO:      r.left,
		Radio:     sRadio,
		Indicator: indicator{r: r},
		Clock:     clock,
	}, sCfg)
	if err != nil {
		return nil, fmt.Errorf("secondary: %w", err)
	}

	for _, ev := range s.Events {
		if ev.Action != ActionPress && ev.Action != ActionRelease {
			continue
		}
		km := left
		if ev.Half == "right" {
			km = right
		}
		if ev.Row >= km.Rows() || ev.Col >= km.Cols() {
			return nil, fmt.Errorf("%w: %s (%d,%d) is outside the %dx%d matrix",
				ErrScript, ev.Half, ev.Row, ev.Col, km.Rows(), km.Cols())
		}
	}

	if err := r.primary.Initialise(); err != nil {
		return nil, err
	}
	if err := r.secondary.Initialise(); err != nil {
		return nil, err
	}
	r.primary.SetHostConnected(true)

	logger.Info("simulation started", "script", s.Name, "until_ms", s.Until, "events", len(s.Events))
	r.play(s)
	r.res.Primary = r.primary.Stats()
	r.res.Secondary = r.secondary.Stats()
	logger.Info("simulation finished", "entries", len(r.res.Trace))
	return r.res, nil
}

func keymaps(s *Script, opts Options) (left, right *keymap.Keymap, err error) {
	left, right = opts.Left, opts.Right
	if left == nil {
		if left, err = loadOr(s.Left, keymap.DefaultLeft); err != nil {
			return nil, nil, err
		}
	}
	if right == nil {
		if right, err = loadOr(s.Right, keymap.DefaultRight); err != nil {
			return nil, nil, err
		}
	}
	return left, right, nil
}

func loadOr(path string, def func() *keymap.Keymap) (*keymap.Keymap, error) {
	if path == "" {
		return def(), nil
	}
	return keymap.LoadFile(path)
}

func halfConfig(base *splitkb.Config, role splitkb.Origin, logger *slog.Logger) splitkb.Config {
	cfg := splitkb.DefaultConfig(role)
	if base != nil {
		cfg = *base
	}
	cfg.Role = role
	cfg.Matrix.Delay = func(time.Duration) {}
	cfg.Logger = logger
	cfg.Matrix.Logger = nil
	cfg.Link.Logger = nil
	cfg.Keyboard.Logger = nil
	cfg.Heartbeat.Logger = nil
	return cfg
}

type runner struct {
	primary, secondary *splitkb.Half
	left, right        *switches
	now                uint32
	res                *Result
}

func (r *runner) play(s *Script) {
	layer := r.primary.Keyboard().ActiveLayer()
	next := 0
	for r.now = 0; ; r.now++ {
		for ; next < len(s.Events) && s.Events[next].At == r.now; next++ {
			r.apply(s.Events[next])
		}
		r.secondary.Step(r.now)
		r.primary.Step(r.now)
		r.secondary.Service(r.now)
		r.primary.Service(r.now)

		if l := r.primary.Keyboard().ActiveLayer(); l != layer {
			layer = l
			r.record("layer %d", l)
		}
		if r.now == s.Until {
			return
		}
	}
}

func (r *runner) apply(ev Event) {
	switch ev.Action {
	case ActionPress, ActionRelease:
		sw := r.left
		if ev.Half == "right" {
			sw = r.right
		}
		sw.set(ev.Row, ev.Col, ev.Action == ActionPress)
	case ActionHostUp:
		r.primary.SetHostConnected(true)
		r.record("host up")
	case ActionHostDown:
		r.primary.SetHostConnected(false)
		r.record("host down")
	}
}

func (r *runner) record(format string, args ...any) {
	r.res.Trace = append(r.res.Trace, Entry{At: r.now, Text: fmt.Sprintf(format, args...)})
}

// switches is a matrix whose closed switches are set by the script.
type switches struct {
	mu     sync.Mutex
	row    int
	closed map[[2]int]bool
}

func newSwitches() *switches {
	return &switches{row: -1, closed: make(map[[2]int]bool)}
}

func (s *switches) SetRow(index int, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if active {
		s.row = index
	} else if s.row == index {
		s.row = -1
	}
}

func (s *switches) ReadCol(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed[[2]int{s.row, index}]
}

func (s *switches) set(row, col int, closed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed[[2]int{row, col}] = closed
}

// host records the reports the Primary sends.
type host struct{ r *runner }

func (h *host) SendInputReport(id uint8, data []byte) error {
	switch id {
	case hid.ReportIDKeyboard:
		h.r.record("keys%s", describeKeys(hid.ParseKeyReport(data)))
	case hid.ReportIDConsumer:
		if len(data) < hid.ConsumerReportSize {
			return errReport
		}
		usage := binary.LittleEndian.Uint16(data)
		name := "none"
		if usage != 0 {
			name = keymap.ConsumerName(usage)
		}
		h.r.record("consumer %s", name)
	default:
		return errReport
	}
	return nil
}

func describeKeys(rep hid.KeyReport) string {
	var b strings.Builder
	if rep.Modifiers != 0 {
		b.WriteString(" ")
		b.WriteString(keymap.ModName(rep.Modifiers))
	}
	var names []string
	for _, c := range rep.Keys {
		if c != hid.KeyNone {
			names = append(names, keymap.KeyName(c))
		}
	}
	b.WriteString(" [")
	b.WriteString(strings.Join(names, " "))
	b.WriteString("]")
	return b.String()
}

type indicator struct{ r *runner }

func (i indicator) SetConnectionState(s heartbeat.State) {
	i.r.record("left %s", s)
}
