// Package core holds the state of one keyboard half: the pressed-key
// records, the layer flags and the HID reports. Local matrix events and
// inbound sync messages are the only two ways to change it, and both go
// through the same lock.
package core

import (
	"errors"
	"log/slog"
	"time"

	"github.com/ystepanoff/splitkb/hid"
	"github.com/ystepanoff/splitkb/keymap"
	"github.com/ystepanoff/splitkb/layer"
	proto "github.com/ystepanoff/splitkb/protocol"
)

// ErrBusy is returned when the state lock could not be taken within
// Config.LockTimeout. The batch or message is dropped.
var ErrBusy = errors.New("keyboard state busy")

// Output receives everything the keyboard emits. On the Primary, Keys and
// Consumer go to the host; on the Secondary they are never called and the
// reports travel to the Primary through Mirror instead.
type Output interface {
	Keys(r hid.KeyReport)
	Consumer(r hid.ConsumerReport)
	Mirror(m proto.Message)
}

// ActivityNotifier is told about every resolved key action.
type ActivityNotifier interface {
	NotifyActivity(ts uint32)
}

type Config struct {
	Role           proto.Origin
	DefaultLayer   int
	TapHoldTimeout uint32        // ms, used when a key carries no override
	LockTimeout    time.Duration // longest wait for the state lock

	Activity ActivityNotifier
	Logger   *slog.Logger
}

func DefaultConfig(role proto.Origin) Config {
	return Config{
		Role:           role,
		TapHoldTimeout: 150,
		LockTimeout:    20 * time.Millisecond,
	}
}

type resolution uint8

const (
	pending resolution = iota
	tapped
	held
)

// record tracks one pressed cell from press to release.
type record struct {
	active bool
	def    keymap.Def
	state  resolution
	t0     uint32
}

// Keyboard is the resolver state of one half.
type Keyboard struct {
	mu     *Lock
	cfg    Config
	km     *keymap.Keymap
	layers *layer.Manager
	out    Output
	log    *slog.Logger

	records []record

	report        hid.KeyReport
	consumer      hid.ConsumerReport
	keysDirty     bool
	consumerDirty bool

	// Primary: the last key report snapshot applied from the Secondary.
	remote hid.KeyReport
	// Secondary: modifiers held on the Primary, kept out of local reports.
	remoteMods uint8
}

// New returns a keyboard over km. The layer count is the keymap's.
func New(km *keymap.Keymap, out Output, cfg Config) *Keyboard {
	def := DefaultConfig(cfg.Role)
	if cfg.TapHoldTimeout == 0 {
		cfg.TapHoldTimeout = def.TapHoldTimeout
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = def.LockTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Keyboard{
		mu:      NewLock(),
		cfg:     cfg,
		km:      km,
		layers:  layer.New(km.Layers(), cfg.DefaultLayer),
		out:     out,
		log:     logger.With("component", "resolver", "role", cfg.Role.String()),
		records: make([]record, km.Rows()*km.Cols()),
	}
}

// Role reports which half this keyboard is.
func (k *Keyboard) Role() proto.Origin { return k.cfg.Role }

// Report returns a copy of the local key report.
func (k *Keyboard) Report() hid.KeyReport {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.report
}

// ConsumerReport returns a copy of the local consumer report.
func (k *Keyboard) ConsumerReport() hid.ConsumerReport {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.consumer
}

// ActiveLayer returns the layer new presses resolve against.
func (k *Keyboard) ActiveLayer() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.layers.Active()
}

// BaseLayer returns the persistent base layer.
func (k *Keyboard) BaseLayer() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.layers.Base()
}

// RemoteModifiers returns the modifiers the Primary reported as held.
// Always zero on the Primary.
func (k *Keyboard) RemoteModifiers() uint8 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.remoteMods
}

// Reset releases everything: records, reports and layers. Held layers and
// modifiers are desynced so the other half lets go of them once the link
// is back.
func (k *Keyboard) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	for i := range k.records {
		rec := &k.records[i]
		switch {
		case !rec.active:
		case rec.state == held:
			k.unhold(rec)
		case rec.def.Kind == keymap.KindLayerMomentary:
			if k.layers.DeactivateMomentary(int(rec.def.Layer)) {
				k.out.Mirror(proto.NewLayerDesync(k.cfg.Role, rec.def.Layer))
			}
		}
	}
	clear(k.records)
	k.report.Clear()
	k.consumer.Clear()
	k.remote.Clear()
	k.remoteMods = 0
	k.layers.Reset()
	k.keysDirty, k.consumerDirty = true, true
	k.flush()
}

// DropRemote forgets the Secondary's last key snapshot and reports whether
// anything was released. Keys pressed on this half stay down.
func (k *Keyboard) DropRemote() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.remote.Len() == 0 && k.remote.Modifiers == 0 {
		return false
	}
	k.log.Info("dropping secondary snapshot", "keys", k.remote.Len(), "mods", k.remote.Modifiers)
	k.merge(hid.KeyReport{})
	k.flush()
	return true
}

func (k *Keyboard) cell(row, col uint8) (*record, bool) {
	r, c := int(row), int(col)
	if r >= k.km.Rows() || c >= k.km.Cols() {
		return nil, false
	}
	return &k.records[r*k.km.Cols()+c], true
}

func (k *Keyboard) notify(now uint32) {
	if k.cfg.Activity != nil {
		k.cfg.Activity.NotifyActivity(now)
	}
}

func (k *Keyboard) addKey(code uint8) {
	if code == hid.KeyNone || k.report.Contains(code) {
		return
	}
	if err := k.report.Add(code); err != nil {
		k.log.Warn("dropping key", "key", keymap.KeyName(code), "err", err)
		return
	}
	k.keysDirty = true
}

func (k *Keyboard) removeKey(code uint8) {
	if !k.report.Contains(code) {
		return
	}
	k.report.Remove(code)
	k.keysDirty = true
}

func (k *Keyboard) setMods(mask uint8) {
	if k.report.Modifiers&mask == mask {
		return
	}
	k.report.SetModifier(mask)
	k.keysDirty = true
}

func (k *Keyboard) clearMods(mask uint8) {
	if k.report.Modifiers&mask == 0 {
		return
	}
	k.report.ClearModifier(mask)
	k.keysDirty = true
}

func (k *Keyboard) setConsumer(usage uint16) {
	if k.consumer.Usage == usage {
		return
	}
	k.consumer.Set(usage)
	k.consumerDirty = true
}

// flush publishes whichever reports changed since the last flush.
func (k *Keyboard) flush() {
	if k.keysDirty {
		k.keysDirty = false
		k.publishKeys(proto.EventTap)
	}
	if k.consumerDirty {
		k.consumerDirty = false
		if k.cfg.Role == proto.OriginPrimary {
			k.out.Consumer(k.consumer)
		} else {
			k.out.Mirror(proto.NewConsumer(k.cfg.Role, k.consumer))
		}
	}
}

func (k *Keyboard) publishKeys(t proto.EventType) {
	if k.cfg.Role == proto.OriginPrimary {
		k.out.Keys(k.report)
		return
	}
	if t == proto.EventBriefTap {
		k.out.Mirror(proto.NewBriefTap(k.cfg.Role, k.report))
	} else {
		k.out.Mirror(proto.NewTap(k.cfg.Role, k.report))
	}
}

// briefTap types code as a discrete press and release. On the Primary the
// host sees two reports; the Secondary sends one brief-tap snapshot and
// the Primary expands it. A code that is already down is retyped as a
// release then a press.
func (k *Keyboard) briefTap(code uint8) {
	if code == hid.KeyNone {
		return
	}
	k.flush()
	if k.report.Contains(code) {
		// Already down: release it and press it again.
		k.log.Debug("retyping held key", "key", keymap.KeyName(code))
		k.report.Remove(code)
		k.publishKeys(proto.EventTap)
		_ = k.report.Add(code)
		k.publishKeys(proto.EventTap)
		return
	}
	if err := k.report.Add(code); err != nil {
		k.log.Warn("dropping brief tap", "key", keymap.KeyName(code), "err", err)
		return
	}
	k.publishKeys(proto.EventBriefTap)
	k.report.Remove(code)
	if k.cfg.Role == proto.OriginPrimary {
		k.out.Keys(k.report)
	}
}
