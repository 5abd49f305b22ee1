package core

import (
	"github.com/ystepanoff/splitkb/hid"
	"github.com/ystepanoff/splitkb/keymap"
	"github.com/ystepanoff/splitkb/matrix"
	proto "github.com/ystepanoff/splitkb/protocol"
)

// Process resolves one batch of debounced matrix events, in order, and
// publishes the resulting reports. If the state lock is not available in
// time the whole batch is dropped and ErrBusy returned.
func (k *Keyboard) Process(events []matrix.Event) error {
	if len(events) == 0 {
		return nil
	}
	if !k.mu.TryLockFor(k.cfg.LockTimeout) {
		k.log.Warn("state lock timeout, dropping batch", "events", len(events))
		return ErrBusy
	}
	defer k.mu.Unlock()

	for _, ev := range events {
		if ev.Pressed {
			k.press(ev)
		} else {
			k.release(ev)
		}
	}
	k.flush()
	return nil
}

// Sweep resolves as HOLD every pending dual-function key whose timeout has
// elapsed at now. It is meant to run once per scan iteration.
func (k *Keyboard) Sweep(now uint32) error {
	if !k.mu.TryLockFor(k.cfg.LockTimeout) {
		k.log.Warn("state lock timeout, skipping sweep")
		return ErrBusy
	}
	defer k.mu.Unlock()

	for i := range k.records {
		rec := &k.records[i]
		if rec.active && rec.state == pending && rec.def.DualFunction() && k.expired(rec, now) {
			k.hold(rec, now)
		}
	}
	k.flush()
	return nil
}

func (k *Keyboard) expired(rec *record, now uint32) bool {
	return now-rec.t0 >= rec.def.HoldTimeout(k.cfg.TapHoldTimeout)
}

// interrupt resolves every other pending dual-function key before a new
// press is dispatched: as TAP while still inside its window, as HOLD if
// its window has already passed. It reports whether anything resolved.
func (k *Keyboard) interrupt(self *record, now uint32) bool {
	resolved := false
	for i := range k.records {
		rec := &k.records[i]
		if rec == self || !rec.active || rec.state != pending || !rec.def.DualFunction() {
			continue
		}
		if k.expired(rec, now) {
			k.hold(rec, now)
		} else {
			rec.state = tapped
			k.addKey(rec.def.Key)
			k.log.Debug("interrupted, resolved as tap", "key", rec.def.String())
		}
		resolved = true
	}
	return resolved
}

func (k *Keyboard) hold(rec *record, now uint32) {
	rec.state = held
	switch rec.def.Kind {
	case keymap.KindLayerTap:
		k.layers.ActivateMomentary(int(rec.def.Layer))
		k.out.Mirror(proto.NewLayerSync(k.cfg.Role, rec.def.Layer))
	case keymap.KindModTap:
		k.setMods(rec.def.Mod)
		k.out.Mirror(proto.NewModSync(k.cfg.Role, rec.def.Mod))
	}
	k.log.Info("resolved as hold", "key", rec.def.String(), "held_ms", now-rec.t0)
	k.notify(now)
}

func (k *Keyboard) unhold(rec *record) {
	switch rec.def.Kind {
	case keymap.KindLayerTap:
		k.layers.DeactivateMomentary(int(rec.def.Layer))
		k.out.Mirror(proto.NewLayerDesync(k.cfg.Role, rec.def.Layer))
	case keymap.KindModTap:
		k.clearMods(rec.def.Mod)
		k.out.Mirror(proto.NewModDesync(k.cfg.Role, rec.def.Mod))
	}
	k.log.Info("hold released", "key", rec.def.String())
}

func (k *Keyboard) press(ev matrix.Event) {
	rec, ok := k.cell(ev.Row, ev.Col)
	if !ok {
		k.log.Warn("press outside keymap", "row", ev.Row, "col", ev.Col)
		return
	}
	if rec.active {
		k.log.Debug("repeated press ignored", "row", ev.Row, "col", ev.Col)
		return
	}
	if k.interrupt(rec, ev.Time) {
		k.flush()
	}

	def := k.km.Resolve(k.layers.Active(), int(ev.Row), int(ev.Col))
	*rec = record{active: true, def: def, t0: ev.Time}
	k.log.Debug("press", "row", ev.Row, "col", ev.Col, "key", def.String(), "layer", k.layers.Active())

	switch def.Kind {
	case keymap.KindNone:
		return
	case keymap.KindNormal:
		k.addKey(def.Key)
	case keymap.KindModifier:
		k.setMods(def.Mod)
	case keymap.KindShifted:
		k.setMods(hid.ModLeftShift)
		k.addKey(def.Key)
	case keymap.KindConsumer:
		k.setConsumer(def.Usage)
	case keymap.KindLayerMomentary:
		if k.layers.ActivateMomentary(int(def.Layer)) {
			k.out.Mirror(proto.NewLayerSync(k.cfg.Role, def.Layer))
		}
	case keymap.KindLayerToggle:
		k.layers.ToggleBase(int(def.Layer))
		k.log.Info("base layer", "layer", k.layers.Base())
	case keymap.KindMacro:
		seq, ok := k.km.Macro(def.Macro)
		if !ok {
			k.log.Warn("unknown macro", "id", def.Macro)
			return
		}
		for _, code := range seq {
			k.briefTap(code)
		}
	case keymap.KindLayerTap, keymap.KindModTap:
		// pending until released, interrupted or swept
	}
	k.notify(ev.Time)
}

func (k *Keyboard) release(ev matrix.Event) {
	rec, ok := k.cell(ev.Row, ev.Col)
	if !ok || !rec.active {
		k.log.Debug("release without press", "row", ev.Row, "col", ev.Col)
		return
	}
	def := rec.def
	k.log.Debug("release", "row", ev.Row, "col", ev.Col, "key", def.String())

	switch def.Kind {
	case keymap.KindNormal:
		k.removeKey(def.Key)
	case keymap.KindModifier:
		k.clearMods(def.Mod)
	case keymap.KindShifted:
		k.removeKey(def.Key)
		k.clearMods(hid.ModLeftShift)
	case keymap.KindConsumer:
		if k.consumer.Usage == def.Usage {
			k.setConsumer(0)
		}
	case keymap.KindLayerMomentary:
		if k.layers.DeactivateMomentary(int(def.Layer)) {
			k.out.Mirror(proto.NewLayerDesync(k.cfg.Role, def.Layer))
		}
	case keymap.KindLayerTap, keymap.KindModTap:
		switch rec.state {
		case held:
			k.unhold(rec)
		case tapped:
			k.removeKey(def.Key)
		default:
			if k.expired(rec, ev.Time) {
				// The sweep has not caught up with this key yet.
				k.hold(rec, ev.Time)
				k.flush()
				k.unhold(rec)
			} else {
				k.briefTap(def.Key)
			}
		}
	}
	*rec = record{}
	if def.Kind != keymap.KindNone {
		k.notify(ev.Time)
	}
}
