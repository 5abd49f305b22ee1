package core

import (
	"github.com/ystepanoff/splitkb/hid"
	proto "github.com/ystepanoff/splitkb/protocol"
)

// Apply applies one inbound sync message from the other half through the
// same report and layer entry points local presses use. Syncs and
// snapshots are idempotent: applying the same message twice changes state
// only once. Connection and heartbeat messages are not keyboard state and
// are ignored here.
func (k *Keyboard) Apply(m proto.Message, now uint32) error {
	if m.Origin == k.cfg.Role {
		k.log.Debug("ignoring own message", "msg", m.String())
		return nil
	}
	if !k.mu.TryLockFor(k.cfg.LockTimeout) {
		k.log.Warn("state lock timeout, dropping message", "msg", m.String())
		return ErrBusy
	}
	defer k.mu.Unlock()

	primary := k.cfg.Role == proto.OriginPrimary
	switch p := m.Payload.(type) {
	case proto.ReportPayload:
		if !primary {
			break
		}
		if m.Type == proto.EventBriefTap {
			prev := k.remote
			k.merge(p.Report)
			k.flush()
			k.merge(prev)
		} else {
			k.merge(p.Report)
		}
		k.notify(now)
	case proto.ConsumerPayload:
		if !primary {
			break
		}
		k.setConsumer(p.Report.Usage)
		k.notify(now)
	case proto.LayerPayload:
		var changed bool
		if m.Type == proto.EventLayerSync {
			changed = k.layers.ActivateMomentary(int(p.Layer))
		} else {
			changed = k.layers.DeactivateMomentary(int(p.Layer))
		}
		if changed {
			k.log.Info("layer mirrored", "event", m.Type.String(), "layer", p.Layer, "active", k.layers.Active())
		}
	case proto.ModifierPayload:
		sync := m.Type == proto.EventModSync
		switch {
		case primary && sync:
			k.setMods(p.Mask)
		case primary:
			k.clearMods(p.Mask)
		case sync:
			k.remoteMods |= p.Mask
		default:
			k.remoteMods &^= p.Mask
		}
	default:
		k.log.Debug("not a keyboard event", "msg", m.String())
	}
	k.flush()
	return nil
}

// merge moves the Secondary's contribution to the local report from the
// previous snapshot to next, leaving keys pressed on this half alone.
func (k *Keyboard) merge(next hid.KeyReport) {
	prev := k.remote
	for _, code := range prev.Keys {
		if code != hid.KeyNone && !next.Contains(code) {
			k.removeKey(code)
		}
	}
	k.clearMods(prev.Modifiers &^ next.Modifiers)
	k.setMods(next.Modifiers &^ prev.Modifiers)
	for _, code := range next.Keys {
		if code != hid.KeyNone && !prev.Contains(code) {
			k.addKey(code)
		}
	}
	k.remote = next
}
