package power

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixed(t *testing.T) {
	f := NewFixed(2 * time.Millisecond)
	assert.Equal(t, 2*time.Millisecond, f.ScanInterval())

	f.NotifyActivity(1234)
	assert.Equal(t, uint32(1234), f.LastActivity())
	assert.Equal(t, 2*time.Millisecond, f.ScanInterval())

	assert.Equal(t, time.Millisecond, NewFixed(0).ScanInterval())
}

func TestAdaptive(t *testing.T) {
	now := uint32(0)
	a := NewAdaptive(AdaptiveConfig{
		Active:    time.Millisecond,
		Idle:      50 * time.Millisecond,
		IdleAfter: 1_000,
		Clock:     func() uint32 { return now },
	})

	assert.Equal(t, time.Millisecond, a.ScanInterval())

	now = 999
	assert.Equal(t, time.Millisecond, a.ScanInterval())
	now = 1_000
	assert.Equal(t, 50*time.Millisecond, a.ScanInterval())

	a.NotifyActivity(now)
	assert.Equal(t, time.Millisecond, a.ScanInterval())
}

func TestAdaptiveDefaults(t *testing.T) {
	a := NewAdaptive(AdaptiveConfig{Idle: time.Microsecond})
	assert.Equal(t, time.Millisecond, a.cfg.Active)
	assert.Equal(t, time.Millisecond, a.cfg.Idle, "idle never scans faster than active")
	assert.Equal(t, uint32(5_000), a.cfg.IdleAfter)
}

var (
	_ Scheduler = (*Fixed)(nil)
	_ Scheduler = (*Adaptive)(nil)
)
