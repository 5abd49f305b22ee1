//go:build !tinygo && !baremetal

// Package config loads the host-side configuration of a half from a TOML
// file with SPLITKB_ environment overrides. Firmware builds compile the
// package defaults in instead.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/ystepanoff/splitkb"
	"github.com/ystepanoff/splitkb/keymap"
	"github.com/ystepanoff/splitkb/layer"
	"github.com/ystepanoff/splitkb/power"
	"github.com/ystepanoff/splitkb/protocol"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SPLITKB_"

var (
	ErrInvalid    = errors.New("invalid configuration")
	ErrUnknownKey = errors.New("unknown configuration key")
)

// Duration is a time.Duration written as a string such as "5ms".
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(time.Duration(d).String()), nil }

func (d Duration) ms() uint32 { return uint32(time.Duration(d) / time.Millisecond) }

type Config struct {
	Role     string `toml:"role"      env:"ROLE"`
	Keymap   string `toml:"keymap"    env:"KEYMAP"`
	LogLevel string `toml:"log_level" env:"LOG_LEVEL"`

	Matrix    Matrix    `toml:"matrix"    envPrefix:"MATRIX_"`
	Resolver  Resolver  `toml:"resolver"  envPrefix:"RESOLVER_"`
	Radio     Radio     `toml:"radio"     envPrefix:"RADIO_"`
	Heartbeat Heartbeat `toml:"heartbeat" envPrefix:"HEARTBEAT_"`
	Power     Power     `toml:"power"     envPrefix:"POWER_"`
}

type Matrix struct {
	Rows     int      `toml:"rows"     env:"ROWS"`
	Cols     int      `toml:"cols"     env:"COLS"`
	Debounce Duration `toml:"debounce" env:"DEBOUNCE"`
	Settle   Duration `toml:"settle"   env:"SETTLE"`
}

type Resolver struct {
	DefaultLayer int      `toml:"default_layer" env:"DEFAULT_LAYER"`
	TapHold      Duration `toml:"tap_hold"      env:"TAP_HOLD"`
	LockTimeout  Duration `toml:"lock_timeout"  env:"LOCK_TIMEOUT"`
}

type Radio struct {
	Channel     uint8    `toml:"channel"      env:"CHANNEL"`
	PrimaryID   uint32   `toml:"primary_id"   env:"PRIMARY_ID"`
	SecondaryID uint32   `toml:"secondary_id" env:"SECONDARY_ID"`
	InboxSize   int      `toml:"inbox_size"   env:"INBOX_SIZE"`
	OutboxSize  int      `toml:"outbox_size"  env:"OUTBOX_SIZE"`
	RxTimeout   Duration `toml:"rx_timeout"   env:"RX_TIMEOUT"`
}

type Heartbeat struct {
	Interval     Duration `toml:"interval"      env:"INTERVAL"`
	StableWindow Duration `toml:"stable_window" env:"STABLE_WINDOW"`
	Timeout      Duration `toml:"timeout"       env:"TIMEOUT"`
}

type Power struct {
	Mode      string   `toml:"mode"       env:"MODE"` // "fixed" or "adaptive"
	Interval  Duration `toml:"interval"   env:"INTERVAL"`
	Idle      Duration `toml:"idle"       env:"IDLE"`
	IdleAfter Duration `toml:"idle_after" env:"IDLE_AFTER"`
}

// Default returns the stock configuration of the Primary.
func Default() *Config {
	return &Config{
		Role:     "primary",
		LogLevel: "info",
		Matrix: Matrix{
			Rows:     keymap.DefaultRows,
			Cols:     keymap.DefaultCols,
			Debounce: Duration(5 * time.Millisecond),
			Settle:   Duration(5 * time.Microsecond),
		},
		Resolver: Resolver{
			TapHold:     Duration(150 * time.Millisecond),
			LockTimeout: Duration(20 * time.Millisecond),
		},
		Radio: Radio{
			Channel:     protocol.DefaultChannel,
			PrimaryID:   uint32(splitkb.DefaultPrimaryID),
			SecondaryID: uint32(splitkb.DefaultSecondaryID),
			InboxSize:   6,
			OutboxSize:  16,
			RxTimeout:   Duration(10 * time.Millisecond),
		},
		Heartbeat: Heartbeat{
			Interval:     Duration(30 * time.Second),
			StableWindow: Duration(time.Second),
			Timeout:      Duration(10 * time.Second),
		},
		Power: Power{
			Mode:      "fixed",
			Interval:  Duration(time.Millisecond),
			Idle:      Duration(100 * time.Millisecond),
			IdleAfter: Duration(5 * time.Second),
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKey, undecoded[0])
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no half could run with.
func (c *Config) Validate() error {
	if _, err := c.Origin(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	switch {
	case c.Matrix.Rows <= 0 || c.Matrix.Rows > 255 || c.Matrix.Cols <= 0 || c.Matrix.Cols > 255:
		return fmt.Errorf("%w: matrix %dx%d", ErrInvalid, c.Matrix.Rows, c.Matrix.Cols)
	case c.Matrix.Debounce <= 0:
		return fmt.Errorf("%w: debounce must be positive", ErrInvalid)
	case c.Resolver.DefaultLayer < 0 || c.Resolver.DefaultLayer >= layer.MaxLayers:
		return fmt.Errorf("%w: default layer %d", ErrInvalid, c.Resolver.DefaultLayer)
	case c.Resolver.TapHold.ms() == 0:
		return fmt.Errorf("%w: tap-hold timeout must be at least 1ms", ErrInvalid)
	case c.Radio.Channel > protocol.MaxChannel:
		return fmt.Errorf("%w: radio channel %d", ErrInvalid, c.Radio.Channel)
	case c.Radio.PrimaryID == c.Radio.SecondaryID:
		return fmt.Errorf("%w: both halves use id %#x", ErrInvalid, c.Radio.PrimaryID)
	case c.Radio.InboxSize <= 0 || c.Radio.OutboxSize <= 0:
		return fmt.Errorf("%w: queue sizes must be positive", ErrInvalid)
	case c.Heartbeat.StableWindow.ms() == 0 || c.Heartbeat.Timeout.ms() == 0:
		return fmt.Errorf("%w: heartbeat windows must be at least 1ms", ErrInvalid)
	case c.Heartbeat.StableWindow >= c.Heartbeat.Interval:
		return fmt.Errorf("%w: heartbeat stable window %s not below interval %s",
			ErrInvalid, time.Duration(c.Heartbeat.StableWindow), time.Duration(c.Heartbeat.Interval))
	case c.Heartbeat.Interval <= c.Heartbeat.StableWindow+c.Heartbeat.Timeout:
		// Each request restarts the wait, so Sleeping would never be reached.
		return fmt.Errorf("%w: heartbeat interval %s must exceed stable window plus timeout (%s)",
			ErrInvalid, time.Duration(c.Heartbeat.Interval),
			time.Duration(c.Heartbeat.StableWindow+c.Heartbeat.Timeout))
	}
	switch c.Power.Mode {
	case "fixed", "adaptive":
	default:
		return fmt.Errorf("%w: power mode %q", ErrInvalid, c.Power.Mode)
	}
	if c.Power.Interval <= 0 {
		return fmt.Errorf("%w: scan interval must be positive", ErrInvalid)
	}
	return nil
}

// Origin parses Role.
func (c *Config) Origin() (protocol.Origin, error) {
	switch strings.ToLower(c.Role) {
	case "primary", "right":
		return protocol.OriginPrimary, nil
	case "secondary", "left":
		return protocol.OriginSecondary, nil
	}
	return 0, fmt.Errorf("%w: role %q", ErrInvalid, c.Role)
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalid, c.LogLevel)
	}
	return l, nil
}

// Logger returns a text logger at the configured level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, _ := c.Level()
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Half maps the configuration onto the configuration of a half.
func (c *Config) Half() (splitkb.Config, error) {
	role, err := c.Origin()
	if err != nil {
		return splitkb.Config{}, err
	}
	h := splitkb.DefaultConfig(role)

	h.Matrix.Rows = c.Matrix.Rows
	h.Matrix.Cols = c.Matrix.Cols
	h.Matrix.DebounceMs = c.Matrix.Debounce.ms()
	h.Matrix.Settle = time.Duration(c.Matrix.Settle)

	h.Keyboard.DefaultLayer = c.Resolver.DefaultLayer
	h.Keyboard.TapHoldTimeout = c.Resolver.TapHold.ms()
	h.Keyboard.LockTimeout = time.Duration(c.Resolver.LockTimeout)

	local, peer := splitkb.DeviceID(c.Radio.PrimaryID), splitkb.DeviceID(c.Radio.SecondaryID)
	if role == splitkb.Secondary {
		local, peer = peer, local
	}
	h.Link.Local = local
	h.Link.Peer = peer
	h.Link.Channel = c.Radio.Channel
	h.Link.InboxSize = c.Radio.InboxSize
	h.Link.OutboxSize = c.Radio.OutboxSize
	h.Link.RxTimeout = time.Duration(c.Radio.RxTimeout)

	h.Heartbeat.Interval = c.Heartbeat.Interval.ms()
	h.Heartbeat.StableWindow = c.Heartbeat.StableWindow.ms()
	h.Heartbeat.Timeout = c.Heartbeat.Timeout.ms()

	h.ScanInterval = time.Duration(c.Power.Interval)
	return h, nil
}

// Scheduler builds the configured power scheduler. clock may be nil.
func (c *Config) Scheduler(clock func() uint32) power.Scheduler {
	if c.Power.Mode == "adaptive" {
		return power.NewAdaptive(power.AdaptiveConfig{
			Active:    time.Duration(c.Power.Interval),
			Idle:      time.Duration(c.Power.Idle),
			IdleAfter: c.Power.IdleAfter.ms(),
			Clock:     clock,
		})
	}
	return power.NewFixed(time.Duration(c.Power.Interval))
}

// LoadKeymap loads the configured keymap file, or returns the built-in
// keymap of the configured half.
func (c *Config) LoadKeymap() (*keymap.Keymap, error) {
	if c.Keymap != "" {
		return keymap.LoadFile(c.Keymap)
	}
	role, err := c.Origin()
	if err != nil {
		return nil, err
	}
	if role == splitkb.Secondary {
		return keymap.DefaultLeft(), nil
	}
	return keymap.DefaultRight(), nil
}
