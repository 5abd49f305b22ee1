// Package sim drives a Primary and a Secondary half against each other on
// a simulated clock and records what the host sees.
package sim

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ErrScript is returned for a script that cannot be run.
var ErrScript = errors.New("invalid script")

// Action is what a script event does.
type Action string

const (
	ActionPress    Action = "press"
	ActionRelease  Action = "release"
	ActionHostUp   Action = "host-up"
	ActionHostDown Action = "host-down"
)

// Event is one scripted input. Row and Col address a switch of the named
// half; host events ignore them.
type Event struct {
	At     uint32 `yaml:"at"`
	Half   string `yaml:"half"`
	Row    int    `yaml:"row"`
	Col    int    `yaml:"col"`
	Action Action `yaml:"action"`
}

// Script is a timed sequence of inputs. Keymap paths are optional; the
// built-in keymaps are used when they are empty.
type Script struct {
	Name   string  `yaml:"name"`
	Until  uint32  `yaml:"until"`
	Left   string  `yaml:"left_keymap,omitempty"`
	Right  string  `yaml:"right_keymap,omitempty"`
	Events []Event `yaml:"events"`
}

// LoadScript reads a script file.
func LoadScript(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := ParseScript(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseScript decodes and validates a script. Unknown fields are errors.
func ParseScript(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var s Script
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScript, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks every event and orders them by time, keeping the file
// order of simultaneous events.
func (s *Script) Validate() error {
	for i, ev := range s.Events {
		switch ev.Action {
		case ActionPress, ActionRelease:
			if ev.Half != "left" && ev.Half != "right" {
				return fmt.Errorf("%w: event %d: half must be left or right, got %q", ErrScript, i, ev.Half)
			}
			if ev.Row < 0 || ev.Col < 0 {
				return fmt.Errorf("%w: event %d: negative position", ErrScript, i)
			}
		case ActionHostUp, ActionHostDown:
		default:
			return fmt.Errorf("%w: event %d: unknown action %q", ErrScript, i, ev.Action)
		}
		if ev.At > s.Until {
			return fmt.Errorf("%w: event %d at %dms is after the end (%dms)", ErrScript, i, ev.At, s.Until)
		}
	}
	slices.SortStableFunc(s.Events, func(a, b Event) int { return cmp.Compare(a.At, b.At) })
	return nil
}
