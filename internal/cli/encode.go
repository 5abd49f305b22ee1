package cli

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ystepanoff/splitkb"
	"github.com/ystepanoff/splitkb/hid"
	"github.com/ystepanoff/splitkb/keymap"
	"github.com/ystepanoff/splitkb/protocol"
)

var errArgs = errors.New("bad arguments")

// CodecOptions holds flags shared by encode and decode.
type CodecOptions struct {
	*RootOptions
	Origin string
	Frame  bool
	Seq    uint32
}

// NewEncodeCommand creates the encode command.
func NewEncodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CodecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "encode <event> [values...]",
		Short: "Encode a sync record",
		Long: `Encode one sync record and print it as hex.

Events and their values:
  conn on|off               tap, brief-tap <keys and modifiers...>
  layer-sync, layer-desync <layer>
  mod-sync, mod-desync <modifiers>
  consumer <usage>          hb-req, hb-res

With --frame the record is wrapped in a radio frame sent by the configured
device id of the origin half.

Example:
  splitkb-sim encode tap LShift A --origin secondary
  splitkb-sim encode layer-sync 1 --frame --seq 7`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(opts, args, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Origin, "origin", "primary", "half that sends the record (primary|secondary)")
	cmd.Flags().BoolVar(&opts.Frame, "frame", false, "wrap the record in a radio frame")
	cmd.Flags().Uint32Var(&opts.Seq, "seq", 0, "frame sequence number")
	return cmd
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CodecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode a sync record, or a radio frame with --frame",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(opts, args[0], cmd)
		},
	}
	cmd.Flags().BoolVar(&opts.Frame, "frame", false, "the bytes are a whole radio frame")
	return cmd
}

func runEncode(opts *CodecOptions, args []string, cmd *cobra.Command) error {
	origin, err := parseOrigin(opts.Origin)
	if err != nil {
		return err
	}
	m, err := buildMessage(origin, args[0], args[1:])
	if err != nil {
		return err
	}
	rec, err := m.MarshalBinary()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "record  % x\n", rec)
	if opts.Frame {
		sender, err := senderID(opts, origin)
		if err != nil {
			return err
		}
		frame := protocol.EncodeFrame(&protocol.Frame{SenderID: sender, Seq: opts.Seq, Payload: rec})
		fmt.Fprintf(out, "frame   % x\n", frame)
	}
	fmt.Fprintf(out, "message %s\n", m)
	return nil
}

func runDecode(opts *CodecOptions, s string, cmd *cobra.Command) error {
	data, err := hex.DecodeString(strings.NewReplacer(" ", "", ":", "").Replace(s))
	if err != nil {
		return fmt.Errorf("%w: %v", errArgs, err)
	}
	out := cmd.OutOrStdout()
	if opts.Frame {
		f := protocol.DecodeFrame(data)
		if f == nil {
			return fmt.Errorf("%w: not a valid frame", errArgs)
		}
		fmt.Fprintf(out, "sender  %#08x\nseq     %d\n", uint32(f.SenderID), f.Seq)
		data = f.Payload
	}
	m, err := protocol.DecodeMessage(data)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "message %s\n", m)
	return nil
}

func parseOrigin(s string) (protocol.Origin, error) {
	switch strings.ToLower(s) {
	case "primary", "right":
		return splitkb.Primary, nil
	case "secondary", "left":
		return splitkb.Secondary, nil
	}
	return 0, fmt.Errorf("%w: origin %q", errArgs, s)
}

func senderID(opts *CodecOptions, origin protocol.Origin) (protocol.DeviceID, error) {
	cfg, err := opts.load()
	if err != nil {
		return 0, err
	}
	if origin == splitkb.Secondary {
		return protocol.DeviceID(cfg.Radio.SecondaryID), nil
	}
	return protocol.DeviceID(cfg.Radio.PrimaryID), nil
}

func eventByName(name string) (protocol.EventType, bool) {
	for t := protocol.EventType(0); t.Valid(); t++ {
		if t.String() == name {
			return t, true
		}
	}
	return 0, false
}

func buildMessage(o protocol.Origin, name string, vals []string) (protocol.Message, error) {
	t, ok := eventByName(strings.ToLower(name))
	if !ok {
		return protocol.Message{}, fmt.Errorf("%w: unknown event %q", errArgs, name)
	}
	want := 1
	switch t {
	case protocol.EventTap, protocol.EventBriefTap:
		want = -1
	case protocol.EventHeartbeatRequest, protocol.EventHeartbeatResponse:
		want = 0
	}
	if want >= 0 && len(vals) != want {
		return protocol.Message{}, fmt.Errorf("%w: %s takes %d value(s), got %d", errArgs, t, want, len(vals))
	}

	switch t {
	case protocol.EventConn:
		on, err := parseFlag(vals[0])
		if err != nil {
			return protocol.Message{}, err
		}
		return protocol.NewConn(o, on), nil
	case protocol.EventTap, protocol.EventBriefTap:
		r, err := parseReport(vals)
		if err != nil {
			return protocol.Message{}, err
		}
		if t == protocol.EventTap {
			return protocol.NewTap(o, r), nil
		}
		return protocol.NewBriefTap(o, r), nil
	case protocol.EventLayerSync, protocol.EventLayerDesync:
		l, err := strconv.ParseUint(vals[0], 10, 8)
		if err != nil {
			return protocol.Message{}, fmt.Errorf("%w: layer %q", errArgs, vals[0])
		}
		if t == protocol.EventLayerSync {
			return protocol.NewLayerSync(o, uint8(l)), nil
		}
		return protocol.NewLayerDesync(o, uint8(l)), nil
	case protocol.EventModSync, protocol.EventModDesync:
		d, err := keymap.Parse(vals[0])
		if err != nil {
			return protocol.Message{}, err
		}
		if d.Kind != keymap.KindModifier {
			return protocol.Message{}, fmt.Errorf("%w: %q is not a modifier", errArgs, vals[0])
		}
		if t == protocol.EventModSync {
			return protocol.NewModSync(o, d.Mod), nil
		}
		return protocol.NewModDesync(o, d.Mod), nil
	case protocol.EventConsumer:
		d, err := keymap.Parse("CONS(" + vals[0] + ")")
		if err != nil {
			return protocol.Message{}, err
		}
		return protocol.NewConsumer(o, hid.ConsumerReport{Usage: d.Usage}), nil
	case protocol.EventHeartbeatRequest:
		return protocol.NewHeartbeatRequest(o), nil
	default:
		return protocol.NewHeartbeatResponse(o), nil
	}
}

func parseFlag(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "up":
		return true, nil
	case "off", "down":
		return false, nil
	}
	on, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%w: flag %q", errArgs, s)
	}
	return on, nil
}

func parseReport(vals []string) (hid.KeyReport, error) {
	var r hid.KeyReport
	for _, v := range vals {
		d, err := keymap.Parse(v)
		if err != nil {
			return r, err
		}
		switch d.Kind {
		case keymap.KindNormal:
			if err := r.Add(d.Key); err != nil {
				return r, err
			}
		case keymap.KindModifier:
			r.SetModifier(d.Mod)
		default:
			return r, fmt.Errorf("%w: %q is neither a key nor a modifier", errArgs, v)
		}
	}
	return r, nil
}
