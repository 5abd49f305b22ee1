package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ystepanoff/splitkb/internal/sim"
	"github.com/ystepanoff/splitkb/keymap"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Left  string
	Right string
	Stats bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Play a script against both halves",
		Long: `Play a YAML input script against a Primary and a Secondary joined by an
in-memory radio, one simulated millisecond at a time, and print what the
host receives.

Example:
  splitkb-sim run internal/sim/testdata/hold.yaml
  splitkb-sim run --config left.toml --right my-right.yaml script.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Left, "left", "", "keymap file for the left half")
	cmd.Flags().StringVar(&opts.Right, "right", "", "keymap file for the right half")
	cmd.Flags().BoolVar(&opts.Stats, "stats", false, "print link counters after the trace")

	return cmd
}

func runScript(opts *RunOptions, path string, cmd *cobra.Command) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	logger := cfg.Logger(cmd.ErrOrStderr())

	s, err := sim.LoadScript(path)
	if err != nil {
		return err
	}

	primary, secondary, err := halves(cfg, logger)
	if err != nil {
		return err
	}
	simOpts := sim.Options{Primary: &primary, Secondary: &secondary, Logger: logger}
	if opts.Left != "" {
		if simOpts.Left, err = keymap.LoadFile(opts.Left); err != nil {
			return err
		}
	}
	if opts.Right != "" {
		if simOpts.Right, err = keymap.LoadFile(opts.Right); err != nil {
			return err
		}
	}

	res, err := sim.Run(s, simOpts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := res.WriteTrace(out); err != nil {
		return err
	}
	if opts.Stats {
		fmt.Fprintf(out, "# run %s\n", res.RunID)
		fmt.Fprintf(out, "# primary   %+v\n", res.Primary)
		fmt.Fprintf(out, "# secondary %+v\n", res.Secondary)
	}
	return nil
}
