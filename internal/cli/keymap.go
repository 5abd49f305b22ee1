package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ystepanoff/splitkb/keymap"
)

// NewKeymapCommand creates the keymap command group.
func NewKeymapCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keymap",
		Short: "Check and print keymaps",
	}
	cmd.AddCommand(newKeymapCheckCommand())
	cmd.AddCommand(newKeymapShowCommand(rootOpts))
	return cmd
}

func newKeymapCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Load and validate a keymap file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			km, err := keymap.LoadFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d layers of %dx%d, %d macros\n",
				args[0], km.Layers(), km.Rows(), km.Cols(), len(km.MacroIDs()))
			return nil
		},
	}
}

func newKeymapShowCommand(rootOpts *RootOptions) *cobra.Command {
	var half string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a keymap as YAML",
		Long: `Print a keymap as YAML. Without --half the keymap of the configured role
is printed: the configured keymap file if there is one, the built-in
keymap of that half otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var km *keymap.Keymap
			switch half {
			case "left":
				km = keymap.DefaultLeft()
			case "right":
				km = keymap.DefaultRight()
			case "":
				cfg, err := rootOpts.load()
				if err != nil {
					return err
				}
				if km, err = cfg.LoadKeymap(); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown half %q: must be left or right", half)
			}
			out, err := keymap.Marshal(km)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().StringVar(&half, "half", "", "print the built-in keymap of this half (left|right)")
	return cmd
}
