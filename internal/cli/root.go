// Package cli implements the splitkb-sim command line.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ystepanoff/splitkb"
	"github.com/ystepanoff/splitkb/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "splitkb-sim",
		Short: "Simulate and inspect a split keyboard",
		Long: `Host-side tooling for the split keyboard firmware.

Runs both halves against each other on a simulated clock, checks and prints
keymaps, and encodes sync records as they travel over the radio.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "TOML configuration file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override the configured log level (debug|info|warn|error)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewKeymapCommand(opts))
	cmd.AddCommand(NewEncodeCommand(opts))
	cmd.AddCommand(NewDecodeCommand(opts))

	return cmd
}

// load reads the configuration named by the global flags.
func (o *RootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
		if _, err := cfg.Level(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// halves maps cfg onto the configuration of each half.
func halves(cfg *config.Config, logger *slog.Logger) (primary, secondary splitkb.Config, err error) {
	c := *cfg
	c.Role = "primary"
	if primary, err = c.Half(); err != nil {
		return primary, secondary, fmt.Errorf("primary: %w", err)
	}
	c.Role = "secondary"
	if secondary, err = c.Half(); err != nil {
		return primary, secondary, fmt.Errorf("secondary: %w", err)
	}
	primary.Logger = logger
	secondary.Logger = logger
	return primary, secondary, nil
}
