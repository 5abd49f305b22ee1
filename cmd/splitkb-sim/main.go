// Command splitkb-sim simulates both halves of the keyboard on the host and
// inspects keymaps and sync records.
package main

import (
	"os"

	"github.com/ystepanoff/splitkb/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
