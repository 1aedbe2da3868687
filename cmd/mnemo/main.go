// Command mnemo assembles token-budgeted context from selected documents
// and asks a language model about them.
package main

import (
	"os"

	"github.com/custodia-labs/mnemo/internal/adapters/driving/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version string

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
