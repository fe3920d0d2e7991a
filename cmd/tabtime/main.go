// Command tabtime attributes browsing time to the focused tab, serves the
// ingestion and analytics API and reports on the stored records.
package main

import (
	"os"

	"github.com/runnerr0/tabtime/internal/cli"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := cli.Run(version); err != nil {
		os.Exit(1)
	}
}
