package main

import (
	"fmt"
	"os"

	"github.com/agentx-labs/compkg/internal/cli"
	"github.com/agentx-labs/compkg/internal/errs"
)

// version, commit, and date are set via ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := cli.Execute(version, commit, date); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(errs.KindOf(err).ExitCode())
	}
}
