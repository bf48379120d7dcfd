package main

import (
	"fmt"
	"os"

	"github.com/otc-labs/otc/internal/cli"
)

// version, commit, and date are set via ldflags at build time.
var (
	version = "2.0"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := cli.Execute(version, commit, date); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
