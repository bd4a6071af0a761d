package main

import (
	"fmt"
	"os"

	"github.com/echolens/echolens/internal/cmd"
	"github.com/echolens/echolens/internal/server"
)

// Version information set via ldflags during build.
// Example: go build -ldflags="-X main.version=1.0.0 -X main.commit=abc123 -X main.buildDate=2026-08-29"
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)
	server.SetVersionInfo(version, commit)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
