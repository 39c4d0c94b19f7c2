package main

import (
	"os"

	"overseer.dev/internal/cli"
)

var (
	// These variables are set at build time via -ldflags
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(cli.Execute(version + " (" + commit + ", " + date + ")"))
}
