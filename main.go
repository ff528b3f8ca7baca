package main

import (
	"fmt"
	"os"

	"github.com/tphakala/platewatch/cmd"
	"github.com/tphakala/platewatch/internal/conf"
	"github.com/tphakala/platewatch/internal/logger"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=...".
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}
	settings.Version = version
	settings.BuildDate = buildDate

	rootCmd := cmd.RootCommand(settings)
	err = rootCmd.Execute()

	if cerr := logger.Global().Close(); cerr != nil {
		fmt.Fprintf(os.Stderr, "error closing logger: %v\n", cerr)
	}
	if err != nil {
		os.Exit(1)
	}
}
