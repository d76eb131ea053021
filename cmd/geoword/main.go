package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/runnerr0/geoword/internal/cli"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	// A .env in the working directory may carry API keys; a missing one is fine.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("reading .env", "error", err)
	}

	if err := cli.Run(version); err != nil {
		os.Exit(1)
	}
}
