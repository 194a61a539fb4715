package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/duel/internal/duelsim"
	"github.com/okian/duel/pkg/logger"
)

// Default configuration constants.
const (
	defaultMatches = 50
	defaultTimeout = 30 * time.Second
	defaultRunTime = 10 * time.Minute
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:5050", "Base URL of the service")
		matches = flag.Int("matches", defaultMatches, "Number of matches to play")
		workers = flag.Int("workers", runtime.NumCPU(), "Matches played concurrently")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose = flag.Bool("verbose", false, "Log every round")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		duelsim.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTime)
	defer cancel()

	cfg := &duelsim.Config{
		BaseURL: *baseURL,
		Matches: *matches,
		Workers: *workers,
		Timeout: *timeout,
		Verbose: *verbose,
	}
	if _, err := duelsim.Run(ctx, cfg); err != nil {
		_, _ = os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
