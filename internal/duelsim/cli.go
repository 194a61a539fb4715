package duelsim

import "os"

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Duel Match Simulator
====================

Plays complete two-player matches against a running duel server and
verifies round winners and the champion of every match.

Usage:
  go run ./cmd/duel-sim [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:5050")
  -matches int
        Number of matches to play (default 50)
  -workers int
        Matches played concurrently (default CPU cores)
  -timeout duration
        HTTP request timeout (default 30s)
  -verbose
        Log every round
  -help
        Show this help message

Examples:
  go run ./cmd/duel-sim -matches 200 -workers 16
`)
}
