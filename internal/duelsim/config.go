// Package duelsim drives complete matches against a running duel server
// and checks every observable outcome along the way.
package duelsim

import (
	"sync/atomic"
	"time"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL string        // Base URL of the service
	Matches int           // Number of matches to play
	Workers int           // Matches played concurrently
	Timeout time.Duration // HTTP request timeout
	Verbose bool          // Log every round
}

// Stats holds simulation counters. Fields are updated concurrently.
type Stats struct {
	MatchesStarted   atomic.Int64
	MatchesCompleted atomic.Int64
	MatchesFailed    atomic.Int64
	RoundsPlayed     atomic.Int64
	Runs             atomic.Int64
	LateRuns         atomic.Int64
	Rejected         atomic.Int64
	StartTime        time.Time
	Duration         time.Duration
}
