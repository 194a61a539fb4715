package service

import "errors"

// Sentinel kinds for service errors. Domain errors from the match package
// pass through unchanged.
var (
	ErrRunInFlight  = errors.New("a run is already in flight for this player")
	ErrBackpressure = errors.New("executor queue is full")
	ErrNotStarted   = errors.New("service not started")
)
