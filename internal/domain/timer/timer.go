// Package timer computes round deadlines and remaining time from stored
// timestamps. It holds no state.
package timer

import "time"

// Deadline returns the instant a round started at now with budget d expires.
func Deadline(now time.Time, d time.Duration) time.Time {
	return now.Add(d)
}

// Remaining returns max(0, deadline-now). A zero deadline has no time left.
func Remaining(deadline, now time.Time) time.Duration {
	if deadline.IsZero() {
		return 0
	}
	if left := deadline.Sub(now); left > 0 {
		return left
	}
	return 0
}

// Expired reports whether a set deadline has been reached.
func Expired(deadline, now time.Time) bool {
	return !deadline.IsZero() && !now.Before(deadline)
}

// Seconds floors d to whole seconds, the unit clients count down in.
func Seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}
