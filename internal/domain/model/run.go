package model

import "time"

// Verdict is the correctness of one execution.
type Verdict string

// Execution verdicts.
const (
	VerdictCorrect      Verdict = "correct"
	VerdictIncorrect    Verdict = "incorrect"
	VerdictUndetermined Verdict = "undetermined" // timeout, crash, no tests ran
)

// RunResult is the outcome of executing a player's code.
type RunResult struct {
	Output  string        `json:"output"`
	Verdict Verdict       `json:"verdict"`
	Elapsed time.Duration `json:"elapsed"`
	Error   string        `json:"error,omitempty"`
	Round   int           `json:"round"`
}

// Correct reports whether the run passed every test.
func (r RunResult) Correct() bool {
	return r.Verdict == VerdictCorrect
}

// ExecutionJob is a unit of work on the executor queue. Reply receives
// exactly one result and must be buffered.
type ExecutionJob struct {
	ID          string
	SessionID   string
	PlayerID    string
	ProblemSlug string
	Signature   string
	Code        string
	Reply       chan RunResult
}
