package executor

import (
	"time"

	"github.com/okian/duel/pkg/logger"
)

// Default runner configuration constants.
const (
	defaultPythonBin = "python3"
	defaultTimeout   = 5 * time.Second
	defaultMaxOutput = 64 << 10
)

// Option applies a configuration option to the PythonRunner.
type Option func(*PythonRunner)

// WithPythonBin sets the interpreter to run.
func WithPythonBin(bin string) Option {
	return func(r *PythonRunner) {
		if bin != "" {
			r.bin = bin
		}
	}
}

// WithTimeout bounds a single execution.
func WithTimeout(d time.Duration) Option {
	return func(r *PythonRunner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithMaxOutput caps captured output in bytes.
func WithMaxOutput(n int) Option {
	return func(r *PythonRunner) {
		if n > 0 {
			r.maxOutput = n
		}
	}
}

// WithLogger sets a custom logger for the runner.
func WithLogger(l logger.Logger) Option {
	return func(r *PythonRunner) {
		if l != nil {
			r.logger = l
		}
	}
}
