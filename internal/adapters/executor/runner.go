// Package executor runs player submissions in a Python interpreter and
// grades them against the problem's test cases.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/duel/internal/domain/model"
	"github.com/okian/duel/internal/domain/problems"
	"github.com/okian/duel/pkg/logger"
)

const (
	timeoutOutput = "Error: Code execution timed out"
	waitDelay     = time.Second
)

// Definitions resolves a problem slug to its test cases.
type Definitions interface {
	Lookup(slug string) (problems.Definition, bool)
}

// PythonRunner executes submissions with a local interpreter. The program
// is fed on stdin so nothing touches the filesystem.
type PythonRunner struct {
	defs      Definitions
	bin       string
	timeout   time.Duration
	maxOutput int
	logger    logger.Logger
}

// NewPythonRunner creates a runner grading against defs.
func NewPythonRunner(defs Definitions, opts ...Option) *PythonRunner {
	r := &PythonRunner{
		defs:      defs,
		bin:       defaultPythonBin,
		timeout:   defaultTimeout,
		maxOutput: defaultMaxOutput,
		logger:    logger.Get().Named("executor"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute runs job.Code and grades it. Timeouts, missing interpreters and
// harness failures yield an undetermined verdict with Error set.
func (r *PythonRunner) Execute(ctx context.Context, job model.ExecutionJob) model.RunResult { //nolint:gocritic // hugeParam: jobs travel by value
	start := time.Now()
	result := r.execute(ctx, job)
	result.Elapsed = time.Since(start)
	return result
}

func (r *PythonRunner) execute(ctx context.Context, job model.ExecutionJob) model.RunResult { //nolint:gocritic // hugeParam: see Execute
	def, ok := r.defs.Lookup(job.ProblemSlug)
	if !ok {
		return undetermined("", fmt.Sprintf("unknown problem %q", job.ProblemSlug))
	}

	tag := uuid.NewString()
	program, err := Harness(def, job.Code, tag)
	if err != nil {
		return undetermined("", err.Error())
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	stdout := &capped{max: r.maxOutput}
	stderr := &capped{max: r.maxOutput}
	cmd := exec.CommandContext(runCtx, r.bin, "-")
	cmd.Stdin = strings.NewReader(program)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay

	runErr := cmd.Run()
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return undetermined(timeoutOutput, "execution timed out")
	}
	if ctx.Err() != nil {
		return undetermined("", ctx.Err().Error())
	}

	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		r.logger.Error(ctx, "interpreter failed to start",
			logger.String("bin", r.bin),
			logger.Error(runErr),
		)
		return undetermined("", runErr.Error())
	}

	output := stdout.String()
	if output == "" {
		output = stderr.String()
	}
	report, shown := Parse(output, tag)

	res := model.RunResult{Output: shown, Verdict: model.VerdictIncorrect}
	if report.AllPass(len(def.Cases)) {
		res.Verdict = model.VerdictCorrect
	}
	if exitErr != nil {
		res.Error = lastLine(stderr.String())
		if res.Error == "" {
			res.Error = exitErr.Error()
		}
		res.Verdict = model.VerdictIncorrect
	}
	return res
}

func undetermined(output, msg string) model.RunResult {
	return model.RunResult{Output: output, Verdict: model.VerdictUndetermined, Error: msg}
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// capped keeps the first max bytes written and discards the rest.
type capped struct {
	buf bytes.Buffer
	max int
}

func (c *capped) Write(p []byte) (int, error) {
	if room := c.max - c.buf.Len(); room > 0 {
		if len(p) > room {
			c.buf.Write(p[:room])
		} else {
			c.buf.Write(p)
		}
	}
	return len(p), nil
}

func (c *capped) String() string {
	return c.buf.String()
}
