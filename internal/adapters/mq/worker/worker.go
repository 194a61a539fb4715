// Package worker runs execution jobs from the queue against an Executor
// and hands each result back to the job's reply channel.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/duel/internal/adapters/mq/queue"
	"github.com/okian/duel/internal/domain/model"
	"github.com/okian/duel/pkg/logger"
	"github.com/okian/duel/pkg/metrics"
)

// Default worker configuration constants.
const (
	metricsUpdateInterval = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// ErrStopped is reported on jobs that were still queued when the pool was
// forced to stop.
var ErrStopped = errors.New("executor stopped")

// Executor runs submitted code. Failures are reported inside the result as
// an undetermined verdict, never as an error.
type Executor interface {
	Execute(ctx context.Context, job model.ExecutionJob) model.RunResult
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, job model.ExecutionJob) model.RunResult

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, job model.ExecutionJob) model.RunResult { //nolint:gocritic // hugeParam: see Executor
	return f(ctx, job)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until its queue is drained or it is stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining the queue.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue      Queue
	executor   Executor
	name       string
	jobTimeout time.Duration
	processed  *atomic.Int64

	stopOnce sync.Once
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker reading from q.
func NewInMemoryWorker(q Queue, exec Executor, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		executor:  exec,
		name:      "worker",
		processed: new(atomic.Int64),
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run implements Worker.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			metrics.RecordQueueDequeue()
			w.process(ctx, job)
		}
	}
}

// Shutdown implements Worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, job model.ExecutionJob) { //nolint:gocritic // hugeParam: received by value from the queue
	start := time.Now()

	execCtx := ctx
	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, w.jobTimeout)
		defer cancel()
	}

	result := w.executor.Execute(execCtx, job)
	if result.Elapsed == 0 {
		result.Elapsed = time.Since(start)
	}

	metrics.RecordExecution(string(result.Verdict), float64(result.Elapsed.Milliseconds()))
	if result.Error != "" {
		metrics.RecordErrorByComponent("executor", string(result.Verdict))
		w.logger.Debug(ctx, "execution reported an error",
			logger.String("job_id", job.ID),
			logger.String("session_id", job.SessionID),
			logger.String("error", result.Error),
		)
	}
	w.processed.Add(1)
	reply(job, result)
}

// reply never blocks: the caller may have given up waiting.
func reply(job model.ExecutionJob, result model.RunResult) { //nolint:gocritic // hugeParam: see process
	if job.Reply == nil {
		return
	}
	select {
	case job.Reply <- result:
	default:
	}
}

// Pool manages a fixed set of workers sharing one queue.
type Pool struct {
	workers    []*InMemoryWorker
	queue      Queue
	executor   Executor
	workerOpts []Option

	processed         atomic.Int64
	lastProcessedTime time.Time

	shutdown chan struct{}
	logger   logger.Logger
}

// NewPool creates a pool of workerCount workers. A count below one means
// one worker per CPU.
func NewPool(workerCount int, q Queue, exec Executor, opts ...PoolOption) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers:           make([]*InMemoryWorker, workerCount),
		queue:             q,
		executor:          exec,
		lastProcessedTime: time.Now(),
		shutdown:          make(chan struct{}),
		logger:            logger.Get().Named("worker-pool"),
	}
	for _, opt := range opts {
		opt(p)
	}

	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, p.workerOpts...)
		w := NewInMemoryWorker(q, exec, wopts...)
		w.processed = &p.processed
		p.workers[i] = w
	}

	metrics.UpdateWorkerActiveCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Processed returns how many jobs the pool has finished.
func (p *Pool) Processed() int64 {
	return p.processed.Load()
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	go p.startMetricsUpdater(ctx)
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	last := p.processed.Load()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case now := <-ticker.C:
			cur := p.processed.Load()
			if secs := now.Sub(p.lastProcessedTime).Seconds(); secs > 0 {
				metrics.UpdateWorkerJobsPerSecond(float64(cur-last) / secs)
			}
			last = cur
			p.lastProcessedTime = now
		}
	}
}

// Shutdown closes the queue and lets workers drain what is left. Workers
// still busy when ctx (capped at 30s) expires are stopped, and any jobs
// left behind are answered with ErrStopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	defer close(p.shutdown)

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			w.stopOnce.Do(func() { close(w.shutdown) })
		}
	}
	if !timedOut {
		return nil
	}

	for job := range p.queue.Dequeue(ctx) {
		reply(job, model.RunResult{
			Verdict: model.VerdictUndetermined,
			Error:   ErrStopped.Error(),
		})
	}
	return fmt.Errorf("worker pool: %w", shutdownCtx.Err())
}
