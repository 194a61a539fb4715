// Package service is the session registry and request orchestration layer
// behind the HTTP API. It owns per-session locking, the executor pool and
// idle cleanup; the match rules live in the match package.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/duel/internal/adapters/executor"
	"github.com/okian/duel/internal/adapters/mq/publisher"
	eventqueue "github.com/okian/duel/internal/adapters/mq/queue"
	workerpool "github.com/okian/duel/internal/adapters/mq/worker"
	"github.com/okian/duel/internal/adapters/repository"
	"github.com/okian/duel/internal/domain/dedupe"
	"github.com/okian/duel/internal/domain/match"
	"github.com/okian/duel/internal/domain/model"
	"github.com/okian/duel/internal/domain/problems"
	"github.com/okian/duel/pkg/logger"
	"github.com/okian/duel/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultQueueSize     = 256
	defaultExecTimeout   = 5 * time.Second
	defaultInflightLimit = 10_000
	defaultIdleTTL       = time.Hour
	defaultSweepInterval = time.Minute
	defaultShardCount    = 16
	defaultPythonBin     = "python3"
	replyGrace           = 5 * time.Second
)

// Service implements the dependencies of the HTTP API.
type Service struct {
	mu sync.RWMutex

	// Core components
	clock     clockwork.Clock
	catalog   *problems.Catalog
	machine   *match.Machine
	store     repository.Store
	publisher publisher.Publisher
	inflight  dedupe.Deduper
	queue     eventqueue.Queue
	executor  workerpool.Executor
	pool      *workerpool.Pool

	// Per-session exclusive locks, id -> *sync.Mutex
	locks sync.Map

	// Configuration
	roundsTotal   int
	roundDuration time.Duration
	workerCount   int
	queueSize     int
	execTimeout   time.Duration
	pythonBin     string
	inflightLimit int
	idleTTL       time.Duration
	sweepInterval time.Duration
	shardCount    int

	// State
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	logger logger.Logger
}

// New constructs a Service. Components not supplied through options get
// in-process defaults; nothing runs until Start.
func New(opts ...Option) *Service {
	s := &Service{
		roundsTotal:   match.DefaultRoundsTotal,
		roundDuration: match.DefaultRoundDuration,
		workerCount:   runtime.NumCPU(),
		queueSize:     defaultQueueSize,
		execTimeout:   defaultExecTimeout,
		pythonBin:     defaultPythonBin,
		inflightLimit: defaultInflightLimit,
		idleTTL:       defaultIdleTTL,
		sweepInterval: defaultSweepInterval,
		shardCount:    defaultShardCount,
		stopCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.catalog == nil {
		s.catalog = problems.NewCatalog()
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore(repository.WithShardCount(s.shardCount))
	}
	if s.publisher == nil {
		s.publisher = publisher.Nop{}
	}
	if s.executor == nil {
		s.executor = executor.NewPythonRunner(s.catalog,
			executor.WithPythonBin(s.pythonBin),
			executor.WithTimeout(s.execTimeout),
		)
	}

	s.machine = match.NewMachine(
		match.WithClock(s.clock),
		match.WithProblems(s.catalog),
		match.WithRoundsTotal(s.roundsTotal),
		match.WithRoundDuration(s.roundDuration),
	)
	s.inflight = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.inflightLimit))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.executor,
		workerpool.WithWorkerOptions(workerpool.WithJobTimeout(s.execTimeout)),
	)
	return s
}

// Start launches the executor pool and the idle sweeper.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.pool.Start(ctx)

	s.wg.Add(1)
	go s.sweepLoop(ctx)

	s.started = true
	s.logger.Info(ctx, "match service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("rounds_total", s.roundsTotal),
		logger.Duration("round_duration", s.roundDuration),
		logger.Duration("exec_timeout", s.execTimeout),
	)
	return nil
}

// Stop drains the executor pool and stops the sweeper.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping match service...")

	close(s.stopCh)
	s.wg.Wait()

	err := s.pool.Shutdown(ctx)
	s.started = false
	s.logger.Info(ctx, "match service stopped")
	return err
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

func (s *Service) sweepLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := s.clock.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.Chan():
			if n, err := s.Sweep(ctx); err != nil {
				s.logger.Warn(ctx, "idle sweep failed", logger.Error(err))
			} else if n > 0 {
				s.logger.Debug(ctx, "idle sessions swept", logger.Int("count", n))
			}
		}
	}
}

// Sweep deletes sessions untouched for longer than the idle TTL and
// returns how many were removed.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().Add(-s.idleTTL)
	ids, err := s.store.IdleSince(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep: %w", err)
	}

	removed := 0
	for _, id := range ids {
		ok, err := s.sweepOne(ctx, id, cutoff)
		if err != nil {
			s.logger.Warn(ctx, "failed to sweep session", logger.String("session_id", id), logger.Error(err))
			continue
		}
		if ok {
			removed++
		}
	}
	if removed > 0 {
		metrics.RecordSessionsSwept(removed)
		metrics.UpdateActiveSessions(s.store.Count(ctx))
	}
	return removed, nil
}

func (s *Service) sweepOne(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.store.Load(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		s.locks.CompareAndDelete(id, mu)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !sess.UpdatedAt.Before(cutoff) {
		return false, nil
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return false, err
	}
	s.locks.CompareAndDelete(id, mu)
	return true, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	ctx := context.Background()
	sessions := s.store.Count(ctx)
	queueLen := s.queue.Len(ctx)
	metrics.UpdateActiveSessions(sessions)

	return map[string]any{
		"started":          s.isStarted(),
		"workerCount":      s.workerCount,
		"queueSize":        s.queueSize,
		"queueLength":      queueLen,
		"sessions":         sessions,
		"runsInFlight":     s.inflight.Size(),
		"runsExecuted":     s.pool.Processed(),
		"roundsTotal":      s.roundsTotal,
		"roundDurationSec": int(s.roundDuration / time.Second),
		"problems":         s.catalog.Len(),
		"sessionLocks":     s.lockCount(),
	}
}

func (s *Service) lockFor(id string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (s *Service) lockCount() int {
	n := 0
	s.locks.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (s *Service) load(ctx context.Context, id string) (*model.Session, error) {
	sess, err := s.store.Load(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("session %s: %w", id, match.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return sess, nil
}

func (s *Service) save(ctx context.Context, sess *model.Session) error {
	err := s.store.Save(ctx, sess)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("session %s: %w", sess.ID, match.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return nil
}

// mutate runs op on a private copy of the session under its lock and
// commits the copy whole. An expiry found on the way is committed even
// when op fails, so every caller observes the same concluded round.
func (s *Service) mutate(ctx context.Context, id string, op func(*model.Session) ([]model.MatchEvent, error)) (*model.Session, error) {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	work, err := s.load(ctx, id)
	if err != nil {
		// Unknown ids must not leave a lock behind.
		if errors.Is(err, match.ErrNotFound) {
			s.locks.CompareAndDelete(id, mu)
		}
		return nil, err
	}

	expEvents, expired := s.machine.ResolveExpiry(work)
	var base *model.Session
	if expired {
		base = work.Clone()
	}

	events, opErr := op(work)
	if opErr != nil {
		if expired {
			if err := s.save(ctx, base); err != nil {
				s.logger.Error(ctx, "failed to commit expiry", logger.String("session_id", id), logger.Error(err))
			} else {
				s.emit(ctx, expEvents)
			}
		}
		return nil, opErr
	}

	if err := s.save(ctx, work); err != nil {
		return nil, err
	}
	s.emit(ctx, append(expEvents, events...))
	return work, nil
}

// emit publishes committed events and records their metrics. It runs
// under the session lock, so a session's events are published in order.
func (s *Service) emit(ctx context.Context, events []model.MatchEvent) {
	for _, evt := range events {
		switch evt.Type {
		case model.EventPlayerJoined:
			metrics.RecordPlayerJoined()
		case model.EventRoundEnded:
			outcome := "won"
			if evt.WinnerID == "" {
				outcome = "draw"
			}
			metrics.RecordRoundConcluded(outcome)
		case model.EventMatchCompleted:
			metrics.RecordMatchCompleted()
		}

		if err := s.publisher.Publish(ctx, evt); err != nil {
			s.logger.Warn(ctx, "failed to publish match event",
				logger.String("session_id", evt.SessionID),
				logger.String("type", string(evt.Type)),
				logger.Error(err),
			)
		}
	}
}
