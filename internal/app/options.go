package service

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/duel/internal/adapters/mq/publisher"
	workerpool "github.com/okian/duel/internal/adapters/mq/worker"
	"github.com/okian/duel/internal/adapters/repository"
	"github.com/okian/duel/internal/domain/problems"
	"github.com/okian/duel/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the clock used for deadlines and idle sweeps.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithStore sets the session store. Defaults to a sharded memory store.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithPublisher sets where committed match events go.
func WithPublisher(p publisher.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithExecutor replaces the Python runner.
func WithExecutor(e workerpool.Executor) Option {
	return func(s *Service) {
		if e != nil {
			s.executor = e
		}
	}
}

// WithCatalog sets the problem catalog.
func WithCatalog(c *problems.Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithRoundsTotal sets the number of rounds per match.
func WithRoundsTotal(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.roundsTotal = n
		}
	}
}

// WithRoundDuration sets the length of each round.
func WithRoundDuration(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.roundDuration = d
		}
	}
}

// WithWorkerCount sets the number of executor workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the executor queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithExecTimeout bounds one code execution.
func WithExecTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.execTimeout = d
		}
	}
}

// WithPythonBin sets the interpreter of the default runner.
func WithPythonBin(bin string) Option {
	return func(s *Service) {
		if bin != "" {
			s.pythonBin = bin
		}
	}
}

// WithInflightLimit caps how many runs may be outstanding at once.
func WithInflightLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.inflightLimit = n
		}
	}
}

// WithIdleTTL sets how long an untouched session is kept.
func WithIdleTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.idleTTL = d
		}
	}
}

// WithSweepInterval sets how often idle sessions are swept.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// WithShardCount sets the shard count of the default memory store.
func WithShardCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.shardCount = n
		}
	}
}
