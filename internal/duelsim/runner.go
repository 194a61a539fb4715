package duelsim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/duel/internal/domain/problems"
	"github.com/okian/duel/pkg/logger"
)

// Run plays cfg.Matches matches with cfg.Workers concurrent players and
// returns the collected statistics. It fails if any match failed.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get().Named("duelsim")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting duel simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("matches", cfg.Matches),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout))

	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	workers := max(cfg.Workers, 1)
	jobs := make(chan int, workers*2)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := &player{
				client:  client,
				catalog: problems.NewCatalog(),
				stats:   stats,
				verbose: cfg.Verbose,
				log:     log,
			}
			for range jobs {
				if err := p.playMatch(ctx); err != nil {
					stats.MatchesFailed.Add(1)
					log.Error(ctx, "match failed", logger.Error(err))
					continue
				}
				stats.MatchesCompleted.Add(1)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := 0; i < cfg.Matches; i++ {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()
	wg.Wait()

	stats.Duration = time.Since(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if n := stats.MatchesFailed.Load(); n > 0 {
		return stats, fmt.Errorf("%d of %d matches failed", n, stats.MatchesStarted.Load())
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var matchesPerSecond float64
	if stats.Duration > 0 {
		matchesPerSecond = float64(stats.MatchesCompleted.Load()) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int64("matchesStarted", stats.MatchesStarted.Load()),
		logger.Int64("matchesCompleted", stats.MatchesCompleted.Load()),
		logger.Int64("matchesFailed", stats.MatchesFailed.Load()),
		logger.Int64("roundsPlayed", stats.RoundsPlayed.Load()),
		logger.Int64("runs", stats.Runs.Load()),
		logger.Int64("lateRuns", stats.LateRuns.Load()),
		logger.Int64("rejected", stats.Rejected.Load()),
		logger.Duration("duration", stats.Duration),
		logger.Float64("matchesPerSecond", matchesPerSecond))
}
