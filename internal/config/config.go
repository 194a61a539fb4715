// Package config defines service configuration and its loading.
//
// Values are layered defaults, then an optional YAML file named by
// DUEL_CONFIG, then DUEL_* environment variables.
package config

import (
	"fmt"
	"runtime"
	"time"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// RoundsTotal is the number of rounds in a match.
	RoundsTotal int `koanf:"rounds_total"`

	// RoundDurationSec is the length of one round.
	RoundDurationSec int `koanf:"round_duration_sec"`

	// ExecTimeoutMS bounds one code execution.
	ExecTimeoutMS int `koanf:"exec_timeout_ms"`

	// ExecutorWorkers sets the number of execution workers.
	ExecutorWorkers int `koanf:"executor_workers"`

	// ExecutorQueueSize bounds pending executions.
	ExecutorQueueSize int `koanf:"executor_queue_size"`

	// PythonBin is the interpreter used to run submissions.
	PythonBin string `koanf:"python_bin"`

	SessionIdleTTLSec int `koanf:"session_idle_ttl_sec"`
	SweepIntervalSec  int `koanf:"sweep_interval_sec"`

	// ShardCount configures the number of shards in the memory store.
	ShardCount int `koanf:"shard_count"`

	// InflightLimit caps concurrently tracked runs.
	InflightLimit int `koanf:"inflight_limit"`

	// AllowedOrigins lists CORS origins. Comma separated in the environment.
	AllowedOrigins []string `koanf:"allowed_origins"`

	// Store selects the session store: memory or redis.
	Store         string `koanf:"store"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// NATSURL enables event publishing when set.
	NATSURL string `koanf:"nats_url"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":5050",
		RoundsTotal:       5,
		RoundDurationSec:  300,
		ExecTimeoutMS:     5000,
		ExecutorWorkers:   runtime.NumCPU(),
		ExecutorQueueSize: 256,
		PythonBin:         "python3",
		SessionIdleTTLSec: 3600,
		SweepIntervalSec:  60,
		ShardCount:        16,
		InflightLimit:     10_000,
		AllowedOrigins:    DefaultAllowedOrigins(),
		Store:             StoreMemory,
		RedisAddr:         "localhost:6379",
	}
}

// DefaultAllowedOrigins are the local frontend dev servers.
func DefaultAllowedOrigins() []string {
	return []string{"http://localhost:5173", "http://localhost:3000"}
}

// RoundDuration returns RoundDurationSec as a duration.
func (c *Config) RoundDuration() time.Duration {
	return time.Duration(c.RoundDurationSec) * time.Second
}

// ExecTimeout returns ExecTimeoutMS as a duration.
func (c *Config) ExecTimeout() time.Duration {
	return time.Duration(c.ExecTimeoutMS) * time.Millisecond
}

// IdleTTL returns SessionIdleTTLSec as a duration.
func (c *Config) IdleTTL() time.Duration {
	return time.Duration(c.SessionIdleTTLSec) * time.Second
}

// SweepInterval returns SweepIntervalSec as a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSec) * time.Second
}

// Validate reports the first invalid field, wrapping ErrInvalidConfig.
func (c *Config) Validate() error {
	positive := []struct {
		name string
		v    int
	}{
		{"rounds_total", c.RoundsTotal},
		{"round_duration_sec", c.RoundDurationSec},
		{"exec_timeout_ms", c.ExecTimeoutMS},
		{"executor_workers", c.ExecutorWorkers},
		{"executor_queue_size", c.ExecutorQueueSize},
		{"session_idle_ttl_sec", c.SessionIdleTTLSec},
		{"sweep_interval_sec", c.SweepIntervalSec},
		{"shard_count", c.ShardCount},
		{"inflight_limit", c.InflightLimit},
	}

	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format %q must be text or json", ErrInvalidConfig, c.LogFormat)
	case c.PythonBin == "":
		return fmt.Errorf("%w: python_bin must not be empty", ErrInvalidConfig)
	case c.Store != StoreMemory && c.Store != StoreRedis:
		return fmt.Errorf("%w: store %q must be memory or redis", ErrInvalidConfig, c.Store)
	case c.Store == StoreRedis && c.RedisAddr == "":
		return fmt.Errorf("%w: redis_addr is required for the redis store", ErrInvalidConfig)
	}
	for _, p := range positive {
		if p.v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, p.name, p.v)
		}
	}
	return nil
}
