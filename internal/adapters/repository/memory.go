package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/duel/internal/domain/model"
	"github.com/okian/duel/pkg/metrics"
)

// MemoryStore keeps sessions in process memory, spread over shards so
// lookups for unrelated sessions rarely contend on the same lock.
type MemoryStore struct {
	shards     []*shard
	shardCount int
}

type shard struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{shardCount: defaultShardCount}
	for _, opt := range opts {
		opt(s)
	}
	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{sessions: make(map[string]*model.Session)}
	}
	return s
}

func (s *MemoryStore) shardFor(id string) *shard {
	return s.shards[xxhash.Sum64String(id)%uint64(len(s.shards))]
}

// Create implements Store.
func (s *MemoryStore) Create(_ context.Context, sess *model.Session) error {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("create", float64(time.Since(start).Microseconds())/1000) }()

	sh := s.shardFor(sess.ID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.sessions[sess.ID]; ok {
		return fmt.Errorf("create %s: %w", sess.ID, ErrExists)
	}
	sh.sessions[sess.ID] = sess.Clone()
	return nil
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, id string) (*model.Session, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("load", float64(time.Since(start).Microseconds())/1000) }()

	sh := s.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	sess, ok := sh.sessions[id]
	if !ok {
		return nil, fmt.Errorf("load %s: %w", id, ErrNotFound)
	}
	return sess.Clone(), nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, sess *model.Session) error {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("save", float64(time.Since(start).Microseconds())/1000) }()

	sh := s.shardFor(sess.ID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.sessions[sess.ID]; !ok {
		return fmt.Errorf("save %s: %w", sess.ID, ErrNotFound)
	}
	sh.sessions[sess.ID] = sess.Clone()
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	delete(sh.sessions, id)
	return nil
}

// IdleSince implements Store.
func (s *MemoryStore) IdleSince(_ context.Context, cutoff time.Time) ([]string, error) {
	var ids []string
	for _, sh := range s.shards {
		sh.mu.RLock()
		for id, sess := range sh.sessions {
			if sess.UpdatedAt.Before(cutoff) {
				ids = append(ids, id)
			}
		}
		sh.mu.RUnlock()
	}
	return ids, nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return total
}
