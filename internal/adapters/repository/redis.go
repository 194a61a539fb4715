package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/duel/internal/domain/model"
	"github.com/okian/duel/pkg/metrics"
)

// RedisStore keeps each session as one JSON value under
// <prefix>:session:<id>, plus a sorted set <prefix>:sessions:idle scored by
// last update time for idle sweeps.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{rdb: rdb, prefix: defaultKeyPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(id string) string {
	return s.prefix + ":session:" + id
}

func (s *RedisStore) idleKey() string {
	return s.prefix + ":sessions:idle"
}

func encode(sess *model.Session) ([]byte, error) {
	raw, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w: %v", sess.ID, ErrCodec, err)
	}
	return raw, nil
}

// Create implements Store.
func (s *RedisStore) Create(ctx context.Context, sess *model.Session) error {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("create", float64(time.Since(start).Microseconds())/1000) }()

	raw, err := encode(sess)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetNX(ctx, s.key(sess.ID), raw, 0).Result()
	if err != nil {
		return fmt.Errorf("create %s: %w", sess.ID, err)
	}
	if !ok {
		return fmt.Errorf("create %s: %w", sess.ID, ErrExists)
	}
	return s.touch(ctx, sess)
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, id string) (*model.Session, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("load", float64(time.Since(start).Microseconds())/1000) }()

	raw, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", id, err)
	}
	var sess model.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode %s: %w: %v", id, ErrCodec, err)
	}
	return &sess, nil
}

// Save implements Store. SET XX keeps a concurrently swept session deleted.
func (s *RedisStore) Save(ctx context.Context, sess *model.Session) error {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("save", float64(time.Since(start).Microseconds())/1000) }()

	raw, err := encode(sess)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetXX(ctx, s.key(sess.ID), raw, 0).Result()
	if err != nil {
		return fmt.Errorf("save %s: %w", sess.ID, err)
	}
	if !ok {
		return fmt.Errorf("save %s: %w", sess.ID, ErrNotFound)
	}
	return s.touch(ctx, sess)
}

func (s *RedisStore) touch(ctx context.Context, sess *model.Session) error {
	z := redis.Z{Score: float64(sess.UpdatedAt.UnixMilli()), Member: sess.ID}
	if err := s.rdb.ZAdd(ctx, s.idleKey(), z).Err(); err != nil {
		return fmt.Errorf("index %s: %w", sess.ID, err)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(id))
		pipe.ZRem(ctx, s.idleKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

// IdleSince implements Store.
func (s *RedisStore) IdleSince(ctx context.Context, cutoff time.Time) ([]string, error) {
	ids, err := s.rdb.ZRangeByScore(ctx, s.idleKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("idle sessions: %w", err)
	}
	return ids, nil
}

// Count implements Store. Errors count as an empty store.
func (s *RedisStore) Count(ctx context.Context) int {
	n, err := s.rdb.ZCard(ctx, s.idleKey()).Result()
	if err != nil {
		return 0
	}
	return int(n)
}
