package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	serrors "github.com/meow-stack/stagefan/internal/errors"
	"github.com/meow-stack/stagefan/internal/types"
)

// DefaultRedisPrefix namespaces run keys when no prefix is configured.
const DefaultRedisPrefix = "stagefan:run:"

// noExpiry is the index score for runs saved without a TTL (2100-01-01).
const noExpiry = 4102444800

// RedisStore keeps each run as a JSON value and indexes run IDs in a sorted
// set scored by expiry, so List can prune entries whose value expired.
type RedisStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures a RedisStore.
type Option func(*RedisStore)

// WithTTL sets the expiration for run records.
func WithTTL(ttl time.Duration) Option {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix. An empty prefix keeps the default.
func WithPrefix(prefix string) Option {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisStore connects to a Redis server.
func NewRedisStore(address, password string, db int, opts ...Option) *RedisStore {
	return NewRedisStoreFromClient(backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	}), opts...)
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *backend.Client, opts ...Option) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: DefaultRedisPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "index"
}

// Save writes the run and its index entry in one pipeline.
func (s *RedisStore) Save(ctx context.Context, run *types.Run) error {
	if err := run.Validate(); err != nil {
		return serrors.StoreFailed("save", err)
	}

	data, err := json.Marshal(run)
	if err != nil {
		return serrors.StoreFailed("save", fmt.Errorf("marshaling run: %w", err))
	}

	score := float64(noExpiry)
	if s.ttl > 0 {
		score = float64(time.Now().Add(s.ttl).Unix())
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(run.ID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: run.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return serrors.StoreFailed("save", err)
	}
	return nil
}

// Get retrieves a run by ID.
func (s *RedisStore) Get(ctx context.Context, id string) (*types.Run, error) {
	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, serrors.RunNotFound(id)
		}
		return nil, serrors.StoreFailed("get", err)
	}

	var run types.Run
	if err := json.Unmarshal(val, &run); err != nil {
		return nil, serrors.StoreFailed("get", fmt.Errorf("parsing run %s: %w", id, err))
	}
	return &run, nil
}

// List prunes expired index entries, then loads the remaining runs.
func (s *RedisStore) List(ctx context.Context, filter Filter) ([]*types.Run, error) {
	now := fmt.Sprintf("%d", time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", "("+now).Err(); err != nil {
		return nil, serrors.StoreFailed("list", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, serrors.StoreFailed("list", err)
	}

	var runs []*types.Run
	for _, id := range ids {
		run, err := s.Get(ctx, id)
		if err != nil {
			// Value expired before its index entry was pruned
			if serrors.HasCode(err, serrors.CodeRunNotFound) {
				continue
			}
			return nil, err
		}
		runs = append(runs, run)
	}
	return filter.apply(runs), nil
}

// Delete removes a run and its index entry.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	pipe := s.client.Pipeline()
	del := pipe.Del(ctx, s.key(id))
	pipe.ZRem(ctx, s.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return serrors.StoreFailed("delete", err)
	}
	if del.Val() == 0 {
		return serrors.RunNotFound(id)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
