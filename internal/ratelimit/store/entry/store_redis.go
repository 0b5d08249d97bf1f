package entry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ofertas/internal/ratelimit/models"
	"ofertas/pkg/platform/sentinel"
)

const maxTxRetries = 8

// DefaultTTL is the expiry of an untouched entry unless WithTTL raises it.
const DefaultTTL = 2 * time.Hour

// RedisStore keeps limiter entries as JSON values in Redis.
// Concurrent updates of the same key are serialized with WATCH/MULTI.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithTTL sets how long an untouched entry survives in Redis.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewRedisStore constructs a Redis-backed entry store.
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Update loads the entry, applies fn and writes it back in one optimistic transaction.
func (s *RedisStore) Update(ctx context.Context, key string, fn func(*models.Entry) error) error {
	txf := func(tx *redis.Tx) error {
		entry, err := load(ctx, tx, key)
		if err != nil {
			return err
		}
		if err := fn(&entry); err != nil {
			return err
		}
		payload, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal entry: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		return err
	}

	for range maxTxRetries {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("update %s: %w", key, sentinel.ErrConflict)
}

// Get returns the entry for key, or the zero entry.
func (s *RedisStore) Get(ctx context.Context, key string) (models.Entry, error) {
	return load(ctx, s.client, key)
}

// Evict is a no-op: Redis expires untouched entries through their TTL.
func (s *RedisStore) Evict(context.Context, time.Time, time.Duration) (int, error) {
	return 0, nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func load(ctx context.Context, c getter, key string) (models.Entry, error) {
	var entry models.Entry
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return entry, nil
	}
	if err != nil {
		return entry, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, &entry); err != nil {
		return entry, fmt.Errorf("decode %s: %w", key, err)
	}
	return entry, nil
}
