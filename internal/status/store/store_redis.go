package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"ofertas/internal/status/models"
	"ofertas/pkg/platform/sentinel"
)

const (
	recordKeyPrefix = "status:record:"
	indexKey        = "status:index"
	maxTxRetries    = 8
)

// RedisStore keeps each record in a hash and indexes ids by update time in a
// sorted set, so cleanup is a range query.
type RedisStore struct {
	client *redis.Client

	// beforeDelete runs between the expiry read and the delete; tests use it
	// to interleave a concurrent write.
	beforeDelete func()
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Set(ctx context.Context, rec models.Record) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, recordKeyPrefix+rec.ID,
			"status", string(rec.Status),
			"updated_at", rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
		)
		pipe.ZAdd(ctx, indexKey, redis.Z{Score: float64(rec.UpdatedAt.UnixMilli()), Member: rec.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("set status %s: %w", rec.ID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (models.Record, error) {
	fields, err := s.client.HGetAll(ctx, recordKeyPrefix+id).Result()
	if err != nil {
		return models.Record{}, fmt.Errorf("get status %s: %w", id, err)
	}
	if len(fields) == 0 {
		return models.Record{}, sentinel.ErrNotFound
	}
	return decodeRecord(id, fields)
}

// List returns every record, oldest update first.
func (s *RedisStore) List(ctx context.Context) ([]models.Record, error) {
	ids, err := s.client.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list status index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, recordKeyPrefix+id)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("list status records: %w", err)
	}

	out := make([]models.Record, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		rec, err := decodeRecord(ids[i], fields)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// DeleteOlderThan removes records last updated before cutoff. The index is
// watched, so a record rewritten between the range read and the delete
// aborts the pass and the range is read again.
func (s *RedisStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	upper := "(" + strconv.FormatInt(cutoff.UnixMilli(), 10)
	var removed int
	txf := func(tx *redis.Tx) error {
		ids, err := tx.ZRangeByScore(ctx, indexKey, &redis.ZRangeBy{Min: "-inf", Max: upper}).Result()
		if err != nil {
			return fmt.Errorf("find expired statuses: %w", err)
		}
		removed = len(ids)
		if len(ids) == 0 {
			return nil
		}
		if s.beforeDelete != nil {
			s.beforeDelete()
		}

		keys := make([]string, len(ids))
		members := make([]any, len(ids))
		for i, id := range ids {
			keys[i] = recordKeyPrefix + id
			members[i] = id
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, keys...)
			pipe.ZRem(ctx, indexKey, members...)
			return nil
		})
		return err
	}

	for range maxTxRetries {
		err := s.client.Watch(ctx, txf, indexKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("delete expired statuses: %w", err)
		}
		return removed, nil
	}
	return 0, fmt.Errorf("delete expired statuses: %w", sentinel.ErrConflict)
}

func decodeRecord(id string, fields map[string]string) (models.Record, error) {
	st, err := models.ParseStatus(fields["status"])
	if err != nil {
		return models.Record{}, fmt.Errorf("decode status %s: %w", id, err)
	}
	updated, err := time.Parse(time.RFC3339Nano, fields["updated_at"])
	if err != nil {
		return models.Record{}, fmt.Errorf("decode status %s: %w", id, err)
	}
	return models.Record{ID: id, Status: st, UpdatedAt: updated}, nil
}
