//go:build integration

package entry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ofertas/internal/ratelimit/models"
	"ofertas/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *RedisStore
	ctx   context.Context
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.ctx = context.Background()
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
	s.store = NewRedisStore(s.redis.Client, WithTTL(time.Minute))
}

func (s *RedisStoreSuite) TestRoundTrip() {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	err := s.store.Update(s.ctx, "ratelimit:u1:daily_offer", func(e *models.Entry) error {
		e.Timestamps = append(e.Timestamps, now)
		e.BlockedUntil = now.Add(30 * time.Minute)
		return nil
	})
	s.Require().NoError(err)

	got, err := s.store.Get(s.ctx, "ratelimit:u1:daily_offer")
	s.Require().NoError(err)
	s.Require().Len(got.Timestamps, 1)
	s.True(now.Equal(got.Timestamps[0]))
	s.True(now.Add(30 * time.Minute).Equal(got.BlockedUntil))

	ttl, err := s.redis.Client.TTL(s.ctx, "ratelimit:u1:daily_offer").Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
}

func (s *RedisStoreSuite) TestConcurrentUpdatesDoNotLoseWrites() {
	const writers = 5
	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.NoError(s.store.Update(s.ctx, "ratelimit:u2:daily_offer", func(e *models.Entry) error {
				e.Timestamps = append(e.Timestamps, time.Now())
				return nil
			}))
		}()
	}
	wg.Wait()

	got, err := s.store.Get(s.ctx, "ratelimit:u2:daily_offer")
	s.Require().NoError(err)
	s.Len(got.Timestamps, writers)
}

func (s *RedisStoreSuite) TestTTLFollowsConfiguredRetention() {
	long := NewRedisStore(s.redis.Client, WithTTL(12*time.Hour))
	s.Require().NoError(long.Update(s.ctx, "ratelimit:u3:daily_offer", func(e *models.Entry) error {
		e.BlockedUntil = time.Now().Add(12 * time.Hour)
		return nil
	}))

	ttl, err := s.redis.Client.TTL(s.ctx, "ratelimit:u3:daily_offer").Result()
	s.Require().NoError(err)
	s.Greater(ttl, DefaultTTL)
}
