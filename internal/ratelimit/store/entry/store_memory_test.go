package entry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ofertas/internal/ratelimit/models"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
	s.now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) TestUpdate() {
	s.Run("persists changes when fn succeeds", func() {
		err := s.store.Update(s.ctx, "k:ok", func(e *models.Entry) error {
			e.Timestamps = append(e.Timestamps, s.now)
			return nil
		})
		s.Require().NoError(err)

		got, err := s.store.Get(s.ctx, "k:ok")
		s.Require().NoError(err)
		s.Len(got.Timestamps, 1)
	})

	s.Run("discards changes when fn fails", func() {
		boom := errors.New("boom")
		err := s.store.Update(s.ctx, "k:fail", func(e *models.Entry) error {
			e.Timestamps = append(e.Timestamps, s.now)
			return boom
		})
		s.ErrorIs(err, boom)

		got, err := s.store.Get(s.ctx, "k:fail")
		s.Require().NoError(err)
		s.Empty(got.Timestamps)
	})

	s.Run("concurrent updates of one key are serialized", func() {
		var wg sync.WaitGroup
		for range 100 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = s.store.Update(s.ctx, "k:race", func(e *models.Entry) error {
					e.Timestamps = append(e.Timestamps, s.now)
					return nil
				})
			}()
		}
		wg.Wait()

		got, err := s.store.Get(s.ctx, "k:race")
		s.Require().NoError(err)
		s.Len(got.Timestamps, 100)
	})
}

func (s *InMemoryStoreSuite) TestGetReturnsCopy() {
	s.Require().NoError(s.store.Update(s.ctx, "k:copy", func(e *models.Entry) error {
		e.Timestamps = []time.Time{s.now}
		return nil
	}))

	got, err := s.store.Get(s.ctx, "k:copy")
	s.Require().NoError(err)
	got.Timestamps[0] = time.Time{}

	again, err := s.store.Get(s.ctx, "k:copy")
	s.Require().NoError(err)
	s.Equal(s.now, again.Timestamps[0])
}

func (s *InMemoryStoreSuite) TestEvict() {
	s.Require().NoError(s.store.Update(s.ctx, "k:stale", func(e *models.Entry) error {
		e.Timestamps = []time.Time{s.now.Add(-2 * time.Hour)}
		return nil
	}))
	s.Require().NoError(s.store.Update(s.ctx, "k:fresh", func(e *models.Entry) error {
		e.Timestamps = []time.Time{s.now.Add(-time.Minute)}
		return nil
	}))
	s.Require().NoError(s.store.Update(s.ctx, "k:blocked", func(e *models.Entry) error {
		e.BlockedUntil = s.now.Add(10 * time.Minute)
		return nil
	}))

	removed, err := s.store.Evict(s.ctx, s.now, time.Hour)
	s.Require().NoError(err)
	s.Equal(1, removed)
	s.Equal(2, s.store.Len())
}

func (s *InMemoryStoreSuite) TestUpdateSurvivesEvictionWhileWaiting() {
	stale := s.store.getOrCreate("k:evicted")
	stale.mu.Lock()

	done := make(chan error, 1)
	go func() {
		done <- s.store.Update(s.ctx, "k:evicted", func(e *models.Entry) error {
			e.Timestamps = append(e.Timestamps, s.now)
			return nil
		})
	}()
	// Let the update pick up the stale entry and wait on its lock.
	time.Sleep(20 * time.Millisecond)

	s.store.mu.Lock()
	delete(s.store.entries, "k:evicted")
	s.store.mu.Unlock()
	stale.mu.Unlock()

	s.Require().NoError(<-done)
	got, err := s.store.Get(s.ctx, "k:evicted")
	s.Require().NoError(err)
	s.Len(got.Timestamps, 1, "attempt recorded on the live entry")
	s.Equal(1, s.store.Len())
}
