package entry

import (
	"context"
	"sync"
	"time"

	"ofertas/internal/ratelimit/models"
)

// InMemoryStore keeps limiter entries in process memory.
// Each key has its own mutex so evaluating one user never waits on another.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[string]*lockedEntry
}

type lockedEntry struct {
	mu    sync.Mutex
	entry models.Entry
}

// NewInMemoryStore creates an empty in-memory entry store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[string]*lockedEntry),
	}
}

// Update runs fn against the entry for key while holding that key's lock.
// Changes are kept only when fn returns nil.
func (s *InMemoryStore) Update(_ context.Context, key string, fn func(*models.Entry) error) error {
	le := s.lock(key)
	defer le.mu.Unlock()

	working := models.Entry{
		Timestamps:   append([]time.Time(nil), le.entry.Timestamps...),
		BlockedUntil: le.entry.BlockedUntil,
	}
	if err := fn(&working); err != nil {
		return err
	}
	le.entry = working
	return nil
}

// Get returns a copy of the entry for key, or the zero entry.
func (s *InMemoryStore) Get(_ context.Context, key string) (models.Entry, error) {
	s.mu.Lock()
	le := s.entries[key]
	s.mu.Unlock()
	if le == nil {
		return models.Entry{}, nil
	}
	le.mu.Lock()
	defer le.mu.Unlock()
	return models.Entry{
		Timestamps:   append([]time.Time(nil), le.entry.Timestamps...),
		BlockedUntil: le.entry.BlockedUntil,
	}, nil
}

// Evict removes entries that have no timestamps within horizon and no active block.
func (s *InMemoryStore) Evict(_ context.Context, now time.Time, horizon time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, le := range s.entries {
		if !le.mu.TryLock() {
			continue
		}
		idle := le.entry.Idle(now, horizon)
		le.mu.Unlock()
		if idle {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of tracked keys.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// lock returns the live entry for key with its mutex held. An entry evicted
// between lookup and locking is discarded and the lookup retried.
func (s *InMemoryStore) lock(key string) *lockedEntry {
	for {
		le := s.getOrCreate(key)
		le.mu.Lock()
		s.mu.Lock()
		live := s.entries[key] == le
		s.mu.Unlock()
		if live {
			return le
		}
		le.mu.Unlock()
	}
}

func (s *InMemoryStore) getOrCreate(key string) *lockedEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if le := s.entries[key]; le != nil {
		return le
	}
	le := &lockedEntry{}
	s.entries[key] = le
	return le
}
