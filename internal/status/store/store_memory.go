package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"ofertas/internal/status/models"
	"ofertas/pkg/platform/sentinel"
)

// InMemoryStore keeps status records in a mutex-guarded map.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]models.Record)}
}

func (s *InMemoryStore) Set(_ context.Context, rec models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return models.Record{}, sentinel.ErrNotFound
	}
	return rec, nil
}

// List returns every record, oldest update first.
func (s *InMemoryStore) List(_ context.Context) ([]models.Record, error) {
	s.mu.RLock()
	out := make([]models.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b models.Record) int { return a.UpdatedAt.Compare(b.UpdatedAt) })
	return out, nil
}

func (s *InMemoryStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, rec := range s.records {
		if rec.UpdatedAt.Before(cutoff) {
			delete(s.records, id)
			removed++
		}
	}
	return removed, nil
}
