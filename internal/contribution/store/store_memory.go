package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"ofertas/internal/contribution/models"
	"ofertas/internal/normalize"
	id "ofertas/pkg/domain"
	"ofertas/pkg/platform/sentinel"
)

// InMemoryEntities holds products and stores in process memory.
type InMemoryEntities struct {
	mu       sync.RWMutex
	products map[id.ProductID]*models.Product
	stores   map[id.StoreID]*models.Store
}

func NewInMemoryEntities() *InMemoryEntities {
	return &InMemoryEntities{
		products: make(map[id.ProductID]*models.Product),
		stores:   make(map[id.StoreID]*models.Store),
	}
}

func (s *InMemoryEntities) FindProducts(_ context.Context, contains string) ([]*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Product
	for _, p := range s.products {
		if nameMatches(p.Name, p.NormalizedName, contains) {
			cp := *p
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *models.Product) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (s *InMemoryEntities) CreateProduct(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.products[p.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *p
	s.products[p.ID] = &cp
	return nil
}

func (s *InMemoryEntities) FindStores(_ context.Context, contains string) ([]*models.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Store
	for _, st := range s.stores {
		if nameMatches(st.Name, st.NormalizedName, contains) {
			cp := *st
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *models.Store) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (s *InMemoryEntities) CreateStore(_ context.Context, st *models.Store) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.stores[st.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *st
	s.stores[st.ID] = &cp
	return nil
}

func (s *InMemoryEntities) productName(pid id.ProductID) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p := s.products[pid]; p != nil {
		return p.Name
	}
	return ""
}

func (s *InMemoryEntities) storeName(sid id.StoreID) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st := s.stores[sid]; st != nil {
		return st.Name
	}
	return ""
}

// nameMatches is the search predicate shared with the SQL store: the raw name
// contains the text case-insensitively, or the normalized name contains the
// normalized text.
func nameMatches(name, normalized, contains string) bool {
	if strings.Contains(strings.ToLower(name), strings.ToLower(contains)) {
		return true
	}
	nc := normalize.Normalize(contains)
	return nc != "" && strings.Contains(normalized, nc)
}

// InMemoryContributions holds one contribution table in process memory.
type InMemoryContributions struct {
	mu       sync.RWMutex
	rows     map[id.ContributionID]*models.Contribution
	entities *InMemoryEntities
}

// NewInMemoryContributions creates a contribution table that resolves offer
// names through entities.
func NewInMemoryContributions(entities *InMemoryEntities) *InMemoryContributions {
	return &InMemoryContributions{
		rows:     make(map[id.ContributionID]*models.Contribution),
		entities: entities,
	}
}

func (s *InMemoryContributions) FindContributions(_ context.Context, q models.ContributionQuery) ([]*models.Contribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Contribution
	for _, c := range s.rows {
		if q.Matches(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *models.Contribution) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (s *InMemoryContributions) InsertContribution(_ context.Context, c *models.Contribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rows[c.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *c
	s.rows[c.ID] = &cp
	return nil
}

func (s *InMemoryContributions) UpdateContributionsStatus(_ context.Context, ids []id.ContributionID, status models.Status, note string, at time.Time) ([]id.ContributionID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed []id.ContributionID
	for _, cid := range ids {
		c := s.rows[cid]
		if c == nil || c.Status != models.StatusPending {
			continue
		}
		c.Status = status
		c.Notes = appendNote(c.Notes, note)
		c.UpdatedAt = at
		changed = append(changed, cid)
	}
	return changed, nil
}

func (s *InMemoryContributions) DeleteContributionsBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for cid, c := range s.rows {
		if c.CreatedAt.Before(cutoff) {
			delete(s.rows, cid)
			removed++
		}
	}
	return removed, nil
}

func (s *InMemoryContributions) ListOffers(_ context.Context, q models.OfferQuery) ([]*models.Offer, error) {
	s.mu.RLock()
	matched := make([]models.Contribution, 0, len(s.rows))
	for _, c := range s.rows {
		if offerMatches(q, c) {
			matched = append(matched, *c)
		}
	}
	s.mu.RUnlock()

	out := make([]*models.Offer, 0, len(matched))
	for _, c := range matched {
		out = append(out, &models.Offer{
			ID:              c.ID,
			UserID:          c.UserID,
			ContributorName: c.ContributorName,
			ProductID:       c.ProductID,
			ProductName:     s.entities.productName(c.ProductID),
			StoreID:         c.StoreID,
			StoreName:       s.entities.storeName(c.StoreID),
			Price:           c.Price,
			City:            c.City,
			State:           c.State,
			Status:          c.Status,
			CreatedAt:       c.CreatedAt,
		})
	}
	slices.SortFunc(out, func(a, b *models.Offer) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func offerMatches(q models.OfferQuery, c *models.Contribution) bool {
	if q.City != "" && !strings.EqualFold(q.City, c.City) {
		return false
	}
	if q.State != "" && !strings.EqualFold(q.State, c.State) {
		return false
	}
	if !q.Since.IsZero() && c.CreatedAt.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && !c.CreatedAt.Before(q.Until) {
		return false
	}
	if len(q.Statuses) > 0 && !slices.Contains(q.Statuses, c.Status) {
		return false
	}
	return true
}

func appendNote(existing, note string) string {
	switch {
	case note == "":
		return existing
	case existing == "":
		return note
	}
	return existing + "; " + note
}
