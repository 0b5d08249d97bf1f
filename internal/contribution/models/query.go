package models

import (
	"time"

	id "ofertas/pkg/domain"
)

// ContributionQuery filters contributions for one (product, store) pair.
// Zero-valued fields do not filter.
type ContributionQuery struct {
	ProductID     id.ProductID
	StoreID       id.StoreID
	Window        *DayWindow
	UserID        id.UserID
	ExcludeUserID id.UserID
	Statuses      []Status
}

// Matches applies the query to a contribution in memory.
func (q ContributionQuery) Matches(c *Contribution) bool {
	if c.ProductID != q.ProductID || c.StoreID != q.StoreID {
		return false
	}
	if q.Window != nil && !q.Window.Contains(c.CreatedAt) {
		return false
	}
	if q.UserID != "" && c.UserID != q.UserID {
		return false
	}
	if q.ExcludeUserID != "" && c.UserID == q.ExcludeUserID {
		return false
	}
	if len(q.Statuses) > 0 && !containsStatus(q.Statuses, c.Status) {
		return false
	}
	return true
}

// OfferQuery filters the offers read model. Since is inclusive, Until exclusive.
type OfferQuery struct {
	City     string
	State    string
	Since    time.Time
	Until    time.Time
	Statuses []Status
}

// NonRejected lists the statuses that count toward duplicates and corroboration.
func NonRejected() []Status {
	return []Status{StatusPending, StatusApproved}
}

func containsStatus(statuses []Status, s Status) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}
