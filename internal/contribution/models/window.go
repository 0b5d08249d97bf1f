package models

import (
	"time"
)

// DayWindow is the calendar-day bucket [Start, End) used by the approval
// path. It is deliberately not a rolling 24h window.
type DayWindow struct {
	Start time.Time
	End   time.Time
}

// DayWindowAt returns the local calendar day containing t.
func DayWindowAt(t time.Time, loc *time.Location) DayWindow {
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return DayWindow{Start: start, End: start.AddDate(0, 0, 1)}
}

// Contains reports whether t falls inside the window.
func (w DayWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Key is a stable identifier of the day, used in lock keys.
func (w DayWindow) Key() string {
	return w.Start.Format("2006-01-02")
}

// DuplicateScope selects how far back the one-contribution-per-user rule looks.
type DuplicateScope int

const (
	// ScopePerDay allows one contribution per user and pair per calendar day.
	ScopePerDay DuplicateScope = iota
	// ScopeAllTime allows one contribution per user and pair, ever.
	ScopeAllTime
)

func (s DuplicateScope) String() string {
	switch s {
	case ScopePerDay:
		return "per_day"
	case ScopeAllTime:
		return "all_time"
	}
	return "unknown"
}

// Table names the contribution table an engine and its store operate on.
type Table string

const (
	TableDailyOffers   Table = "daily_offers"
	TableContributions Table = "price_contributions"
)

// IsValid checks if the table is one of the supported tables.
func (t Table) IsValid() bool {
	return t == TableDailyOffers || t == TableContributions
}
