package models

import (
	"fmt"
	"strings"
	"time"
)

// Action names a rate-limited operation.
type Action string

const (
	ActionDailyOffer        Action = "daily_offer"
	ActionPriceContribution Action = "price_contribution"
	ActionConflictCheck     Action = "conflict_check"
)

// Policy bounds how often one user may perform one action.
type Policy struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Window      time.Duration `yaml:"window"`
	Block       time.Duration `yaml:"block"`
}

// Validate checks that the policy can be enforced.
func (p Policy) Validate() error {
	if p.MaxAttempts <= 0 {
		return fmt.Errorf("max_attempts must be positive, got %d", p.MaxAttempts)
	}
	if p.Window <= 0 {
		return fmt.Errorf("window must be positive, got %s", p.Window)
	}
	if p.Block < 0 {
		return fmt.Errorf("block must not be negative, got %s", p.Block)
	}
	return nil
}

// DefaultPolicy is the observed limit for price contributions.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 5, Window: 60 * time.Minute, Block: 30 * time.Minute}
}

// Guard is a fixed threshold evaluated before the per-action policy.
// A guard denial never starts a block.
type Guard struct {
	Rule    string
	Limit   int
	Window  time.Duration
	Message string
}

// DefaultGuards returns the burst and hourly guards, in evaluation order.
func DefaultGuards() []Guard {
	return []Guard{
		{
			Rule:    RuleBurst,
			Limit:   5,
			Window:  time.Minute,
			Message: "too many submissions, wait a minute before trying again",
		},
		{
			Rule:    RuleHourly,
			Limit:   50,
			Window:  time.Hour,
			Message: "hourly submission limit reached, try again later",
		},
	}
}

const (
	RuleBlocked = "blocked"
	RuleBurst   = "burst"
	RuleHourly  = "hourly"
	RulePolicy  = "policy"
)

// Entry is the persisted state for one (user, action) key.
type Entry struct {
	Timestamps   []time.Time `json:"timestamps"`
	BlockedUntil time.Time   `json:"blocked_until,omitzero"`
}

// Prune drops timestamps older than horizon. Timestamps are kept in insertion order.
func (e *Entry) Prune(now time.Time, horizon time.Duration) {
	cutoff := now.Add(-horizon)
	i := 0
	for ; i < len(e.Timestamps); i++ {
		if e.Timestamps[i].After(cutoff) {
			break
		}
	}
	e.Timestamps = e.Timestamps[i:]
}

// CountSince counts timestamps strictly after now-window.
func (e *Entry) CountSince(now time.Time, window time.Duration) int {
	cutoff := now.Add(-window)
	n := 0
	for _, ts := range e.Timestamps {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}

// Blocked reports whether the entry is inside an active block.
func (e *Entry) Blocked(now time.Time) bool {
	return !e.BlockedUntil.IsZero() && now.Before(e.BlockedUntil)
}

// Idle reports whether the entry holds nothing worth keeping.
func (e *Entry) Idle(now time.Time, horizon time.Duration) bool {
	return !e.Blocked(now) && e.CountSince(now, horizon) == 0
}

// Decision is the outcome of one CheckAndRecord call.
type Decision struct {
	Allowed      bool
	Rule         string
	Message      string
	RetryAfter   time.Duration
	BlockStarted bool
}

// Key builds the storage key for a user and action.
func Key(userID string, action Action) string {
	return "ratelimit:" + SanitizeKeySegment(userID) + ":" + SanitizeKeySegment(string(action))
}

// SanitizeKeySegment escapes the key delimiter so user-controlled identifiers
// cannot address another user's entry.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}
