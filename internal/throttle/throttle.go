// Package throttle enforces per-user per-channel send caps over a sliding
// window. A record is written for every admitted send; admission counts the
// records still inside the window at decision time.
package throttle

import (
	"context"
	"time"
)

// Rule caps sends per user and channel to Limit within a sliding Window.
type Rule struct {
	Window time.Duration
	Limit  int
}

// Decision is the outcome of an admission check. When Admitted is false,
// RetryAfter is when the oldest counted record leaves the window and a slot
// opens up.
type Decision struct {
	Admitted   bool
	RetryAfter time.Time
}

// Store persists admitted-send records. CountAndRecord must be atomic: the
// count of records newer than `since` and the conditional insert happen under
// one mutual-exclusion boundary per (userID, channel), so concurrent checks
// cannot both see a free slot.
type Store interface {
	// CountAndRecord counts records for (userID, channel) at or after since.
	// If the count is below limit it records a new entry at now and reports
	// admitted=true. Either way it returns the timestamp of the oldest record
	// inside the window (zero when there are none).
	CountAndRecord(ctx context.Context, userID, channel string, since, now time.Time, limit int) (admitted bool, oldest time.Time, err error)
}

// Gate answers "may this user send on this channel right now".
type Gate struct {
	Store Store
	Rules map[string]Rule

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// Admit checks the channel's rule and records the send when a slot is free.
// Channels without a configured rule are always admitted.
func (g *Gate) Admit(ctx context.Context, userID, channel string) (Decision, error) {
	rule, ok := g.Rules[channel]
	if !ok || rule.Limit <= 0 || rule.Window <= 0 {
		return Decision{Admitted: true}, nil
	}

	now := time.Now().UTC()
	if g.Now != nil {
		now = g.Now()
	}
	since := now.Add(-rule.Window)

	admitted, oldest, err := g.Store.CountAndRecord(ctx, userID, channel, since, now, rule.Limit)
	if err != nil {
		return Decision{}, err
	}
	if admitted {
		return Decision{Admitted: true}, nil
	}
	retryAfter := now.Add(rule.Window)
	if !oldest.IsZero() {
		retryAfter = oldest.Add(rule.Window)
	}
	return Decision{Admitted: false, RetryAfter: retryAfter}, nil
}
