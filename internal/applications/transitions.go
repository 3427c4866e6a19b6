// Package applications owns the Application lifecycle from approval through
// terminal outcome.
//
// Valid status graph:
//
//	QUEUED ──► SENT ──► VIEWED ──► RESPONDED
//	   │         │         │
//	   │         │         └─────► REJECTED
//	   │         ├───────────────► RESPONDED | REJECTED
//	   ├───────► WITHDRAWN
//	   └───────► FAILED
//
// RESPONDED, REJECTED, WITHDRAWN, and FAILED are terminal states. The only
// backward-looking move a user can make is Withdraw, and only from QUEUED.
package applications

import (
	"fmt"
	"strings"
)

// Status values mirror the application_status enum in PostgreSQL.
type Status string

const (
	StatusQueued    Status = "QUEUED"
	StatusSent      Status = "SENT"
	StatusViewed    Status = "VIEWED"
	StatusResponded Status = "RESPONDED"
	StatusRejected  Status = "REJECTED"
	StatusWithdrawn Status = "WITHDRAWN"
	StatusFailed    Status = "FAILED"
)

// validTransitions lists every allowed (from → to) pair.
var validTransitions = map[Status][]Status{
	StatusQueued: {StatusSent, StatusWithdrawn, StatusFailed},
	StatusSent:   {StatusViewed, StatusResponded, StatusRejected},
	StatusViewed: {StatusResponded, StatusRejected},
	// RESPONDED, REJECTED, WITHDRAWN, FAILED are terminal — no outgoing transitions
}

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusQueued, StatusSent, StatusViewed, StatusResponded, StatusRejected, StatusWithdrawn, StatusFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// IsTransitionAllowed returns true when moving from → to is permitted by the
// state machine.
func IsTransitionAllowed(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false // terminal state — no outgoing transitions
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves the status.
func IsTerminal(s Status) bool {
	_, ok := validTransitions[s]
	return !ok
}

// Channel is the distribution medium an application goes out on.
type Channel string

const (
	ChannelEmail    Channel = "EMAIL"
	ChannelLinkedIn Channel = "LINKEDIN"
)

// Channels lists every supported distribution channel.
var Channels = []Channel{ChannelEmail, ChannelLinkedIn}

// ParseChannel converts a raw string to a Channel.
func ParseChannel(s string) (Channel, error) {
	ch := Channel(strings.ToUpper(strings.TrimSpace(s)))
	switch ch {
	case ChannelEmail, ChannelLinkedIn:
		return ch, nil
	}
	return "", fmt.Errorf("unknown distribution channel %q", s)
}
