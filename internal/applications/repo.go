package applications

import (
	"context"
	"time"
)

// Repo defines persistence operations for applications and their lifecycle
// event log. Every status transition is validated against the central
// transition table and logged as an immutable event.
type Repo interface {
	// Create persists a new Queued application; ErrMatchAlreadyApplied when
	// the match already has one.
	Create(ctx context.Context, app Application) error
	GetByID(ctx context.Context, id string) (Application, error)
	ListByUser(ctx context.Context, userID string) ([]Application, error)
	// ListDue returns Queued applications whose retry time has passed (or
	// was never set), oldest first, up to limit.
	ListDue(ctx context.Context, now time.Time, limit int) ([]Application, error)
	// UpdateContent edits tailored content; ErrNotEditable unless Queued.
	UpdateContent(ctx context.Context, id, coverLetter, message string) (Application, error)
	// Send atomically claims the Queued→Sent transition: the status check,
	// the delivery side effect, and the flip share one mutual-exclusion
	// boundary per application id. deliver runs at most once; if it fails
	// the application stays Queued. ErrAlreadySent when already claimed.
	Send(ctx context.Context, id string, deliver func(Application) error) (Application, error)
	// Withdraw moves Queued→Withdrawn under the same boundary as Send.
	Withdraw(ctx context.Context, id string) (Application, error)
	// Defer stamps the next retry time on a throttled Queued application.
	Defer(ctx context.Context, id string, retryAt time.Time) error
	// RecordFailure increments the attempt counter and logs the failure;
	// when attempts reach maxAttempts the application transitions to Failed.
	RecordFailure(ctx context.Context, id, reason string, maxAttempts int) (Application, error)
	// Transition applies an externally-driven tracking transition
	// (Sent→Viewed/Responded/Rejected); ErrInvalidTransition when the
	// table rejects it.
	Transition(ctx context.Context, id string, to Status, detail string) (Application, error)
	Events(ctx context.Context, applicationID string) ([]Event, error)
}
