package applications

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is an in-memory Repo used for local development and tests.
// A single mutex gives the same per-application serialization the Postgres
// implementation gets from row locks.
type MemoryRepo struct {
	mu      sync.Mutex
	apps    map[string]*Application
	byMatch map[string]string
	events  map[string][]Event
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		apps:    make(map[string]*Application),
		byMatch: make(map[string]string),
		events:  make(map[string][]Event),
	}
}

func (r *MemoryRepo) Create(_ context.Context, app Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byMatch[app.MatchID]; ok {
		return ErrMatchAlreadyApplied
	}
	app.Status = StatusQueued
	stored := app
	r.apps[app.ID] = &stored
	r.byMatch[app.MatchID] = app.ID
	r.appendEventLocked(app.ID, "", StatusQueued, "created from approved match")
	return nil
}

func (r *MemoryRepo) GetByID(_ context.Context, id string) (Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok {
		return Application{}, ErrNotFound
	}
	return *app, nil
}

func (r *MemoryRepo) ListByUser(_ context.Context, userID string) ([]Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Application
	for _, app := range r.apps {
		if app.UserID == userID {
			out = append(out, *app)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepo) ListDue(_ context.Context, now time.Time, limit int) ([]Application, error) {
	if limit <= 0 {
		limit = 50
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Application
	for _, app := range r.apps {
		if app.Status != StatusQueued {
			continue
		}
		if app.RetryAt != nil && app.RetryAt.After(now) {
			continue
		}
		out = append(out, *app)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) UpdateContent(_ context.Context, id, coverLetter, message string) (Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok {
		return Application{}, ErrNotFound
	}
	if app.Status != StatusQueued {
		return Application{}, ErrNotEditable
	}
	app.CoverLetter = coverLetter
	app.Message = message
	app.UpdatedAt = time.Now().UTC()
	return *app, nil
}

func (r *MemoryRepo) Send(_ context.Context, id string, deliver func(Application) error) (Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok {
		return Application{}, ErrNotFound
	}
	if app.Status != StatusQueued {
		return Application{}, ErrAlreadySent
	}
	if deliver != nil {
		if err := deliver(*app); err != nil {
			return Application{}, &DeliveryError{Err: err}
		}
	}
	now := time.Now().UTC()
	app.Status = StatusSent
	app.SentAt = &now
	app.RetryAt = nil
	app.UpdatedAt = now
	r.appendEventLocked(id, StatusQueued, StatusSent, "delivered via "+string(app.Channel))
	return *app, nil
}

func (r *MemoryRepo) Withdraw(_ context.Context, id string) (Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok {
		return Application{}, ErrNotFound
	}
	if app.Status != StatusQueued {
		return Application{}, ErrNotWithdrawable
	}
	app.Status = StatusWithdrawn
	app.UpdatedAt = time.Now().UTC()
	r.appendEventLocked(id, StatusQueued, StatusWithdrawn, "withdrawn by user")
	return *app, nil
}

func (r *MemoryRepo) Defer(_ context.Context, id string, retryAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok {
		return ErrNotFound
	}
	if app.Status != StatusQueued {
		return ErrAlreadySent
	}
	t := retryAt
	app.RetryAt = &t
	app.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryRepo) RecordFailure(_ context.Context, id, reason string, maxAttempts int) (Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok {
		return Application{}, ErrNotFound
	}
	if app.Status != StatusQueued {
		return Application{}, ErrAlreadySent
	}
	app.Attempts++
	status := StatusQueued
	if maxAttempts > 0 && app.Attempts >= maxAttempts {
		status = StatusFailed
	}
	app.Status = status
	app.UpdatedAt = time.Now().UTC()
	r.appendEventLocked(id, StatusQueued, status, fmt.Sprintf("send attempt %d failed: %s", app.Attempts, reason))
	return *app, nil
}

func (r *MemoryRepo) Transition(_ context.Context, id string, to Status, detail string) (Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok {
		return Application{}, ErrNotFound
	}
	if !IsTransitionAllowed(app.Status, to) {
		return Application{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, app.Status, to)
	}
	from := app.Status
	app.Status = to
	app.UpdatedAt = time.Now().UTC()
	r.appendEventLocked(id, from, to, detail)
	return *app, nil
}

func (r *MemoryRepo) Events(_ context.Context, applicationID string) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	evts := r.events[applicationID]
	out := make([]Event, len(evts))
	copy(out, evts)
	return out, nil
}

func (r *MemoryRepo) appendEventLocked(appID string, from, to Status, detail string) {
	r.events[appID] = append(r.events[appID], Event{
		ID:            uuid.NewString(),
		ApplicationID: appID,
		FromStatus:    from,
		ToStatus:      to,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	})
}

var _ Repo = (*MemoryRepo)(nil)
