package feedback

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is an in-memory Repo for dev and tests.
type MemoryRepo struct {
	mu   sync.RWMutex
	rows []Feedback
}

// NewMemoryRepo constructs an empty in-memory repo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

func (r *MemoryRepo) Append(_ context.Context, fb Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	r.rows = append(r.rows, fb)
	return nil
}

func (r *MemoryRepo) ListByUser(_ context.Context, userID string) ([]Feedback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Feedback
	for _, fb := range r.rows {
		if fb.UserID == userID {
			out = append(out, fb)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepo) CountByUser(_ context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, fb := range r.rows {
		if fb.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) ListUsersWithFeedback(_ context.Context, min int) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int)
	for _, fb := range r.rows {
		counts[fb.UserID]++
	}
	var out []string
	for id, n := range counts {
		if n >= min {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
