package weights

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo for dev and tests.
type MemoryRepo struct {
	mu       sync.RWMutex
	versions map[string][]Vector
}

// NewMemoryRepo constructs an empty in-memory repo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{versions: make(map[string][]Vector)}
}

func (r *MemoryRepo) Latest(_ context.Context, userID string) (Vector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	vs := r.versions[userID]
	if len(vs) == 0 {
		return Vector{}, ErrNotFound
	}
	return vs[len(vs)-1].Clone(), nil
}

func (r *MemoryRepo) Save(_ context.Context, v Vector) (Vector, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	vs := r.versions[v.UserID]
	v.Version = len(vs) + 1
	v.CreatedAt = time.Now().UTC()
	r.versions[v.UserID] = append(vs, v.Clone())
	return v, nil
}

func (r *MemoryRepo) History(_ context.Context, userID string, limit int) ([]Vector, error) {
	if limit <= 0 {
		limit = 10
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	vs := r.versions[userID]
	out := make([]Vector, 0, limit)
	for i := len(vs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, vs[i].Clone())
	}
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
