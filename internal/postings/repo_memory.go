package postings

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repo for dev and tests.
type MemoryRepo struct {
	mu       sync.RWMutex
	postings map[string]Posting
}

// NewMemoryRepo constructs an empty in-memory repo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{postings: make(map[string]Posting)}
}

// Put stores or replaces a posting (test/dev seeding).
func (r *MemoryRepo) Put(p Posting) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.postings[p.ID] = p
}

func (r *MemoryRepo) GetByID(_ context.Context, id string) (Posting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.postings[id]
	if !ok {
		return Posting{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepo) ListActive(_ context.Context) ([]Posting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Posting
	for _, p := range r.postings {
		if p.Active {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScrapedAt.Equal(out[j].ScrapedAt) {
			return out[i].ScrapedAt.After(out[j].ScrapedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
