package matching

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo for dev and tests.
type MemoryRepo struct {
	mu      sync.Mutex
	matches map[string]*Match
	pairs   map[string]string // userID|postingID -> match id
}

// NewMemoryRepo constructs an empty in-memory repo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		matches: make(map[string]*Match),
		pairs:   make(map[string]string),
	}
}

func pairKey(userID, postingID string) string { return userID + "|" + postingID }

func (r *MemoryRepo) Create(_ context.Context, m Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey(m.UserID, m.PostingID)
	if _, exists := r.pairs[key]; exists {
		return ErrDuplicate
	}
	cp := m
	r.matches[m.ID] = &cp
	r.pairs[key] = m.ID
	return nil
}

func (r *MemoryRepo) GetByID(_ context.Context, id string) (Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return Match{}, ErrNotFound
	}
	return *m, nil
}

func (r *MemoryRepo) ListSurfaced(_ context.Context, userID string, threshold float64) ([]Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selectLocked(func(m *Match) bool {
		return m.UserID == userID && m.Status == StatusPending && m.InQueue && m.Score >= threshold
	}, 0), nil
}

func (r *MemoryRepo) ListBackfill(_ context.Context, userID string, threshold float64, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selectLocked(func(m *Match) bool {
		return m.UserID == userID && m.Status == StatusPending && !m.InQueue && m.Score >= threshold
	}, limit), nil
}

func (r *MemoryRepo) CountInQueue(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.matches {
		if m.UserID == userID && m.Status == StatusPending && m.InQueue {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) SetInQueue(_ context.Context, id string, inQueue bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return ErrNotFound
	}
	m.InQueue = inQueue
	m.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryRepo) Decide(_ context.Context, id string, to Status) (Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return Match{}, ErrNotFound
	}
	if m.Status != StatusPending {
		return Match{}, ErrAlreadyDecided
	}
	m.Status = to
	m.InQueue = false
	m.UpdatedAt = time.Now().UTC()
	return *m, nil
}

func (r *MemoryRepo) ListPendingWithGap(_ context.Context, userID, skill string) ([]Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selectLocked(func(m *Match) bool {
		if m.UserID != userID || m.Status != StatusPending {
			return false
		}
		for _, gap := range m.SkillGaps {
			if gap == skill {
				return true
			}
		}
		return false
	}, 0), nil
}

func (r *MemoryRepo) UpdateScoring(_ context.Context, id string, result Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return ErrNotFound
	}
	if m.Status != StatusPending {
		return ErrAlreadyDecided
	}
	m.Score = result.Score
	m.Reasoning = result.Reasoning
	m.SkillGaps = append([]string(nil), result.SkillGaps...)
	m.Signals = result.Signals
	m.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryRepo) selectLocked(keep func(*Match) bool, limit int) []Match {
	var out []Match
	for _, m := range r.matches {
		if keep(m) {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return Less(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

var _ Repo = (*MemoryRepo)(nil)
