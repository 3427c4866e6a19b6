package matching

import (
	"context"
	"testing"
	"time"

	"jobpilot-backend/internal/postings"
	"jobpilot-backend/internal/profiles"
	"jobpilot-backend/internal/weights"
)

func newTestBridge(t *testing.T) (*Bridge, *MemoryRepo, *postings.MemoryRepo) {
	t.Helper()
	profileRepo := profiles.NewMemoryRepo()
	profileRepo.Put(profiles.Profile{
		UserID:    "user-1",
		Embedding: []float64{1, 0, 0},
		Skills:    []string{"go", "sql"},
	})
	postingRepo := postings.NewMemoryRepo()
	matchRepo := NewMemoryRepo()
	return &Bridge{
		Engine:   Engine{},
		Repo:     matchRepo,
		Profiles: profileRepo,
		Postings: postingRepo,
		Weights:  weights.NewMemoryRepo(),
	}, matchRepo, postingRepo
}

func seedGapMatch(t *testing.T, matchRepo *MemoryRepo, postingRepo *postings.MemoryRepo, id string, score float64, status Status, gaps []string) {
	t.Helper()
	reqs := append([]string{"go", "sql"}, gaps...)
	postingRepo.Put(postings.Posting{
		ID:           "posting-" + id,
		Title:        "Backend Engineer",
		Company:      "Acme",
		Embedding:    []float64{1, 0, 0},
		Requirements: reqs,
		Active:       true,
		ScrapedAt:    time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	})
	if err := matchRepo.Create(context.Background(), Match{
		ID:        id,
		UserID:    "user-1",
		PostingID: "posting-" + id,
		Score:     score,
		Status:    status,
		SkillGaps: gaps,
	}); err != nil {
		t.Fatalf("seed match %s: %v", id, err)
	}
}

func TestSkillCompletedRescoresAffectedMatches(t *testing.T) {
	bridge, matchRepo, postingRepo := newTestBridge(t)
	seedGapMatch(t, matchRepo, postingRepo, "m1", 60, StatusPending, []string{"kubernetes"})
	seedGapMatch(t, matchRepo, postingRepo, "m2", 60, StatusPending, []string{"terraform"})

	n, err := bridge.SkillCompleted(context.Background(), "user-1", "Kubernetes")
	if err != nil {
		t.Fatalf("skill completed: %v", err)
	}
	if n != 1 {
		t.Fatalf("rescored = %d, want 1", n)
	}

	m1, _ := matchRepo.GetByID(context.Background(), "m1")
	if m1.Score <= 60 {
		t.Fatalf("closing the only gap must raise the score, got %g", m1.Score)
	}
	if len(m1.SkillGaps) != 0 {
		t.Fatalf("gap list not refreshed: %v", m1.SkillGaps)
	}

	m2, _ := matchRepo.GetByID(context.Background(), "m2")
	if m2.Score != 60 {
		t.Fatalf("unaffected match changed: %g", m2.Score)
	}
}

func TestSkillCompletedNeverLowersScore(t *testing.T) {
	bridge, matchRepo, postingRepo := newTestBridge(t)
	// Stored score is inflated relative to what a fresh scoring would give.
	seedGapMatch(t, matchRepo, postingRepo, "m1", 99.5, StatusPending, []string{"kubernetes"})

	if _, err := bridge.SkillCompleted(context.Background(), "user-1", "kubernetes"); err != nil {
		t.Fatalf("skill completed: %v", err)
	}
	m1, _ := matchRepo.GetByID(context.Background(), "m1")
	if m1.Score < 99.5 {
		t.Fatalf("re-scoring lowered the score: %g", m1.Score)
	}
}

func TestSkillCompletedSkipsDecidedMatches(t *testing.T) {
	bridge, matchRepo, postingRepo := newTestBridge(t)
	seedGapMatch(t, matchRepo, postingRepo, "m1", 60, StatusApproved, []string{"kubernetes"})

	n, err := bridge.SkillCompleted(context.Background(), "user-1", "kubernetes")
	if err != nil {
		t.Fatalf("skill completed: %v", err)
	}
	if n != 0 {
		t.Fatalf("decided matches must not be rescored, got %d", n)
	}
	m1, _ := matchRepo.GetByID(context.Background(), "m1")
	if m1.Score != 60 {
		t.Fatalf("decided match changed: %g", m1.Score)
	}
}

func TestSkillCompletedWorksBeforeProfileWrite(t *testing.T) {
	bridge, matchRepo, postingRepo := newTestBridge(t)
	seedGapMatch(t, matchRepo, postingRepo, "m1", 60, StatusPending, []string{"rust"})

	// The profile does not list rust yet; the bridge patches it in.
	n, err := bridge.SkillCompleted(context.Background(), "user-1", "rust")
	if err != nil {
		t.Fatalf("skill completed: %v", err)
	}
	if n != 1 {
		t.Fatalf("rescored = %d, want 1", n)
	}
}

func TestSkillCompletedRequiresSkill(t *testing.T) {
	bridge, _, _ := newTestBridge(t)
	if _, err := bridge.SkillCompleted(context.Background(), "user-1", "   "); err == nil {
		t.Fatal("expected error for blank skill")
	}
}
