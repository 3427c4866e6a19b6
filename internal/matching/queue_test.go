package matching

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"jobpilot-backend/internal/feedback"
)

type stubCreator struct {
	created []struct {
		MatchID string
		Channel string
	}
	err error
}

func (s *stubCreator) CreateFromMatch(_ context.Context, m Match, channel string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.created = append(s.created, struct {
		MatchID string
		Channel string
	}{m.ID, channel})
	return "app-" + m.ID, nil
}

func seedMatch(t *testing.T, repo *MemoryRepo, id string, score float64, inQueue bool) Match {
	t.Helper()
	m := Match{
		ID:        id,
		UserID:    "user-1",
		PostingID: "posting-" + id,
		Score:     score,
		Status:    StatusPending,
		InQueue:   inQueue,
		Signals:   map[string]float64{"embedding": score / 100},
		ScrapedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.Create(context.Background(), m); err != nil {
		t.Fatalf("seed match %s: %v", id, err)
	}
	return m
}

func newQueueManager(repo *MemoryRepo, fb feedback.Repo, apps ApplicationCreator) *QueueManager {
	return &QueueManager{
		Repo:         repo,
		Feedback:     fb,
		Applications: apps,
		Threshold:    80,
		Capacity:     3,
	}
}

func TestListSurfacedFiltersAndOrders(t *testing.T) {
	repo := NewMemoryRepo()
	seedMatch(t, repo, "m1", 92, true)
	seedMatch(t, repo, "m2", 85, true)
	seedMatch(t, repo, "m3", 70, true)  // below threshold
	seedMatch(t, repo, "m4", 95, false) // not surfaced yet

	q := newQueueManager(repo, feedback.NewMemoryRepo(), nil)
	got, err := q.ListSurfaced(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "m1" || got[1].ID != "m2" {
		t.Fatalf("unexpected queue: %+v", got)
	}
}

func TestDecideRecordsFeedbackWithSignalSnapshot(t *testing.T) {
	repo := NewMemoryRepo()
	m := seedMatch(t, repo, "m1", 90, true)
	fb := feedback.NewMemoryRepo()

	q := newQueueManager(repo, fb, nil)
	out, err := q.Decide(context.Background(), m.ID, DecisionRejected, "salary too low", "")
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if out.Match.Status != StatusRejected {
		t.Fatalf("status = %s, want REJECTED", out.Match.Status)
	}
	if out.ApplicationID != "" {
		t.Fatalf("rejection must not create an application, got %q", out.ApplicationID)
	}

	recs, err := fb.ListByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list feedback: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 feedback record, got %d", len(recs))
	}
	if recs[0].Decision != "REJECTED" || recs[0].Reason != "salary too low" {
		t.Fatalf("unexpected feedback: %+v", recs[0])
	}
	if recs[0].Signals["embedding"] != 0.9 {
		t.Fatalf("feedback must snapshot signals, got %v", recs[0].Signals)
	}
}

func TestDecideApprovedCreatesApplication(t *testing.T) {
	repo := NewMemoryRepo()
	m := seedMatch(t, repo, "m1", 90, true)
	creator := &stubCreator{}

	q := newQueueManager(repo, feedback.NewMemoryRepo(), creator)
	out, err := q.Decide(context.Background(), m.ID, DecisionApproved, "", "EMAIL")
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if out.ApplicationID != "app-m1" {
		t.Fatalf("applicationId = %q", out.ApplicationID)
	}
	if len(creator.created) != 1 || creator.created[0].Channel != "EMAIL" {
		t.Fatalf("unexpected creator calls: %+v", creator.created)
	}
}

func TestDecideBackfillsOneSlot(t *testing.T) {
	repo := NewMemoryRepo()
	m := seedMatch(t, repo, "m1", 90, true)
	seedMatch(t, repo, "m2", 88, false)
	seedMatch(t, repo, "m3", 84, false)

	q := newQueueManager(repo, feedback.NewMemoryRepo(), nil)
	if _, err := q.Decide(context.Background(), m.ID, DecisionRejected, "", ""); err != nil {
		t.Fatalf("decide: %v", err)
	}

	surfaced, err := q.ListSurfaced(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	// The best pending non-surfaced match takes the freed slot.
	if len(surfaced) != 1 || surfaced[0].ID != "m2" {
		t.Fatalf("unexpected queue after backfill: %+v", surfaced)
	}
}

func TestDecideTwiceReturnsAlreadyDecided(t *testing.T) {
	repo := NewMemoryRepo()
	m := seedMatch(t, repo, "m1", 90, true)

	q := newQueueManager(repo, feedback.NewMemoryRepo(), nil)
	if _, err := q.Decide(context.Background(), m.ID, DecisionApproved, "", ""); err != nil {
		t.Fatalf("first decide: %v", err)
	}
	if _, err := q.Decide(context.Background(), m.ID, DecisionRejected, "", ""); !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided, got %v", err)
	}
}

func TestFillRespectsCapacityAndThreshold(t *testing.T) {
	repo := NewMemoryRepo()
	seedMatch(t, repo, "m0", 99, true)
	for i := 1; i <= 5; i++ {
		seedMatch(t, repo, fmt.Sprintf("m%d", i), 95-float64(i), false)
	}
	seedMatch(t, repo, "low", 40, false)

	q := newQueueManager(repo, feedback.NewMemoryRepo(), nil)
	if err := q.Fill(context.Background(), "user-1"); err != nil {
		t.Fatalf("fill: %v", err)
	}

	surfaced, err := q.ListSurfaced(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(surfaced) != 3 {
		t.Fatalf("queue size = %d, want capacity 3", len(surfaced))
	}
	for _, m := range surfaced {
		if m.Score < 80 {
			t.Fatalf("match below threshold surfaced: %+v", m)
		}
	}
	if surfaced[0].ID != "m0" || surfaced[1].ID != "m1" || surfaced[2].ID != "m2" {
		t.Fatalf("unexpected order: %+v", surfaced)
	}
}

func TestFillNoopWhenAtCapacity(t *testing.T) {
	repo := NewMemoryRepo()
	seedMatch(t, repo, "m1", 95, true)
	seedMatch(t, repo, "m2", 94, true)
	seedMatch(t, repo, "m3", 93, true)
	seedMatch(t, repo, "m4", 92, false)

	q := newQueueManager(repo, feedback.NewMemoryRepo(), nil)
	if err := q.Fill(context.Background(), "user-1"); err != nil {
		t.Fatalf("fill: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), "m4")
	if got.InQueue {
		t.Fatal("fill must not exceed capacity")
	}
}

type stubSurfaceNotifier struct {
	matchIDs []string
}

func (s *stubSurfaceNotifier) MatchSurfaced(_ context.Context, _, matchID string, _ float64) {
	s.matchIDs = append(s.matchIDs, matchID)
}

func TestFillAnnouncesSurfacedMatches(t *testing.T) {
	repo := NewMemoryRepo()
	seedMatch(t, repo, "m1", 95, false)
	seedMatch(t, repo, "m2", 90, false)
	seedMatch(t, repo, "low", 40, false)

	notes := &stubSurfaceNotifier{}
	q := newQueueManager(repo, feedback.NewMemoryRepo(), nil)
	q.Notify = notes
	if err := q.Fill(context.Background(), "user-1"); err != nil {
		t.Fatalf("fill: %v", err)
	}

	if len(notes.matchIDs) != 2 || notes.matchIDs[0] != "m1" || notes.matchIDs[1] != "m2" {
		t.Fatalf("unexpected announcements: %v", notes.matchIDs)
	}
}

func TestDecideAnnouncesBackfilledMatch(t *testing.T) {
	repo := NewMemoryRepo()
	seedMatch(t, repo, "m1", 95, true)
	seedMatch(t, repo, "m2", 88, false)

	notes := &stubSurfaceNotifier{}
	q := newQueueManager(repo, feedback.NewMemoryRepo(), nil)
	q.Notify = notes
	if _, err := q.Decide(context.Background(), "m1", DecisionRejected, "", ""); err != nil {
		t.Fatalf("decide: %v", err)
	}

	if len(notes.matchIDs) != 1 || notes.matchIDs[0] != "m2" {
		t.Fatalf("unexpected announcements: %v", notes.matchIDs)
	}
}

func TestParseDecision(t *testing.T) {
	if d, err := ParseDecision(" approved "); err != nil || d != DecisionApproved {
		t.Fatalf("got %q, %v", d, err)
	}
	if _, err := ParseDecision("maybe"); err == nil {
		t.Fatal("expected error for unknown decision")
	}
}
