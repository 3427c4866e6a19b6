package feedback

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"jobpilot-backend/internal/weights"
)

func newTestLearner() (*Learner, *MemoryRepo, *weights.MemoryRepo) {
	fb := NewMemoryRepo()
	w := weights.NewMemoryRepo()
	return &Learner{Repo: fb, Weights: w, ActivationThreshold: 10, LearningRate: 0.1}, fb, w
}

func appendFeedback(t *testing.T, repo *MemoryRepo, n int, decision string, signals map[string]float64) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := repo.Append(context.Background(), Feedback{
			MatchID:   fmt.Sprintf("%s-match-%d", decision, i),
			UserID:    "user-1",
			Decision:  decision,
			Signals:   signals,
			CreatedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}
}

func TestRecalibrateBelowThresholdIsNoop(t *testing.T) {
	l, fb, w := newTestLearner()
	appendFeedback(t, fb, 5, DecisionApproved, map[string]float64{weights.FeatureSkills: 1})
	appendFeedback(t, fb, 4, DecisionRejected, map[string]float64{weights.FeatureSkills: 0})

	v, applied, err := l.Recalibrate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("recalibrate: %v", err)
	}
	if applied {
		t.Fatal("9 records must not trigger recalibration")
	}
	if v.Version != 0 {
		t.Fatalf("expected default vector, got version %d", v.Version)
	}
	if _, err := w.Latest(context.Background(), "user-1"); err == nil {
		t.Fatal("no vector should have been saved")
	}
}

func TestRecalibrateSingleClassIsNoop(t *testing.T) {
	l, fb, _ := newTestLearner()
	appendFeedback(t, fb, 12, DecisionApproved, map[string]float64{weights.FeatureSkills: 1})

	_, applied, err := l.Recalibrate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("recalibrate: %v", err)
	}
	if applied {
		t.Fatal("single-class feedback must not recalibrate")
	}
}

func TestRecalibrateShiftsTowardSeparatingFeature(t *testing.T) {
	l, fb, _ := newTestLearner()
	// Approvals carry high skill signals; rejections low. Skills should gain
	// weight relative to the default.
	appendFeedback(t, fb, 6, DecisionApproved, map[string]float64{
		weights.FeatureEmbedding: 0.7,
		weights.FeatureSkills:    0.9,
	})
	appendFeedback(t, fb, 6, DecisionRejected, map[string]float64{
		weights.FeatureEmbedding: 0.7,
		weights.FeatureSkills:    0.2,
	})

	v, applied, err := l.Recalibrate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("recalibrate: %v", err)
	}
	if !applied {
		t.Fatal("expected recalibration")
	}
	if v.Version != 1 {
		t.Fatalf("version = %d, want 1", v.Version)
	}
	if v.Get(weights.FeatureSkills) <= weights.DefaultVector().Get(weights.FeatureSkills) {
		t.Fatalf("skills weight did not increase: %g", v.Get(weights.FeatureSkills))
	}

	sum := 0.0
	for _, f := range weights.Features {
		w := v.Get(f)
		if w < 0 {
			t.Fatalf("negative weight for %s: %g", f, w)
		}
		sum += w
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("weights must renormalize to 1, got %g", sum)
	}
}

func TestRecalibrateIsOrderIndependent(t *testing.T) {
	approvedSignals := map[string]float64{weights.FeatureSkills: 0.9, weights.FeatureCity: 0.3}
	rejectedSignals := map[string]float64{weights.FeatureSkills: 0.2, weights.FeatureCity: 0.8}

	l1, fb1, _ := newTestLearner()
	appendFeedback(t, fb1, 6, DecisionApproved, approvedSignals)
	appendFeedback(t, fb1, 6, DecisionRejected, rejectedSignals)

	l2, fb2, _ := newTestLearner()
	appendFeedback(t, fb2, 6, DecisionRejected, rejectedSignals)
	appendFeedback(t, fb2, 6, DecisionApproved, approvedSignals)

	v1, _, err := l1.Recalibrate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("recalibrate: %v", err)
	}
	v2, _, err := l2.Recalibrate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("recalibrate: %v", err)
	}
	for _, f := range weights.Features {
		if math.Abs(v1.Get(f)-v2.Get(f)) > 1e-12 {
			t.Fatalf("order changed result for %s: %g vs %g", f, v1.Get(f), v2.Get(f))
		}
	}
}

func TestRecalibrateSkipsMalformedRows(t *testing.T) {
	l, fb, _ := newTestLearner()
	appendFeedback(t, fb, 6, DecisionApproved, map[string]float64{weights.FeatureSkills: 1})
	appendFeedback(t, fb, 6, DecisionRejected, map[string]float64{weights.FeatureSkills: 0})
	appendFeedback(t, fb, 2, "MAYBE", map[string]float64{weights.FeatureSkills: 1})

	_, applied, err := l.Recalibrate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("recalibrate: %v", err)
	}
	if !applied {
		t.Fatal("valid rows should still recalibrate")
	}
}

func TestRecalibrateVersionsAdvanceWithNewFeedback(t *testing.T) {
	l, fb, _ := newTestLearner()
	appendFeedback(t, fb, 6, DecisionApproved, map[string]float64{weights.FeatureSkills: 1})
	appendFeedback(t, fb, 6, DecisionRejected, map[string]float64{weights.FeatureSkills: 0})

	first, _, err := l.Recalibrate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("recalibrate: %v", err)
	}

	// New decisions land after the first calibration.
	for i := 0; i < 3; i++ {
		err := fb.Append(context.Background(), Feedback{
			MatchID:   fmt.Sprintf("late-match-%d", i),
			UserID:    "user-1",
			Decision:  DecisionRejected,
			Signals:   map[string]float64{weights.FeatureSkills: 0.1},
			CreatedAt: time.Now().UTC().Add(time.Minute),
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	second, applied, err := l.Recalibrate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("recalibrate: %v", err)
	}
	if !applied {
		t.Fatal("new feedback should recalibrate")
	}
	if second.Version != first.Version+1 {
		t.Fatalf("versions must advance: %d then %d", first.Version, second.Version)
	}
}

func TestRecalibrateRepeatOverUnchangedFeedbackIsNoop(t *testing.T) {
	l, fb, w := newTestLearner()
	appendFeedback(t, fb, 6, DecisionApproved, map[string]float64{weights.FeatureSkills: 0.9})
	appendFeedback(t, fb, 6, DecisionRejected, map[string]float64{weights.FeatureSkills: 0.2})

	first, applied, err := l.Recalibrate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("recalibrate: %v", err)
	}
	if !applied {
		t.Fatal("expected first recalibration to apply")
	}

	for i := 0; i < 5; i++ {
		v, applied, err := l.Recalibrate(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("recalibrate: %v", err)
		}
		if applied {
			t.Fatal("unchanged feedback must not recalibrate again")
		}
		if v.Version != first.Version {
			t.Fatalf("version moved without new feedback: %d", v.Version)
		}
		for _, f := range weights.Features {
			if v.Get(f) != first.Get(f) {
				t.Fatalf("weight %s drifted: %g -> %g", f, first.Get(f), v.Get(f))
			}
		}
	}

	history, err := w.History(context.Background(), "user-1", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected a single stored version, got %d", len(history))
	}
}

type stubRecalNotifier struct {
	userIDs  []string
	versions []int
}

func (s *stubRecalNotifier) WeightsRecalibrated(_ context.Context, userID string, version int) {
	s.userIDs = append(s.userIDs, userID)
	s.versions = append(s.versions, version)
}

func TestRecalibrateAnnouncesNewVersion(t *testing.T) {
	l, fb, _ := newTestLearner()
	notes := &stubRecalNotifier{}
	l.Notify = notes
	appendFeedback(t, fb, 6, DecisionApproved, map[string]float64{weights.FeatureSkills: 1})
	appendFeedback(t, fb, 6, DecisionRejected, map[string]float64{weights.FeatureSkills: 0})

	if _, _, err := l.Recalibrate(context.Background(), "user-1"); err != nil {
		t.Fatalf("recalibrate: %v", err)
	}
	// A rerun over the same feedback announces nothing.
	if _, _, err := l.Recalibrate(context.Background(), "user-1"); err != nil {
		t.Fatalf("recalibrate: %v", err)
	}

	if len(notes.userIDs) != 1 || notes.userIDs[0] != "user-1" || notes.versions[0] != 1 {
		t.Fatalf("expected one announcement for user-1 v1, got %v %v", notes.userIDs, notes.versions)
	}
}
