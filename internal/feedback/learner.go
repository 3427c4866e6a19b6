package feedback

import (
	"context"
	"fmt"
	"time"

	"jobpilot-backend/internal/shared/metrics"
	"jobpilot-backend/internal/shared/telemetry"
	"jobpilot-backend/internal/weights"
)

// RecalibrationNotifier announces new weight vector versions. A nil
// notifier disables announcements.
type RecalibrationNotifier interface {
	WeightsRecalibrated(ctx context.Context, userID string, version int)
}

// Learner recalibrates a user's weight vector from accumulated feedback.
//
// The update is a pure aggregate over the feedback set: per feature it takes
// the mean signal among approved and among rejected decisions and moves the
// weight toward whichever direction separates the two groups, scaled by the
// learning rate, then clamps and renormalizes. Aggregates make the result
// independent of submission order.
type Learner struct {
	Repo    Repo
	Weights weights.Repo
	Notify  RecalibrationNotifier
	// ActivationThreshold is the minimum feedback count before any
	// recalibration happens.
	ActivationThreshold int
	// LearningRate bounds how far one recalibration can move a weight.
	// Values outside (0,1] are clamped.
	LearningRate float64
}

// Recalibrate recomputes the user's weight vector. Below the activation
// threshold, when feedback contains only one decision class, or when no
// feedback postdates the stored vector, it is a no-op and the stored vector
// is returned unchanged. Recalibration only affects future scoring runs;
// existing match and application records keep their committed scores.
func (l *Learner) Recalibrate(ctx context.Context, userID string) (weights.Vector, bool, error) {
	current, err := weights.LatestOrDefault(ctx, l.Weights, userID)
	if err != nil {
		return weights.Vector{}, false, fmt.Errorf("load weights: %w", err)
	}

	threshold := l.ActivationThreshold
	if threshold <= 0 {
		threshold = 10
	}
	count, err := l.Repo.CountByUser(ctx, userID)
	if err != nil {
		return weights.Vector{}, false, fmt.Errorf("count feedback: %w", err)
	}
	if count < threshold {
		return current, false, nil
	}

	rows, err := l.Repo.ListByUser(ctx, userID)
	if err != nil {
		return weights.Vector{}, false, fmt.Errorf("list feedback: %w", err)
	}

	// A calibrated vector already reflects every row up to its own
	// CreatedAt. Without newer feedback a rerun would re-apply the same
	// shift and walk the weights to saturation.
	if current.Version > 0 && !hasFeedbackSince(rows, current.CreatedAt) {
		return current, false, nil
	}

	updated, ok := l.apply(current, rows)
	if !ok {
		return current, false, nil
	}

	updated.UserID = userID
	saved, err := l.Weights.Save(ctx, updated)
	if err != nil {
		return weights.Vector{}, false, fmt.Errorf("save weights: %w", err)
	}

	metrics.IncRecalibrations()
	if l.Notify != nil {
		l.Notify.WeightsRecalibrated(ctx, userID, saved.Version)
	}
	telemetry.Info("feedback.recalibrated", map[string]any{
		"user_id":  userID,
		"version":  saved.Version,
		"feedback": len(rows),
	})
	return saved, true, nil
}

// hasFeedbackSince reports whether any row postdates the given time.
func hasFeedbackSince(rows []Feedback, since time.Time) bool {
	for _, fb := range rows {
		if fb.CreatedAt.After(since) {
			return true
		}
	}
	return false
}

// apply computes the new vector from aggregate class means. Returns false
// when no recalibration is possible (single decision class, or malformed
// rows leave a class empty).
func (l *Learner) apply(current weights.Vector, rows []Feedback) (weights.Vector, bool) {
	type agg struct {
		sum   map[string]float64
		count int
	}
	newAgg := func() *agg { return &agg{sum: make(map[string]float64, len(weights.Features))} }
	approved, rejected := newAgg(), newAgg()

	for _, fb := range rows {
		var target *agg
		switch fb.Decision {
		case DecisionApproved:
			target = approved
		case DecisionRejected:
			target = rejected
		default:
			// Malformed decision value: skip the row, never abort.
			telemetry.Error("feedback.malformed_row", map[string]any{
				"feedback_id": fb.ID,
				"decision":    fb.Decision,
			})
			continue
		}
		if fb.Signals == nil {
			telemetry.Error("feedback.missing_signals", map[string]any{"feedback_id": fb.ID})
			continue
		}
		target.count++
		for _, f := range weights.Features {
			target.sum[f] += fb.Signals[f]
		}
	}

	if approved.count == 0 || rejected.count == 0 {
		return weights.Vector{}, false
	}

	rate := l.LearningRate
	if rate <= 0 || rate > 1 {
		rate = 0.10
	}

	raw := make(map[string]float64, len(weights.Features))
	for _, f := range weights.Features {
		meanApproved := approved.sum[f] / float64(approved.count)
		meanRejected := rejected.sum[f] / float64(rejected.count)
		raw[f] = current.Get(f) + rate*(meanApproved-meanRejected)
	}

	return weights.Vector{Weights: weights.Normalize(raw)}, true
}
