package matching

import (
	"context"
	"fmt"
	"strings"
	"time"

	"jobpilot-backend/internal/feedback"
	"jobpilot-backend/internal/shared/metrics"
)

// Decision is a user's verdict on a surfaced match.
type Decision string

const (
	DecisionApproved Decision = "APPROVED"
	DecisionRejected Decision = "REJECTED"
)

// ParseDecision converts a raw string to a Decision.
func ParseDecision(s string) (Decision, error) {
	switch Decision(strings.ToUpper(strings.TrimSpace(s))) {
	case DecisionApproved:
		return DecisionApproved, nil
	case DecisionRejected:
		return DecisionRejected, nil
	}
	return "", fmt.Errorf("unknown decision %q", s)
}

// ApplicationCreator creates the Application for an approved match. Defined
// here so the queue manager stays decoupled from the applications package.
type ApplicationCreator interface {
	CreateFromMatch(ctx context.Context, m Match, channel string) (string, error)
}

// SurfaceNotifier receives announcements for matches entering a review
// queue. A nil notifier disables announcements.
type SurfaceNotifier interface {
	MatchSurfaced(ctx context.Context, userID, matchID string, score float64)
}

// QueueManager is the view/selection layer over match records: it surfaces
// the top Pending matches, applies user decisions, and backfills the queue.
// It computes no scores itself.
type QueueManager struct {
	Repo         Repo
	Feedback     feedback.Repo
	Applications ApplicationCreator
	Notify       SurfaceNotifier
	Threshold    float64
	Capacity     int
}

// DecisionOutcome reports what a decision produced.
type DecisionOutcome struct {
	Match         Match
	ApplicationID string
}

// ListSurfaced returns the user's review queue, best match first.
func (q *QueueManager) ListSurfaced(ctx context.Context, userID string) ([]Match, error) {
	return q.Repo.ListSurfaced(ctx, userID, q.Threshold)
}

// Decide applies an approve/reject verdict: transitions the match, records
// immutable feedback, backfills one queue slot, and on approval creates the
// Application on the requested channel.
func (q *QueueManager) Decide(ctx context.Context, matchID string, decision Decision, reason, channel string) (DecisionOutcome, error) {
	to := StatusRejected
	if decision == DecisionApproved {
		to = StatusApproved
	}

	m, err := q.Repo.Decide(ctx, matchID, to)
	if err != nil {
		return DecisionOutcome{}, err
	}

	fb := feedback.Feedback{
		MatchID:   m.ID,
		UserID:    m.UserID,
		Decision:  string(decision),
		Reason:    reason,
		Signals:   m.Signals,
		CreatedAt: time.Now().UTC(),
	}
	if err := q.Feedback.Append(ctx, fb); err != nil {
		return DecisionOutcome{}, fmt.Errorf("record feedback: %w", err)
	}
	metrics.IncMatchesDecided()

	outcome := DecisionOutcome{Match: m}
	if decision == DecisionApproved && q.Applications != nil {
		appID, err := q.Applications.CreateFromMatch(ctx, m, channel)
		if err != nil {
			return DecisionOutcome{}, fmt.Errorf("create application: %w", err)
		}
		outcome.ApplicationID = appID
	}

	// Backfill one slot so the queue stays topped up.
	candidates, err := q.Repo.ListBackfill(ctx, m.UserID, q.Threshold, 1)
	if err != nil {
		return DecisionOutcome{}, fmt.Errorf("backfill: %w", err)
	}
	for _, c := range candidates {
		if err := q.Repo.SetInQueue(ctx, c.ID, true); err != nil {
			return DecisionOutcome{}, fmt.Errorf("backfill: %w", err)
		}
		q.announce(ctx, c)
	}

	return outcome, nil
}

// Fill tops the queue up to capacity with the best Pending matches above the
// surfacing threshold.
func (q *QueueManager) Fill(ctx context.Context, userID string) error {
	capacity := q.Capacity
	if capacity <= 0 {
		capacity = 10
	}
	current, err := q.Repo.CountInQueue(ctx, userID)
	if err != nil {
		return err
	}
	if current >= capacity {
		return nil
	}
	candidates, err := q.Repo.ListBackfill(ctx, userID, q.Threshold, capacity-current)
	if err != nil {
		return err
	}
	for _, c := range candidates {
		if err := q.Repo.SetInQueue(ctx, c.ID, true); err != nil {
			return err
		}
		q.announce(ctx, c)
	}
	return nil
}

func (q *QueueManager) announce(ctx context.Context, m Match) {
	if q.Notify != nil {
		q.Notify.MatchSurfaced(ctx, m.UserID, m.ID, m.Score)
	}
}
