// Package scheduler runs the periodic background loops: scoring batches,
// dispatch of due applications, and feedback-driven weight recalibration.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"jobpilot-backend/internal/applications"
	"jobpilot-backend/internal/feedback"
	"jobpilot-backend/internal/matching"
	"jobpilot-backend/internal/shared/metrics"
	"jobpilot-backend/internal/shared/telemetry"
)

const dispatchBatchLimit = 50

// Scheduler wraps robfig/cron and manages the background ticks.
type Scheduler struct {
	cron *cron.Cron

	Scoring  *matching.Service
	Apps     *applications.Service
	Learner  *feedback.Learner
	Feedback feedback.Repo

	ScoringSpec  string
	DispatchSpec string
	LearningSpec string
}

// New constructs a Scheduler with the given cron specs (e.g. "@every 30m").
func New(scoring *matching.Service, apps *applications.Service, learner *feedback.Learner, fbRepo feedback.Repo, scoringSpec, dispatchSpec, learningSpec string) *Scheduler {
	return &Scheduler{
		cron:         cron.New(cron.WithLogger(cron.DefaultLogger)),
		Scoring:      scoring,
		Apps:         apps,
		Learner:      learner,
		Feedback:     fbRepo,
		ScoringSpec:  scoringSpec,
		DispatchSpec: dispatchSpec,
		LearningSpec: learningSpec,
	}
}

// Start registers the ticks and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs := []struct {
		spec string
		name string
		run  func(context.Context)
	}{
		{s.ScoringSpec, "scoring", s.runScoring},
		{s.DispatchSpec, "dispatch", s.runDispatch},
		{s.LearningSpec, "learning", s.runLearning},
	}
	for _, job := range jobs {
		run := job.run
		if _, err := s.cron.AddFunc(job.spec, func() { run(ctx) }); err != nil {
			return fmt.Errorf("cron.AddFunc %s: %w", job.name, err)
		}
	}

	s.cron.Start()
	telemetry.Info("scheduler.started", map[string]any{
		"scoring":  s.ScoringSpec,
		"dispatch": s.DispatchSpec,
		"learning": s.LearningSpec,
	})
	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	telemetry.Info("scheduler.stopped", nil)
}

// runScoring scores all active postings for every stored profile.
func (s *Scheduler) runScoring(ctx context.Context) {
	start := time.Now()
	stats, err := s.Scoring.ScoreAll(ctx)
	if err != nil {
		telemetry.Error("scheduler.scoring_failed", map[string]any{"error": err.Error()})
		return
	}
	metrics.ObserveScoringBatchMs(float64(time.Since(start).Milliseconds()))
	telemetry.Info("scheduler.scoring_complete", map[string]any{
		"scored":      stats.Scored,
		"skipped":     stats.Skipped,
		"created":     stats.Created,
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

// runDispatch re-drives Queued applications whose retry window has passed.
// With an SQS queue the worker owns the actual send; without one this tick
// processes sends inline.
func (s *Scheduler) runDispatch(ctx context.Context) {
	due, err := s.Apps.Repo.ListDue(ctx, time.Now().UTC(), dispatchBatchLimit)
	if err != nil {
		telemetry.Error("scheduler.dispatch_list_failed", map[string]any{"error": err.Error()})
		return
	}
	if len(due) == 0 {
		return
	}

	processed := 0
	for _, app := range due {
		if err := s.Apps.ProcessSend(ctx, app.ID); err != nil {
			telemetry.Error("scheduler.dispatch_failed", map[string]any{
				"application_id": app.ID,
				"error":          err.Error(),
			})
			continue
		}
		processed++
	}
	telemetry.Info("scheduler.dispatch_complete", map[string]any{
		"due":       len(due),
		"processed": processed,
	})
}

// runLearning recalibrates weights for every user past the activation
// threshold. Recalibrate itself skips users whose feedback is already
// reflected in their latest vector, so a tick over unchanged feedback
// is a no-op.
func (s *Scheduler) runLearning(ctx context.Context) {
	threshold := s.Learner.ActivationThreshold
	if threshold <= 0 {
		threshold = 10
	}
	userIDs, err := s.Feedback.ListUsersWithFeedback(ctx, threshold)
	if err != nil {
		telemetry.Error("scheduler.learning_list_failed", map[string]any{"error": err.Error()})
		return
	}

	applied := 0
	for _, userID := range userIDs {
		_, ok, err := s.Learner.Recalibrate(ctx, userID)
		if err != nil {
			telemetry.Error("scheduler.learning_failed", map[string]any{
				"user_id": userID,
				"error":   err.Error(),
			})
			continue
		}
		if ok {
			applied++
		}
	}
	telemetry.Info("scheduler.learning_complete", map[string]any{
		"candidates": len(userIDs),
		"applied":    applied,
	})
}
