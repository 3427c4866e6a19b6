package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"jobpilot-backend/internal/postings"
	"jobpilot-backend/internal/profiles"
	"jobpilot-backend/internal/shared/metrics"
	"jobpilot-backend/internal/shared/telemetry"
	"jobpilot-backend/internal/weights"
)

// Service runs scoring batches: it pulls the profile and active postings,
// scores every unseen pair under the user's current weight vector, and
// persists the surviving matches. Batches run off the request path.
type Service struct {
	Engine   Engine
	Repo     Repo
	Profiles profiles.Repo
	Postings postings.Repo
	Weights  weights.Repo
	Queue    *QueueManager
}

// BatchStats summarizes one scoring run.
type BatchStats struct {
	Scored  int
	Skipped int
	Created int
}

// ScoreUser scores all active postings for one user. A bad posting never
// aborts the batch: it is logged and skipped.
func (s *Service) ScoreUser(ctx context.Context, userID string) (BatchStats, error) {
	profile, err := s.Profiles.Get(ctx, userID)
	if err != nil {
		return BatchStats{}, fmt.Errorf("load profile: %w", err)
	}

	vector, err := weights.LatestOrDefault(ctx, s.Weights, userID)
	if err != nil {
		return BatchStats{}, fmt.Errorf("load weights: %w", err)
	}

	active, err := s.Postings.ListActive(ctx)
	if err != nil {
		return BatchStats{}, fmt.Errorf("list postings: %w", err)
	}

	var stats BatchStats
	for _, post := range active {
		result, err := s.Engine.Score(profile, post, vector)
		switch {
		case errors.Is(err, ErrBelowFloor):
			stats.Skipped++
			continue
		case errors.Is(err, ErrBadEmbedding):
			stats.Skipped++
			telemetry.Error("scoring.posting_skipped", map[string]any{
				"user_id":    userID,
				"posting_id": post.ID,
				"reason":     err.Error(),
			})
			continue
		case err != nil:
			return stats, fmt.Errorf("score posting %s: %w", post.ID, err)
		}
		stats.Scored++

		now := time.Now().UTC()
		m := Match{
			ID:        uuid.NewString(),
			UserID:    userID,
			PostingID: post.ID,
			Score:     result.Score,
			Reasoning: result.Reasoning,
			SkillGaps: result.SkillGaps,
			Signals:   result.Signals,
			Status:    StatusPending,
			ScrapedAt: post.ScrapedAt,
			CreatedAt: now,
		}
		if err := s.Repo.Create(ctx, m); err != nil {
			if errors.Is(err, ErrDuplicate) {
				continue
			}
			return stats, fmt.Errorf("persist match: %w", err)
		}
		stats.Created++
		metrics.IncMatchesScored()
	}

	if s.Queue != nil {
		if err := s.Queue.Fill(ctx, userID); err != nil {
			telemetry.Error("scoring.queue_fill_failed", map[string]any{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
	}

	telemetry.Info("scoring.batch_complete", map[string]any{
		"user_id": userID,
		"scored":  stats.Scored,
		"skipped": stats.Skipped,
		"created": stats.Created,
	})
	return stats, nil
}

// ScoreAll runs ScoreUser for every stored profile and aggregates the stats.
func (s *Service) ScoreAll(ctx context.Context) (BatchStats, error) {
	var total BatchStats
	ids, err := s.Profiles.ListUserIDs(ctx)
	if err != nil {
		return total, fmt.Errorf("list profiles: %w", err)
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		stats, err := s.ScoreUser(ctx, id)
		if err != nil {
			telemetry.Error("scoring.user_failed", map[string]any{
				"user_id": id,
				"error":   err.Error(),
			})
			continue
		}
		total.Scored += stats.Scored
		total.Skipped += stats.Skipped
		total.Created += stats.Created
	}
	return total, nil
}
