package matching

import (
	"context"
	"errors"
	"fmt"

	"jobpilot-backend/internal/postings"
	"jobpilot-backend/internal/profiles"
	"jobpilot-backend/internal/shared/telemetry"
	"jobpilot-backend/internal/weights"
)

// Bridge re-scores Pending matches when a user closes a skill gap. Closing a
// gap can only remove a requirement miss, so the stored score is clamped to
// never decrease even if the weight vector moved in between.
type Bridge struct {
	Engine   Engine
	Repo     Repo
	Profiles profiles.Repo
	Postings postings.Repo
	Weights  weights.Repo
}

// SkillCompleted handles a skill-gap completion event from the learning
// collaborator. The profile is expected to already list the new skill.
func (b *Bridge) SkillCompleted(ctx context.Context, userID, skill string) (int, error) {
	skill = normalizeSkill(skill)
	if skill == "" {
		return 0, fmt.Errorf("skill is required")
	}

	profile, err := b.Profiles.Get(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load profile: %w", err)
	}
	if !profile.HasSkill(skill) {
		// Event arrived before the profile write; score with the skill added
		// so the gap still closes.
		profile.Skills = append(profile.Skills, skill)
	}

	vector, err := weights.LatestOrDefault(ctx, b.Weights, userID)
	if err != nil {
		return 0, fmt.Errorf("load weights: %w", err)
	}

	affected, err := b.Repo.ListPendingWithGap(ctx, userID, skill)
	if err != nil {
		return 0, fmt.Errorf("list affected matches: %w", err)
	}

	rescored := 0
	for _, m := range affected {
		post, err := b.Postings.GetByID(ctx, m.PostingID)
		if err != nil {
			telemetry.Error("skillgap.posting_missing", map[string]any{
				"match_id":   m.ID,
				"posting_id": m.PostingID,
				"error":      err.Error(),
			})
			continue
		}

		result, err := b.Engine.Score(profile, post, vector)
		if err != nil {
			telemetry.Error("skillgap.rescore_failed", map[string]any{
				"match_id": m.ID,
				"error":    err.Error(),
			})
			continue
		}
		// Monotone: a closed gap never lowers a stored score.
		if result.Score < m.Score {
			result.Score = m.Score
		}

		if err := b.Repo.UpdateScoring(ctx, m.ID, result); err != nil {
			if errors.Is(err, ErrAlreadyDecided) {
				continue
			}
			return rescored, fmt.Errorf("update match %s: %w", m.ID, err)
		}
		rescored++
	}

	telemetry.Info("skillgap.rescored", map[string]any{
		"user_id":  userID,
		"skill":    skill,
		"affected": len(affected),
		"rescored": rescored,
	})
	return rescored, nil
}
