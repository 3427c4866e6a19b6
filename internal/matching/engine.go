package matching

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"jobpilot-backend/internal/postings"
	"jobpilot-backend/internal/profiles"
	"jobpilot-backend/internal/weights"
)

// Engine computes match scores. Scoring is a pure deterministic function of
// (Profile, Posting, Vector): identical inputs always yield the identical
// score, reasoning, and gap list.
type Engine struct {
	// SimilarityFloor discards postings whose embedding similarity falls
	// below it before any weighted scoring happens.
	SimilarityFloor float64
}

// Result is the outcome of scoring one posting against one profile.
type Result struct {
	Score     float64
	Reasoning string
	SkillGaps []string
	Signals   map[string]float64
}

// ErrBelowFloor indicates the posting failed the embedding pre-filter.
var ErrBelowFloor = fmt.Errorf("similarity below floor")

var signalLabels = map[string]string{
	weights.FeatureEmbedding: "semantic fit",
	weights.FeatureSkills:    "skill coverage",
	weights.FeatureSector:    "sector preference",
	weights.FeatureCity:      "location preference",
	weights.FeatureSalary:    "salary band",
	weights.FeatureRemote:    "remote preference",
}

// Score evaluates one (profile, posting) pair under the given weight vector.
// Returns ErrBadEmbedding for malformed embeddings and ErrBelowFloor when the
// pre-filter rejects the posting.
func (e Engine) Score(p profiles.Profile, post postings.Posting, v weights.Vector) (Result, error) {
	signals, err := computeSignals(p, post)
	if err != nil {
		return Result{}, err
	}
	if signals[weights.FeatureEmbedding] < e.SimilarityFloor {
		return Result{}, ErrBelowFloor
	}

	total := 0.0
	for _, f := range weights.Features {
		total += v.Get(f) * signals[f]
	}
	score := clampScore(math.Round(total*1000) / 10)

	return Result{
		Score:     score,
		Reasoning: buildReasoning(score, signals, v),
		SkillGaps: skillGaps(p.Skills, post.Requirements),
		Signals:   signals,
	}, nil
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// buildReasoning renders a deterministic explanation: weighted contributions
// in descending order, strongest first, ties broken by feature name.
func buildReasoning(score float64, signals map[string]float64, v weights.Vector) string {
	type contribution struct {
		feature string
		value   float64
	}
	contribs := make([]contribution, 0, len(weights.Features))
	for _, f := range weights.Features {
		contribs = append(contribs, contribution{feature: f, value: v.Get(f) * signals[f]})
	}
	sort.Slice(contribs, func(i, j int) bool {
		if contribs[i].value != contribs[j].value {
			return contribs[i].value > contribs[j].value
		}
		return contribs[i].feature < contribs[j].feature
	})

	var b strings.Builder
	fmt.Fprintf(&b, "Scored %.1f/100.", score)
	for _, c := range contribs {
		signal := signals[c.feature]
		var verdict string
		switch {
		case signal >= 0.8:
			verdict = "strong"
		case signal >= 0.5:
			verdict = "partial"
		default:
			verdict = "weak"
		}
		fmt.Fprintf(&b, " %s: %s (%.2f).", signalLabels[c.feature], verdict, signal)
	}
	return b.String()
}

// Less orders matches for surfacing: score descending, then posting recency
// (most recently scraped first), then id for a total order.
func Less(a, b Match) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.ScrapedAt.Equal(b.ScrapedAt) {
		return a.ScrapedAt.After(b.ScrapedAt)
	}
	return a.ID < b.ID
}
