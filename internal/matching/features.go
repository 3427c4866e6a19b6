package matching

import (
	"errors"
	"math"
	"sort"
	"strings"

	"jobpilot-backend/internal/postings"
	"jobpilot-backend/internal/profiles"
	"jobpilot-backend/internal/weights"
)

// ErrBadEmbedding indicates a posting embedding that cannot be compared
// against the profile (empty or dimension mismatch). The scoring batch skips
// such postings instead of aborting.
var ErrBadEmbedding = errors.New("invalid posting embedding")

// neutralSalarySignal is reported when a posting does not disclose a salary.
const neutralSalarySignal = 0.5

// computeSignals derives every normalized feature signal (0..1) for a
// (profile, posting) pair. Pure: no clock, no randomness, no I/O.
func computeSignals(p profiles.Profile, post postings.Posting) (map[string]float64, error) {
	sim, err := cosineSimilarity(p.Embedding, post.Embedding)
	if err != nil {
		return nil, err
	}

	return map[string]float64{
		weights.FeatureEmbedding: sim,
		weights.FeatureSkills:    skillOverlap(p.Skills, post.Requirements),
		weights.FeatureSector:    membershipIndicator(post.Sector, p.PreferredSectors),
		weights.FeatureCity:      membershipIndicator(post.City, p.PreferredCities),
		weights.FeatureSalary:    salaryFit(post.Salary, p.SalaryMin, p.SalaryMax),
		weights.FeatureRemote:    remoteFit(p.RemotePreference, post.Remote),
	}, nil
}

// cosineSimilarity returns the cosine of the two vectors clamped to [0,1].
// Anti-aligned embeddings carry no useful ranking signal, so negatives floor
// at zero rather than extending the scale.
func cosineSimilarity(a, b []float64) (float64, error) {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0, ErrBadEmbedding
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, ErrBadEmbedding
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if cos < 0 {
		return 0, nil
	}
	if cos > 1 {
		return 1, nil
	}
	return cos, nil
}

// skillOverlap is the share of posting requirements the profile covers.
// A posting with no stated requirements imposes no skill constraint.
func skillOverlap(skills, requirements []string) float64 {
	if len(requirements) == 0 {
		return 1
	}
	have := make(map[string]bool, len(skills))
	for _, s := range skills {
		have[normalizeSkill(s)] = true
	}
	matched := 0
	for _, req := range requirements {
		if have[normalizeSkill(req)] {
			matched++
		}
	}
	return float64(matched) / float64(len(requirements))
}

// membershipIndicator reports 1 when value is in the preference list, and
// treats an empty preference list as no constraint.
func membershipIndicator(value string, preferred []string) float64 {
	if len(preferred) == 0 {
		return 1
	}
	needle := strings.ToLower(strings.TrimSpace(value))
	for _, p := range preferred {
		if strings.ToLower(strings.TrimSpace(p)) == needle {
			return 1
		}
	}
	return 0
}

// salaryFit is 1 when the posting salary falls inside the user's band,
// neutral when the posting discloses no salary.
func salaryFit(salary, min, max int) float64 {
	if salary <= 0 {
		return neutralSalarySignal
	}
	if min > 0 && salary < min {
		return 0
	}
	if max > 0 && salary > max {
		// Above the band still pays the bills; half credit.
		return neutralSalarySignal
	}
	return 1
}

func remoteFit(pref string, remote bool) float64 {
	switch strings.ToLower(strings.TrimSpace(pref)) {
	case profiles.RemoteOnly:
		if remote {
			return 1
		}
		return 0
	case profiles.OnsiteOnly:
		if !remote {
			return 1
		}
		return 0
	default:
		return 1
	}
}

// skillGaps lists the posting requirements the profile does not cover,
// sorted for deterministic output.
func skillGaps(skills, requirements []string) []string {
	have := make(map[string]bool, len(skills))
	for _, s := range skills {
		have[normalizeSkill(s)] = true
	}
	seen := make(map[string]bool, len(requirements))
	gaps := make([]string, 0)
	for _, req := range requirements {
		norm := normalizeSkill(req)
		if norm == "" || have[norm] || seen[norm] {
			continue
		}
		seen[norm] = true
		gaps = append(gaps, norm)
	}
	sort.Strings(gaps)
	return gaps
}

func normalizeSkill(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
