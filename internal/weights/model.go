package weights

import (
	"fmt"
	"math"
	"time"
)

// Feature names the scoring signals a weight applies to.
const (
	FeatureEmbedding = "embedding"
	FeatureSkills    = "skills"
	FeatureSector    = "sector"
	FeatureCity      = "city"
	FeatureSalary    = "salary"
	FeatureRemote    = "remote"
)

// Features lists every known feature in a stable order.
var Features = []string{
	FeatureEmbedding,
	FeatureSkills,
	FeatureSector,
	FeatureCity,
	FeatureSalary,
	FeatureRemote,
}

// sumTolerance is the float slack allowed when checking that weights sum to 1.
const sumTolerance = 1e-9

// Vector is a set of per-feature weights, each in [0,1], summing to 1.
type Vector struct {
	UserID    string             `json:"userId,omitempty"`
	Version   int                `json:"version"`
	Weights   map[string]float64 `json:"weights"`
	CreatedAt time.Time          `json:"createdAt"`
}

// DefaultVector returns the global default weights used until a user has a
// calibrated vector of their own.
func DefaultVector() Vector {
	return Vector{
		Version: 0,
		Weights: map[string]float64{
			FeatureEmbedding: 0.40,
			FeatureSkills:    0.25,
			FeatureSector:    0.10,
			FeatureCity:      0.10,
			FeatureSalary:    0.10,
			FeatureRemote:    0.05,
		},
	}
}

// Get returns the weight for a feature, or 0 for unknown features.
func (v Vector) Get(feature string) float64 {
	return v.Weights[feature]
}

// Clone returns a deep copy of the vector.
func (v Vector) Clone() Vector {
	out := v
	out.Weights = make(map[string]float64, len(v.Weights))
	for k, w := range v.Weights {
		out.Weights[k] = w
	}
	return out
}

// Validate checks the vector covers every feature with weights in [0,1]
// summing to 1.
func (v Vector) Validate() error {
	sum := 0.0
	for _, f := range Features {
		w, ok := v.Weights[f]
		if !ok {
			return fmt.Errorf("weight vector missing feature %q", f)
		}
		if w < 0 || w > 1 || math.IsNaN(w) {
			return fmt.Errorf("weight %q out of range: %v", f, w)
		}
		sum += w
	}
	if math.Abs(sum-1) > sumTolerance {
		return fmt.Errorf("weight vector sums to %v, want 1", sum)
	}
	return nil
}

// Normalize clamps every weight to [0,1] and rescales the vector to sum to 1.
// A vector that clamps to all zeros falls back to the defaults.
func Normalize(raw map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(Features))
	sum := 0.0
	for _, f := range Features {
		w := raw[f]
		if math.IsNaN(w) || w < 0 {
			w = 0
		}
		if w > 1 {
			w = 1
		}
		out[f] = w
		sum += w
	}
	if sum <= 0 {
		return DefaultVector().Weights
	}
	for f := range out {
		out[f] /= sum
	}
	return out
}
