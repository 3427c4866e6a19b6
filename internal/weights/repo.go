package weights

import (
	"context"
	"errors"
)

// ErrNotFound indicates a user has no calibrated weight vector yet.
var ErrNotFound = errors.New("weight vector not found")

// Repo defines persistence operations for per-user weight vectors.
// Vectors are versioned: Save appends a new version, Latest returns the most
// recent, prior versions stay queryable for audit and rollback.
type Repo interface {
	Latest(ctx context.Context, userID string) (Vector, error)
	Save(ctx context.Context, v Vector) (Vector, error)
	History(ctx context.Context, userID string, limit int) ([]Vector, error)
}

// LatestOrDefault returns the user's current vector, falling back to the
// global default when none has been calibrated.
func LatestOrDefault(ctx context.Context, repo Repo, userID string) (Vector, error) {
	v, err := repo.Latest(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return DefaultVector(), nil
	}
	if err != nil {
		return Vector{}, err
	}
	return v, nil
}
