package profiles

import (
	"context"
	"errors"
)

// ErrNotFound indicates no profile exists for the user.
var ErrNotFound = errors.New("profile not found")

// Repo reads profiles written by the external profile collaborator.
type Repo interface {
	Get(ctx context.Context, userID string) (Profile, error)
	ListUserIDs(ctx context.Context) ([]string, error)
}
