package feedback

import "context"

// Repo defines persistence for feedback records. Rows are append-only:
// there is no update or delete operation by design.
type Repo interface {
	Append(ctx context.Context, fb Feedback) error
	ListByUser(ctx context.Context, userID string) ([]Feedback, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	// ListUsersWithFeedback returns the ids of users that have at least
	// min feedback rows (recalibration sweep input).
	ListUsersWithFeedback(ctx context.Context, min int) ([]string, error)
}
