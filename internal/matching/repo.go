package matching

import "context"

// Repo defines persistence operations for matches.
type Repo interface {
	// Create persists a new match; ErrDuplicate when the (user, posting)
	// pair is already scored.
	Create(ctx context.Context, m Match) error
	GetByID(ctx context.Context, id string) (Match, error)
	// ListSurfaced returns Pending, in-queue matches at or above the score
	// threshold, ordered score descending with recency tiebreak.
	ListSurfaced(ctx context.Context, userID string, threshold float64) ([]Match, error)
	// ListBackfill returns Pending matches above threshold not yet in the
	// queue, best first, up to limit.
	ListBackfill(ctx context.Context, userID string, threshold float64, limit int) ([]Match, error)
	CountInQueue(ctx context.Context, userID string) (int, error)
	SetInQueue(ctx context.Context, id string, inQueue bool) error
	// Decide transitions a match out of Pending. The status check and update
	// are atomic; ErrAlreadyDecided when the match already left Pending.
	Decide(ctx context.Context, id string, to Status) (Match, error)
	// ListPendingWithGap returns the user's Pending matches whose gap list
	// contains the given (normalized) skill.
	ListPendingWithGap(ctx context.Context, userID, skill string) ([]Match, error)
	// UpdateScoring rewrites score, reasoning, gaps, and signals on a match
	// that is still Pending; decided matches keep their committed snapshot.
	UpdateScoring(ctx context.Context, id string, r Result) error
}
