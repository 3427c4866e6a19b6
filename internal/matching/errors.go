package matching

import "errors"

var (
	// ErrNotFound indicates no match exists with the given id.
	ErrNotFound = errors.New("match not found")
	// ErrAlreadyDecided indicates the match already left Pending.
	ErrAlreadyDecided = errors.New("match already decided")
	// ErrDuplicate indicates a match already exists for the (user, posting) pair.
	ErrDuplicate = errors.New("match already exists for posting")
)
