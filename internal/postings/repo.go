package postings

import (
	"context"
	"errors"
)

// ErrNotFound indicates no posting exists with the given id.
var ErrNotFound = errors.New("posting not found")

// Repo reads postings written by the scraping collaborator.
type Repo interface {
	GetByID(ctx context.Context, id string) (Posting, error)
	ListActive(ctx context.Context) ([]Posting, error)
}
