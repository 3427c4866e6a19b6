// Package dispatch delivers application content to outbound channels.
package dispatch

import "context"

// Delivery is the channel-agnostic payload handed to a Channel.
type Delivery struct {
	ApplicationID string
	UserID        string
	PostingTitle  string
	Company       string
	Recipient     string
	Subject       string
	CoverLetter   string
	Message       string
	SourceURL     string
}

// Channel sends one delivery. Implementations must be safe for concurrent
// use; the worker fans out sends across goroutines.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, d Delivery) error
}
