// Package matching owns the adaptive job-match scoring core: the scoring
// engine, the review queue, and the skill-gap re-scoring bridge.
package matching

import (
	"fmt"
	"time"
)

// Status values mirror the match_status enum in PostgreSQL.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusPending, StatusApproved, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown match status %q", s)
}

// Match is a scored (user, posting) pairing. Matches are never deleted, only
// status-transitioned, so the scoring audit trail stays intact.
type Match struct {
	ID        string             `json:"id"`
	UserID    string             `json:"userId"`
	PostingID string             `json:"postingId"`
	Score     float64            `json:"score"`
	Reasoning string             `json:"reasoning"`
	SkillGaps []string           `json:"skillGaps"`
	Signals   map[string]float64 `json:"signals"`
	Status    Status             `json:"status"`
	InQueue   bool               `json:"inQueue"`
	ScrapedAt time.Time          `json:"scrapedAt"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
