// Package feedback stores user approve/reject signals and recalibrates
// per-user scoring weights from them.
package feedback

import "time"

// Feedback is an immutable append-only record of one match decision. The
// per-feature signal snapshot is copied from the match at decision time so
// recalibration never has to re-derive signals from since-mutated profiles.
type Feedback struct {
	ID        string             `json:"id"`
	MatchID   string             `json:"matchId"`
	UserID    string             `json:"userId"`
	Decision  string             `json:"decision"`
	Reason    string             `json:"reason,omitempty"`
	Signals   map[string]float64 `json:"signals"`
	CreatedAt time.Time          `json:"createdAt"`
}

// Decision values recorded on feedback rows.
const (
	DecisionApproved = "APPROVED"
	DecisionRejected = "REJECTED"
)
