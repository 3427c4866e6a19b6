package applications

import "time"

// Application tracks one outbound job application derived from an approved
// match. Exactly one application may exist per match.
type Application struct {
	ID          string     `json:"id"`
	MatchID     string     `json:"matchId"`
	UserID      string     `json:"userId"`
	PostingID   string     `json:"postingId"`
	Channel     Channel    `json:"channel"`
	Status      Status     `json:"status"`
	CoverLetter string     `json:"coverLetter,omitempty"`
	Message     string     `json:"message,omitempty"`
	Attempts    int        `json:"attempts"`
	RetryAt     *time.Time `json:"retryAt,omitempty"`
	SentAt      *time.Time `json:"sentAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Event is one immutable entry in an application's lifecycle log.
type Event struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"applicationId"`
	FromStatus    Status    `json:"fromStatus"`
	ToStatus      Status    `json:"toStatus"`
	Detail        string    `json:"detail,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}
