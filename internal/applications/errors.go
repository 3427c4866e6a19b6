package applications

import "errors"

var (
	// ErrNotFound indicates no application exists with the given id.
	ErrNotFound = errors.New("application not found")
	// ErrMatchNotApproved indicates an application was requested for a
	// match that is not Approved.
	ErrMatchNotApproved = errors.New("match is not approved")
	// ErrMatchAlreadyApplied indicates the match already has an application.
	ErrMatchAlreadyApplied = errors.New("match already has an application")
	// ErrNotEditable indicates tailored content edits after the application
	// left Queued.
	ErrNotEditable = errors.New("application is no longer editable")
	// ErrAlreadySent indicates a send attempt on an application that
	// already left Queued.
	ErrAlreadySent = errors.New("application already sent")
	// ErrNotWithdrawable indicates a withdraw on an application that
	// already left Queued.
	ErrNotWithdrawable = errors.New("application can no longer be withdrawn")
	// ErrInvalidTransition indicates a tracking update the state machine
	// rejects.
	ErrInvalidTransition = errors.New("transition not allowed")
)

// DeliveryError wraps an error raised by the channel delivery callback
// during Send, so callers can tell delivery failures apart from storage
// failures and count an attempt.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string { return "deliver: " + e.Err.Error() }
func (e *DeliveryError) Unwrap() error { return e.Err }
