package applications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"jobpilot-backend/internal/dispatch"
	"jobpilot-backend/internal/matching"
	"jobpilot-backend/internal/notify"
	"jobpilot-backend/internal/postings"
	"jobpilot-backend/internal/queue"
	"jobpilot-backend/internal/shared/metrics"
	"jobpilot-backend/internal/shared/telemetry"
	"jobpilot-backend/internal/throttle"
)

// Service owns the application lifecycle: creation from approved matches,
// draft edits, throttled dispatch, withdrawal, and channel tracking
// callbacks.
type Service struct {
	Repo     Repo
	Matches  matching.Repo
	Postings postings.Repo
	Throttle *throttle.Gate
	Channels map[Channel]dispatch.Channel
	Queue    queue.Client
	Notify   *notify.Publisher

	// MaxSendAttempts bounds delivery retries before FAILED.
	MaxSendAttempts int
}

// CreateFromMatch creates the Queued application for an approved match.
// Decide calls this through the matching.ApplicationCreator interface.
func (s *Service) CreateFromMatch(ctx context.Context, m matching.Match, channel string) (string, error) {
	if m.Status != matching.StatusApproved {
		return "", ErrMatchNotApproved
	}
	ch, err := ParseChannel(channel)
	if err != nil {
		ch = ChannelEmail
	}

	app := Application{
		ID:        uuid.NewString(),
		MatchID:   m.ID,
		UserID:    m.UserID,
		PostingID: m.PostingID,
		Channel:   ch,
		Status:    StatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	app.UpdatedAt = app.CreatedAt
	if err := s.Repo.Create(ctx, app); err != nil {
		return "", err
	}
	return app.ID, nil
}

// Create builds an application for one of the caller's approved matches.
func (s *Service) Create(ctx context.Context, userID, matchID, channel, coverLetter, message string) (Application, error) {
	m, err := s.Matches.GetByID(ctx, matchID)
	if err != nil {
		return Application{}, err
	}
	if m.UserID != userID {
		return Application{}, matching.ErrNotFound
	}
	id, err := s.CreateFromMatch(ctx, m, channel)
	if err != nil {
		return Application{}, err
	}
	if coverLetter != "" || message != "" {
		return s.Repo.UpdateContent(ctx, id, coverLetter, message)
	}
	return s.Repo.GetByID(ctx, id)
}

func (s *Service) Get(ctx context.Context, userID, id string) (Application, error) {
	app, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Application{}, err
	}
	if app.UserID != userID {
		return Application{}, ErrNotFound
	}
	return app, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Application, error) {
	return s.Repo.ListByUser(ctx, userID)
}

// EditContent replaces the tailored cover letter and message while the
// application is still Queued.
func (s *Service) EditContent(ctx context.Context, userID, id, coverLetter, message string) (Application, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return Application{}, err
	}
	return s.Repo.UpdateContent(ctx, id, coverLetter, message)
}

// EnqueueSend puts a dispatch task on the queue for a Queued application.
// Without a queue backend the send is processed inline.
func (s *Service) EnqueueSend(ctx context.Context, userID, id string) error {
	app, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if app.Status != StatusQueued {
		return ErrAlreadySent
	}

	if s.Queue == nil {
		return s.ProcessSend(ctx, id)
	}
	msg := queue.Message{
		ApplicationID: id,
		RequestID:     uuid.NewString(),
		Attempt:       app.Attempts + 1,
		EnqueuedAt:    time.Now().UTC().Format(time.RFC3339),
		Version:       1,
	}
	if err := s.Queue.Send(ctx, msg); err != nil {
		return err
	}
	telemetry.Info("dispatch task enqueued", map[string]any{
		"applicationId": id,
		"channel":       string(app.Channel),
	})
	return nil
}

// ProcessSend is the worker entrypoint for one dispatch task. It is
// idempotent on the application id: repeated deliveries of the same task
// settle on one outcome.
func (s *Service) ProcessSend(ctx context.Context, id string) error {
	app, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			telemetry.Error("dispatch task for unknown application", map[string]any{"applicationId": id})
			return nil
		}
		return err
	}
	if app.Status != StatusQueued {
		return nil
	}
	if app.RetryAt != nil && app.RetryAt.After(time.Now().UTC()) {
		return nil
	}

	decision, err := s.Throttle.Admit(ctx, app.UserID, string(app.Channel))
	if err != nil {
		return err
	}
	if !decision.Admitted {
		metrics.IncThrottleDenials()
		if err := s.Repo.Defer(ctx, id, decision.RetryAfter); err != nil && !errors.Is(err, ErrAlreadySent) {
			return err
		}
		telemetry.Warn("send deferred by throttle", map[string]any{
			"applicationId": id,
			"channel":       string(app.Channel),
			"retryAt":       decision.RetryAfter.Format(time.RFC3339),
		})
		return nil
	}

	channel, ok := s.Channels[app.Channel]
	if !ok {
		return s.failSend(ctx, id, "channel not configured: "+string(app.Channel))
	}

	sent, err := s.Repo.Send(ctx, id, func(a Application) error {
		delivery, buildErr := s.buildDelivery(ctx, a)
		if buildErr != nil {
			return buildErr
		}
		return channel.Deliver(ctx, delivery)
	})
	if err != nil {
		if errors.Is(err, ErrAlreadySent) {
			return nil
		}
		var de *DeliveryError
		if errors.As(err, &de) {
			return s.failSend(ctx, id, de.Err.Error())
		}
		return err
	}

	metrics.IncApplicationsSent()
	s.Notify.ApplicationMoved(ctx, sent.UserID, sent.ID, string(StatusQueued), string(StatusSent))
	telemetry.Info("application sent", map[string]any{
		"applicationId": sent.ID,
		"userId":        sent.UserID,
		"channel":       string(sent.Channel),
	})
	return nil
}

func (s *Service) failSend(ctx context.Context, id, reason string) error {
	metrics.IncDispatchFailures()
	app, err := s.Repo.RecordFailure(ctx, id, reason, s.MaxSendAttempts)
	if err != nil {
		if errors.Is(err, ErrAlreadySent) || errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	telemetry.Error("send attempt failed", map[string]any{
		"applicationId": id,
		"attempts":      app.Attempts,
		"status":        string(app.Status),
		"reason":        reason,
	})
	if app.Status == StatusFailed {
		s.Notify.ApplicationMoved(ctx, app.UserID, app.ID, string(StatusQueued), string(StatusFailed))
	}
	return nil
}

func (s *Service) buildDelivery(ctx context.Context, app Application) (dispatch.Delivery, error) {
	posting, err := s.Postings.GetByID(ctx, app.PostingID)
	if err != nil {
		return dispatch.Delivery{}, err
	}
	return dispatch.Delivery{
		ApplicationID: app.ID,
		UserID:        app.UserID,
		PostingTitle:  posting.Title,
		Company:       posting.Company,
		Recipient:     posting.ContactEmail,
		CoverLetter:   app.CoverLetter,
		Message:       app.Message,
		SourceURL:     posting.SourceURL,
	}, nil
}

// Withdraw cancels a Queued application. It shares the Send mutual-exclusion
// boundary, so a concurrent in-flight send cannot also win.
func (s *Service) Withdraw(ctx context.Context, userID, id string) (Application, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return Application{}, err
	}
	app, err := s.Repo.Withdraw(ctx, id)
	if err != nil {
		return Application{}, err
	}
	s.Notify.ApplicationMoved(ctx, app.UserID, app.ID, string(StatusQueued), string(StatusWithdrawn))
	return app, nil
}

// trackEvents maps channel callback event names onto lifecycle statuses.
var trackEvents = map[string]Status{
	"viewed":    StatusViewed,
	"responded": StatusResponded,
	"rejected":  StatusRejected,
}

// Track applies a channel tracking callback (open, reply, rejection) to the
// application's lifecycle.
func (s *Service) Track(ctx context.Context, channel, applicationID, event string) (Application, error) {
	if _, err := ParseChannel(channel); err != nil {
		return Application{}, err
	}
	to, ok := trackEvents[event]
	if !ok {
		return Application{}, fmt.Errorf("unknown tracking event %q", event)
	}
	app, err := s.Repo.GetByID(ctx, applicationID)
	if err != nil {
		return Application{}, err
	}
	updated, err := s.Repo.Transition(ctx, applicationID, to, "tracking callback: "+event)
	if err != nil {
		return Application{}, err
	}
	s.Notify.ApplicationMoved(ctx, updated.UserID, updated.ID, string(app.Status), string(to))
	telemetry.Info("tracking event applied", map[string]any{
		"applicationId": applicationID,
		"channel":       channel,
		"event":         event,
		"to":            string(to),
	})
	return updated, nil
}

// Events lists the append-only transition history for one of the caller's
// applications.
func (s *Service) Events(ctx context.Context, userID, id string) ([]Event, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.Repo.Events(ctx, id)
}

var _ matching.ApplicationCreator = (*Service)(nil)
