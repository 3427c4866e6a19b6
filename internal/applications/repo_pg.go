package applications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PGRepo implements Repo using Postgres. Every lifecycle mutation locks the
// application row first, so concurrent send/withdraw/track calls serialize
// per application id.
type PGRepo struct {
	DB *sql.DB
}

const appColumns = `
SELECT id, match_id, user_id, posting_id, channel, status, cover_letter,
       message, attempts, retry_at, sent_at, created_at, updated_at
FROM applications`

func (r *PGRepo) Create(ctx context.Context, app Application) error {
	_, err := r.DB.ExecContext(ctx, `
INSERT INTO applications (id, match_id, user_id, posting_id, channel, status,
                          cover_letter, message, attempts, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $9)`,
		app.ID, app.MatchID, app.UserID, app.PostingID, app.Channel, StatusQueued,
		app.CoverLetter, app.Message, app.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrMatchAlreadyApplied
		}
		return err
	}
	return r.appendEvent(ctx, r.DB, app.ID, "", StatusQueued, "created from approved match")
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Application, error) {
	row := r.DB.QueryRowContext(ctx, appColumns+` WHERE id = $1`, id)
	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Application{}, ErrNotFound
	}
	return app, err
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string) ([]Application, error) {
	rows, err := r.DB.QueryContext(ctx, appColumns+`
WHERE user_id = $1 ORDER BY updated_at DESC, id`, userID)
	if err != nil {
		return nil, err
	}
	return collectApplications(rows)
}

func (r *PGRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]Application, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, appColumns+`
WHERE status = $1 AND (retry_at IS NULL OR retry_at <= $2)
ORDER BY created_at, id
LIMIT $3`, StatusQueued, now, limit)
	if err != nil {
		return nil, err
	}
	return collectApplications(rows)
}

func (r *PGRepo) UpdateContent(ctx context.Context, id, coverLetter, message string) (Application, error) {
	row := r.DB.QueryRowContext(ctx, `
UPDATE applications
SET cover_letter = $1, message = $2, updated_at = $3
WHERE id = $4 AND status = $5
RETURNING `+returningColumns, coverLetter, message, time.Now().UTC(), id, StatusQueued)
	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return Application{}, getErr
		}
		return Application{}, ErrNotEditable
	}
	return app, err
}

// Send locks the row, verifies the application is still Queued, runs the
// delivery side effect, and commits the Sent flip. A delivery error rolls
// everything back so the application remains Queued; the caller records the
// failure separately.
func (r *PGRepo) Send(ctx context.Context, id string, deliver func(Application) error) (Application, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Application{}, err
	}
	defer tx.Rollback()

	app, err := lockApplication(ctx, tx, id)
	if err != nil {
		return Application{}, err
	}
	if app.Status != StatusQueued {
		return Application{}, ErrAlreadySent
	}

	if deliver != nil {
		if err := deliver(app); err != nil {
			return Application{}, &DeliveryError{Err: err}
		}
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
UPDATE applications
SET status = $1, sent_at = $2, retry_at = NULL, updated_at = $2
WHERE id = $3`, StatusSent, now, id); err != nil {
		return Application{}, err
	}
	if err := r.appendEvent(ctx, tx, id, StatusQueued, StatusSent, "delivered via "+string(app.Channel)); err != nil {
		return Application{}, err
	}
	if err := tx.Commit(); err != nil {
		return Application{}, err
	}

	app.Status = StatusSent
	app.SentAt = &now
	app.RetryAt = nil
	app.UpdatedAt = now
	return app, nil
}

// Withdraw shares the Send row lock, so a concurrent in-flight send and a
// withdraw can never both win.
func (r *PGRepo) Withdraw(ctx context.Context, id string) (Application, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Application{}, err
	}
	defer tx.Rollback()

	app, err := lockApplication(ctx, tx, id)
	if err != nil {
		return Application{}, err
	}
	if app.Status != StatusQueued {
		return Application{}, ErrNotWithdrawable
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
UPDATE applications SET status = $1, updated_at = $2 WHERE id = $3`,
		StatusWithdrawn, now, id); err != nil {
		return Application{}, err
	}
	if err := r.appendEvent(ctx, tx, id, StatusQueued, StatusWithdrawn, "withdrawn by user"); err != nil {
		return Application{}, err
	}
	if err := tx.Commit(); err != nil {
		return Application{}, err
	}

	app.Status = StatusWithdrawn
	app.UpdatedAt = now
	return app, nil
}

func (r *PGRepo) Defer(ctx context.Context, id string, retryAt time.Time) error {
	res, err := r.DB.ExecContext(ctx, `
UPDATE applications SET retry_at = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		retryAt, time.Now().UTC(), id, StatusQueued)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAlreadySent
	}
	return nil
}

func (r *PGRepo) RecordFailure(ctx context.Context, id, reason string, maxAttempts int) (Application, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Application{}, err
	}
	defer tx.Rollback()

	app, err := lockApplication(ctx, tx, id)
	if err != nil {
		return Application{}, err
	}
	if app.Status != StatusQueued {
		return Application{}, ErrAlreadySent
	}

	now := time.Now().UTC()
	app.Attempts++
	status := StatusQueued
	if maxAttempts > 0 && app.Attempts >= maxAttempts {
		status = StatusFailed
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE applications SET status = $1, attempts = $2, updated_at = $3 WHERE id = $4`,
		status, app.Attempts, now, id); err != nil {
		return Application{}, err
	}
	detail := fmt.Sprintf("send attempt %d failed: %s", app.Attempts, reason)
	if err := r.appendEvent(ctx, tx, id, StatusQueued, status, detail); err != nil {
		return Application{}, err
	}
	if err := tx.Commit(); err != nil {
		return Application{}, err
	}

	app.Status = status
	app.UpdatedAt = now
	return app, nil
}

func (r *PGRepo) Transition(ctx context.Context, id string, to Status, detail string) (Application, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Application{}, err
	}
	defer tx.Rollback()

	app, err := lockApplication(ctx, tx, id)
	if err != nil {
		return Application{}, err
	}
	if !IsTransitionAllowed(app.Status, to) {
		return Application{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, app.Status, to)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
UPDATE applications SET status = $1, updated_at = $2 WHERE id = $3`, to, now, id); err != nil {
		return Application{}, err
	}
	if err := r.appendEvent(ctx, tx, id, app.Status, to, detail); err != nil {
		return Application{}, err
	}
	if err := tx.Commit(); err != nil {
		return Application{}, err
	}

	app.Status = to
	app.UpdatedAt = now
	return app, nil
}

func (r *PGRepo) Events(ctx context.Context, applicationID string) ([]Event, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT id, application_id, from_status, to_status, detail, created_at
FROM application_events
WHERE application_id = $1
ORDER BY created_at, id`, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var from, to string
		if err := rows.Scan(&e.ID, &e.ApplicationID, &from, &to, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.FromStatus = Status(from)
		e.ToStatus = Status(to)
		out = append(out, e)
	}
	return out, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *PGRepo) appendEvent(ctx context.Context, db execer, appID string, from, to Status, detail string) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO application_events (id, application_id, from_status, to_status, detail, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.NewString(), appID, string(from), string(to), detail, time.Now().UTC())
	return err
}

func lockApplication(ctx context.Context, tx *sql.Tx, id string) (Application, error) {
	row := tx.QueryRowContext(ctx, appColumns+` WHERE id = $1 FOR UPDATE`, id)
	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Application{}, ErrNotFound
	}
	return app, err
}

const returningColumns = `id, match_id, user_id, posting_id, channel, status, cover_letter,
       message, attempts, retry_at, sent_at, created_at, updated_at`

func collectApplications(rows *sql.Rows) ([]Application, error) {
	defer rows.Close()
	var out []Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (Application, error) {
	var app Application
	var channel, status string
	var retryAt, sentAt sql.NullTime
	if err := row.Scan(
		&app.ID, &app.MatchID, &app.UserID, &app.PostingID, &channel, &status,
		&app.CoverLetter, &app.Message, &app.Attempts, &retryAt, &sentAt,
		&app.CreatedAt, &app.UpdatedAt,
	); err != nil {
		return Application{}, err
	}
	app.Channel = Channel(channel)
	app.Status = Status(status)
	if retryAt.Valid {
		t := retryAt.Time
		app.RetryAt = &t
	}
	if sentAt.Valid {
		t := sentAt.Time
		app.SentAt = &t
	}
	return app, nil
}

var _ Repo = (*PGRepo)(nil)
