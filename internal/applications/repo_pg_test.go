package applications

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newPGRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func queuedRow(id string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "match_id", "user_id", "posting_id", "channel", "status",
		"cover_letter", "message", "attempts", "retry_at", "sent_at",
		"created_at", "updated_at",
	}).AddRow(id, "match-1", "user-1", "posting-1", "EMAIL", "QUEUED",
		"cover", "msg", 0, nil, nil, now, now)
}

func TestPGSendDeliversInsideRowLock(t *testing.T) {
	repo, mock := newPGRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("app-1").
		WillReturnRows(queuedRow("app-1"))
	mock.ExpectExec("UPDATE applications").
		WithArgs(StatusSent, sqlmock.AnyArg(), "app-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO application_events").
		WithArgs(sqlmock.AnyArg(), "app-1", string(StatusQueued), string(StatusSent), "delivered via EMAIL", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	delivered := false
	app, err := repo.Send(context.Background(), "app-1", func(a Application) error {
		delivered = true
		if a.Status != StatusQueued {
			t.Fatalf("delivery must see the queued row, got %s", a.Status)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !delivered {
		t.Fatal("delivery callback not invoked")
	}
	if app.Status != StatusSent || app.SentAt == nil {
		t.Fatalf("unexpected result: %+v", app)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGSendRollsBackOnDeliveryError(t *testing.T) {
	repo, mock := newPGRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("app-1").
		WillReturnRows(queuedRow("app-1"))
	mock.ExpectRollback()

	boom := errors.New("smtp unreachable")
	_, err := repo.Send(context.Background(), "app-1", func(Application) error { return boom })
	var de *DeliveryError
	if !errors.As(err, &de) || !errors.Is(de.Err, boom) {
		t.Fatalf("expected DeliveryError wrapping cause, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGSendAlreadySent(t *testing.T) {
	repo, mock := newPGRepo(t)

	now := time.Now().UTC()
	sent := sqlmock.NewRows([]string{
		"id", "match_id", "user_id", "posting_id", "channel", "status",
		"cover_letter", "message", "attempts", "retry_at", "sent_at",
		"created_at", "updated_at",
	}).AddRow("app-1", "match-1", "user-1", "posting-1", "EMAIL", "SENT",
		"cover", "msg", 1, nil, now, now, now)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("app-1").WillReturnRows(sent)
	mock.ExpectRollback()

	_, err := repo.Send(context.Background(), "app-1", func(Application) error {
		t.Fatal("must not deliver an already sent application")
		return nil
	})
	if !errors.Is(err, ErrAlreadySent) {
		t.Fatalf("expected ErrAlreadySent, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGCreateMapsDuplicateKey(t *testing.T) {
	repo, mock := newPGRepo(t)

	mock.ExpectExec("INSERT INTO applications").
		WillReturnError(fmt.Errorf(`pq: duplicate key value violates unique constraint "applications_match_id_key"`))

	err := repo.Create(context.Background(), Application{
		ID: "app-1", MatchID: "match-1", UserID: "user-1", PostingID: "posting-1",
		Channel: ChannelEmail, CreatedAt: time.Now().UTC(),
	})
	if !errors.Is(err, ErrMatchAlreadyApplied) {
		t.Fatalf("expected ErrMatchAlreadyApplied, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGDeferZeroRowsMeansAlreadySent(t *testing.T) {
	repo, mock := newPGRepo(t)

	mock.ExpectExec("UPDATE applications").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "app-1", StatusQueued).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Defer(context.Background(), "app-1", time.Now().UTC().Add(time.Hour))
	if !errors.Is(err, ErrAlreadySent) {
		t.Fatalf("expected ErrAlreadySent, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGTransitionRejectsIllegalMove(t *testing.T) {
	repo, mock := newPGRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("app-1").WillReturnRows(queuedRow("app-1"))
	mock.ExpectRollback()

	_, err := repo.Transition(context.Background(), "app-1", StatusResponded, "callback")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
