package throttle

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// PGStore keeps throttle records in Postgres. A per-(user, channel) advisory
// transaction lock makes count-then-insert atomic across API and worker
// processes.
type PGStore struct {
	DB *sql.DB
}

func (s *PGStore) CountAndRecord(ctx context.Context, userID, channel string, since, now time.Time, limit int) (bool, time.Time, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, time.Time{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtext('throttle:' || $1 || ':' || $2))`,
		userID, channel); err != nil {
		return false, time.Time{}, err
	}

	var count int
	var oldest sql.NullTime
	err = tx.QueryRowContext(ctx, `
SELECT COUNT(*), MIN(sent_at)
FROM throttle_records
WHERE user_id = $1 AND channel = $2 AND sent_at >= $3`,
		userID, channel, since).Scan(&count, &oldest)
	if err != nil {
		return false, time.Time{}, err
	}

	oldestAt := time.Time{}
	if oldest.Valid {
		oldestAt = oldest.Time
	}
	if count >= limit {
		return false, oldestAt, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO throttle_records (id, user_id, channel, sent_at)
VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), userID, channel, now); err != nil {
		return false, time.Time{}, err
	}
	if err := tx.Commit(); err != nil {
		return false, time.Time{}, err
	}
	return true, oldestAt, nil
}

var _ Store = (*PGStore)(nil)
var _ Store = (*MemoryStore)(nil)
