package feedback

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Append(ctx context.Context, fb Feedback) error {
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	signals, err := json.Marshal(fb.Signals)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, `
INSERT INTO feedback (id, match_id, user_id, decision, reason, signals, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		fb.ID, fb.MatchID, fb.UserID, fb.Decision, fb.Reason, signals, fb.CreatedAt)
	return err
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string) ([]Feedback, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT id, match_id, user_id, decision, reason, signals, created_at
FROM feedback
WHERE user_id = $1
ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Feedback
	for rows.Next() {
		var fb Feedback
		var signals []byte
		if err := rows.Scan(&fb.ID, &fb.MatchID, &fb.UserID, &fb.Decision, &fb.Reason, &signals, &fb.CreatedAt); err != nil {
			return nil, err
		}
		if len(signals) > 0 {
			if err := json.Unmarshal(signals, &fb.Signals); err != nil {
				return nil, err
			}
		}
		out = append(out, fb)
	}
	return out, rows.Err()
}

func (r *PGRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM feedback WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

func (r *PGRepo) ListUsersWithFeedback(ctx context.Context, min int) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT user_id FROM feedback GROUP BY user_id HAVING COUNT(*) >= $1 ORDER BY user_id`, min)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

var _ Repo = (*PGRepo)(nil)
