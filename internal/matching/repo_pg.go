package matching

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const matchColumns = `
SELECT id, user_id, posting_id, score, reasoning, skill_gaps, signals,
       status, in_queue, scraped_at, created_at, updated_at
FROM matches`

func (r *PGRepo) Create(ctx context.Context, m Match) error {
	gaps, err := json.Marshal(m.SkillGaps)
	if err != nil {
		return err
	}
	signals, err := json.Marshal(m.Signals)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, `
INSERT INTO matches (id, user_id, posting_id, score, reasoning, skill_gaps,
                     signals, status, in_queue, scraped_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`,
		m.ID, m.UserID, m.PostingID, m.Score, m.Reasoning, gaps,
		signals, m.Status, m.InQueue, m.ScrapedAt, m.CreatedAt)
	if err != nil && strings.Contains(err.Error(), "duplicate key") {
		return ErrDuplicate
	}
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Match, error) {
	row := r.DB.QueryRowContext(ctx, matchColumns+` WHERE id = $1`, id)
	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Match{}, ErrNotFound
	}
	return m, err
}

func (r *PGRepo) ListSurfaced(ctx context.Context, userID string, threshold float64) ([]Match, error) {
	rows, err := r.DB.QueryContext(ctx, matchColumns+`
WHERE user_id = $1 AND status = $2 AND in_queue = true AND score >= $3
ORDER BY score DESC, scraped_at DESC, id`, userID, StatusPending, threshold)
	if err != nil {
		return nil, err
	}
	return collectMatches(rows)
}

func (r *PGRepo) ListBackfill(ctx context.Context, userID string, threshold float64, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 1
	}
	rows, err := r.DB.QueryContext(ctx, matchColumns+`
WHERE user_id = $1 AND status = $2 AND in_queue = false AND score >= $3
ORDER BY score DESC, scraped_at DESC, id
LIMIT $4`, userID, StatusPending, threshold, limit)
	if err != nil {
		return nil, err
	}
	return collectMatches(rows)
}

func (r *PGRepo) CountInQueue(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `
SELECT COUNT(*) FROM matches WHERE user_id = $1 AND status = $2 AND in_queue = true`,
		userID, StatusPending).Scan(&n)
	return n, err
}

func (r *PGRepo) SetInQueue(ctx context.Context, id string, inQueue bool) error {
	res, err := r.DB.ExecContext(ctx, `
UPDATE matches SET in_queue = $1, updated_at = $2 WHERE id = $3`,
		inQueue, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Decide flips status away from Pending. The WHERE clause carries the status
// check so a concurrent decide loses cleanly instead of double-writing.
func (r *PGRepo) Decide(ctx context.Context, id string, to Status) (Match, error) {
	row := r.DB.QueryRowContext(ctx, `
UPDATE matches
SET status = $1, in_queue = false, updated_at = $2
WHERE id = $3 AND status = $4
RETURNING id, user_id, posting_id, score, reasoning, skill_gaps, signals,
          status, in_queue, scraped_at, created_at, updated_at`,
		to, time.Now().UTC(), id, StatusPending)
	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return Match{}, getErr
		}
		return Match{}, ErrAlreadyDecided
	}
	return m, err
}

func (r *PGRepo) ListPendingWithGap(ctx context.Context, userID, skill string) ([]Match, error) {
	needle, err := json.Marshal([]string{skill})
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, matchColumns+`
WHERE user_id = $1 AND status = $2 AND skill_gaps @> $3::jsonb
ORDER BY score DESC, scraped_at DESC, id`, userID, StatusPending, string(needle))
	if err != nil {
		return nil, err
	}
	return collectMatches(rows)
}

func (r *PGRepo) UpdateScoring(ctx context.Context, id string, result Result) error {
	gaps, err := json.Marshal(result.SkillGaps)
	if err != nil {
		return err
	}
	signals, err := json.Marshal(result.Signals)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `
UPDATE matches
SET score = $1, reasoning = $2, skill_gaps = $3, signals = $4, updated_at = $5
WHERE id = $6 AND status = $7`,
		result.Score, result.Reasoning, gaps, signals, time.Now().UTC(), id, StatusPending)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAlreadyDecided
	}
	return nil
}

func collectMatches(rows *sql.Rows) ([]Match, error) {
	defer rows.Close()
	var out []Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (Match, error) {
	var m Match
	var gaps, signals []byte
	var status string
	if err := row.Scan(
		&m.ID, &m.UserID, &m.PostingID, &m.Score, &m.Reasoning, &gaps, &signals,
		&status, &m.InQueue, &m.ScrapedAt, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return Match{}, err
	}
	m.Status = Status(status)
	if len(gaps) > 0 {
		if err := json.Unmarshal(gaps, &m.SkillGaps); err != nil {
			return Match{}, err
		}
	}
	if len(signals) > 0 {
		if err := json.Unmarshal(signals, &m.Signals); err != nil {
			return Match{}, err
		}
	}
	return m, nil
}

var _ Repo = (*PGRepo)(nil)
