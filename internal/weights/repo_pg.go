package weights

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Latest returns the newest weight vector version for a user.
func (r *PGRepo) Latest(ctx context.Context, userID string) (Vector, error) {
	row := r.DB.QueryRowContext(ctx, `
SELECT user_id, version, weights, created_at
FROM weight_vectors
WHERE user_id = $1
ORDER BY version DESC
LIMIT 1`, userID)
	return scanVector(row)
}

// Save appends a new vector version inside a transaction. The version number
// is derived from the current maximum under a row lock so concurrent saves
// can never collide.
func (r *PGRepo) Save(ctx context.Context, v Vector) (Vector, error) {
	payload, err := json.Marshal(v.Weights)
	if err != nil {
		return Vector{}, err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Vector{}, err
	}
	defer tx.Rollback()

	// Serialize version allocation per user.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext('weights:' || $1))`, v.UserID); err != nil {
		return Vector{}, err
	}

	var maxVersion sql.NullInt64
	if err := tx.QueryRowContext(ctx, `
SELECT MAX(version) FROM weight_vectors WHERE user_id = $1`, v.UserID).Scan(&maxVersion); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Vector{}, err
	}

	v.Version = int(maxVersion.Int64) + 1
	v.CreatedAt = time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
INSERT INTO weight_vectors (user_id, version, weights, created_at)
VALUES ($1, $2, $3, $4)`,
		v.UserID, v.Version, payload, v.CreatedAt); err != nil {
		return Vector{}, err
	}

	if err := tx.Commit(); err != nil {
		return Vector{}, err
	}
	return v, nil
}

// History returns up to limit prior versions, newest first.
func (r *PGRepo) History(ctx context.Context, userID string, limit int) ([]Vector, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.DB.QueryContext(ctx, `
SELECT user_id, version, weights, created_at
FROM weight_vectors
WHERE user_id = $1
ORDER BY version DESC
LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Vector
	for rows.Next() {
		v, err := scanVector(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVector(row rowScanner) (Vector, error) {
	var v Vector
	var payload []byte
	if err := row.Scan(&v.UserID, &v.Version, &payload, &v.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Vector{}, ErrNotFound
		}
		return Vector{}, err
	}
	if err := json.Unmarshal(payload, &v.Weights); err != nil {
		return Vector{}, err
	}
	return v, nil
}

var _ Repo = (*PGRepo)(nil)
