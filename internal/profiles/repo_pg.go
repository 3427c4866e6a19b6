package profiles

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Get(ctx context.Context, userID string) (Profile, error) {
	var p Profile
	var embedding, skills, sectors, cities []byte
	err := r.DB.QueryRowContext(ctx, `
SELECT user_id, embedding, skills, summary, preferred_sectors, preferred_cities,
       salary_min, salary_max, remote_preference, updated_at
FROM profiles
WHERE user_id = $1`, userID).Scan(
		&p.UserID, &embedding, &skills, &p.Summary, &sectors, &cities,
		&p.SalaryMin, &p.SalaryMax, &p.RemotePreference, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	for _, pair := range []struct {
		raw []byte
		dst any
	}{
		{embedding, &p.Embedding},
		{skills, &p.Skills},
		{sectors, &p.PreferredSectors},
		{cities, &p.PreferredCities},
	} {
		if len(pair.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(pair.raw, pair.dst); err != nil {
			return Profile{}, err
		}
	}
	return p, nil
}

func (r *PGRepo) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT user_id FROM profiles ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ Repo = (*PGRepo)(nil)
