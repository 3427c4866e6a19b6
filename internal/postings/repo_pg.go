package postings

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

const selectColumns = `
SELECT id, title, company, embedding, sector, city, salary, requirements,
       remote, contact_email, source_url, active, scraped_at
FROM postings`

func (r *PGRepo) GetByID(ctx context.Context, id string) (Posting, error) {
	row := r.DB.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, id)
	p, err := scanPosting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Posting{}, ErrNotFound
	}
	return p, err
}

func (r *PGRepo) ListActive(ctx context.Context) ([]Posting, error) {
	rows, err := r.DB.QueryContext(ctx, selectColumns+` WHERE active = true ORDER BY scraped_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosting(row rowScanner) (Posting, error) {
	var p Posting
	var embedding, requirements []byte
	if err := row.Scan(
		&p.ID, &p.Title, &p.Company, &embedding, &p.Sector, &p.City, &p.Salary,
		&requirements, &p.Remote, &p.ContactEmail, &p.SourceURL, &p.Active, &p.ScrapedAt,
	); err != nil {
		return Posting{}, err
	}
	if len(embedding) > 0 {
		if err := json.Unmarshal(embedding, &p.Embedding); err != nil {
			return Posting{}, err
		}
	}
	if len(requirements) > 0 {
		if err := json.Unmarshal(requirements, &p.Requirements); err != nil {
			return Posting{}, err
		}
	}
	return p, nil
}

var _ Repo = (*PGRepo)(nil)
