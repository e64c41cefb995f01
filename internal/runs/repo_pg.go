package runs

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const runColumns = `
id, company_id, site_url, brand_name, country, language, region,
current_step, status, progress_step, progress_percent, progress_message,
found_sitemap, error_message, created_at, updated_at`

// Create inserts a new run.
func (r *PGRepo) Create(ctx context.Context, run Run) error {
	const query = `
INSERT INTO runs (
	id, company_id, site_url, brand_name, country, language, region,
	current_step, status, progress_step, progress_percent, progress_message, created_at
)
VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.DB.ExecContext(ctx, query,
		run.ID,
		run.CompanyID,
		run.SiteURL,
		run.BrandName,
		run.Country,
		run.Language,
		run.Region,
		run.CurrentStep,
		run.Status,
		run.Progress.Step,
		run.Progress.Percent,
		run.Progress.Message,
		run.CreatedAt,
	)
	return err
}

// GetByID returns a run by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Run, error) {
	const query = `
SELECT ` + runColumns + `
FROM runs
WHERE id = $1
LIMIT 1`
	run, err := scanRun(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrNotFound
		}
		return Run{}, err
	}
	return run, nil
}

// List returns runs ordered newest-first.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	const query = `
SELECT ` + runColumns + `
FROM runs
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`

	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// UpdateState moves the run to a new step/status and refreshes progress.
func (r *PGRepo) UpdateState(ctx context.Context, id, step, status string, progress Progress) error {
	const query = `
UPDATE runs
SET current_step = $1,
    status = $2,
    progress_step = $3,
    progress_percent = $4,
    progress_message = $5,
    updated_at = now()
WHERE id = $6::uuid`
	res, err := r.DB.ExecContext(ctx, query, step, status, progress.Step, progress.Percent, progress.Message, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetFoundSitemap records whether sitemap discovery succeeded.
func (r *PGRepo) SetFoundSitemap(ctx context.Context, id string, found bool) error {
	const query = `
UPDATE runs
SET found_sitemap = $1,
    updated_at = now()
WHERE id = $2::uuid`
	res, err := r.DB.ExecContext(ctx, query, found, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetError marks the run failed and records the failure message.
func (r *PGRepo) SetError(ctx context.Context, id, message string) error {
	const query = `
UPDATE runs
SET status = $1,
    error_message = $2,
    updated_at = now()
WHERE id = $3::uuid`
	res, err := r.DB.ExecContext(ctx, query, StatusFailed, message, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a run. Child rows go with it via ON DELETE CASCADE.
func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM runs WHERE id = $1::uuid`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repo = (*PGRepo)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var companyID sql.NullString
	var country sql.NullString
	var region sql.NullString
	var foundSitemap sql.NullBool
	var errorMessage sql.NullString
	err := row.Scan(
		&run.ID,
		&companyID,
		&run.SiteURL,
		&run.BrandName,
		&country,
		&run.Language,
		&region,
		&run.CurrentStep,
		&run.Status,
		&run.Progress.Step,
		&run.Progress.Percent,
		&run.Progress.Message,
		&foundSitemap,
		&errorMessage,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		return Run{}, err
	}
	if companyID.Valid {
		run.CompanyID = companyID.String
	}
	if country.Valid {
		run.Country = country.String
	}
	if region.Valid {
		run.Region = region.String
	}
	if foundSitemap.Valid {
		run.FoundSitemap = &foundSitemap.Bool
	}
	if errorMessage.Valid {
		run.ErrorMessage = &errorMessage.String
	}
	return run, nil
}
