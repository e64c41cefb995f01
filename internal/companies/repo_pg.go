package companies

import (
	"context"
	"database/sql"
	"errors"

	"brandscope-backend/internal/workflow"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new company.
func (r *PGRepo) Create(ctx context.Context, company Company) error {
	const query = `
INSERT INTO companies (id, name, brand_name, site_url, country, language, created_at, updated_at)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $7)`
	_, err := r.DB.ExecContext(ctx, query,
		company.ID, company.Name, company.BrandName, company.SiteURL,
		company.Country, company.Language, company.CreatedAt,
	)
	return err
}

// GetByID returns a company by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Company, error) {
	const query = `
SELECT id, name, brand_name, site_url, country, language, created_at, updated_at
FROM companies
WHERE id = $1
LIMIT 1`
	var c Company
	var country sql.NullString
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.BrandName, &c.SiteURL, &country, &c.Language, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Company{}, ErrNotFound
		}
		return Company{}, err
	}
	c.Country = country.String
	return c, nil
}

// List returns companies ordered by name.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Company, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	const query = `
SELECT id, name, brand_name, site_url, country, language, created_at, updated_at
FROM companies
ORDER BY name
LIMIT $1 OFFSET $2`
	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Company
	for rows.Next() {
		var c Company
		var country sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &c.BrandName, &c.SiteURL, &country, &c.Language, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.Country = country.String
		out = append(out, c)
	}
	return out, rows.Err()
}

// Delete removes a company and its saved prompts via cascade.
func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM companies WHERE id = $1::uuid`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddPrompt saves a company-scoped prompt.
func (r *PGRepo) AddPrompt(ctx context.Context, p workflow.Prompt) error {
	const query = `
INSERT INTO prompts (id, company_id, question, language, country, region, intent, active, created_at, updated_at)
VALUES ($1, $2::uuid, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, $9, $9)`
	_, err := r.DB.ExecContext(ctx, query,
		p.ID, p.CompanyID, p.Question, p.Language, p.Country, p.Region, p.Intent, p.Active, p.CreatedAt,
	)
	return err
}

// ListPrompts returns a company's saved prompts in insertion order.
func (r *PGRepo) ListPrompts(ctx context.Context, companyID string, activeOnly bool) ([]workflow.Prompt, error) {
	query := `
SELECT id, company_id, question, language, country, region, intent, active, created_at, updated_at
FROM prompts
WHERE company_id = $1`
	if activeOnly {
		query += ` AND active`
	}
	query += `
ORDER BY created_at, question`

	rows, err := r.DB.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []workflow.Prompt
	for rows.Next() {
		var p workflow.Prompt
		var country, region, intent sql.NullString
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.Question, &p.Language, &country, &region, &intent, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Country = country.String
		p.Region = region.String
		p.Intent = intent.String
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetPromptActive toggles a saved prompt's scheduling eligibility.
func (r *PGRepo) SetPromptActive(ctx context.Context, companyID, promptID string, active bool) error {
	const query = `
UPDATE prompts
SET active = $1,
    updated_at = now()
WHERE id = $2::uuid AND company_id = $3::uuid`
	res, err := r.DB.ExecContext(ctx, query, active, promptID, companyID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repo = (*PGRepo)(nil)
