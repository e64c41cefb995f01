package workflow

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"brandscope-backend/internal/analysis"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// UpsertPages inserts pages one row at a time, skipping duplicates.
// Batches are bounded to a few dozen rows so per-row inserts are fine.
func (r *PGRepo) UpsertPages(ctx context.Context, pages []Page) error {
	const query = `
INSERT INTO run_pages (id, run_id, url, content, fetched, fetch_error, snapshot_key, created_at)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8)
ON CONFLICT (run_id, url) DO UPDATE
SET content = EXCLUDED.content,
    fetched = EXCLUDED.fetched,
    fetch_error = EXCLUDED.fetch_error,
    snapshot_key = COALESCE(EXCLUDED.snapshot_key, run_pages.snapshot_key)`
	for _, p := range pages {
		if _, err := r.DB.ExecContext(ctx, query,
			p.ID, p.RunID, p.URL, p.Content, p.Fetched, p.FetchError, p.SnapshotKey, p.CreatedAt,
		); err != nil {
			return err
		}
	}
	return nil
}

// ListPages returns a run's pages in insertion order.
func (r *PGRepo) ListPages(ctx context.Context, runID string) ([]Page, error) {
	const query = `
SELECT id, run_id, url, content, fetched, fetch_error, snapshot_key, created_at
FROM run_pages
WHERE run_id = $1
ORDER BY created_at, url`
	rows, err := r.DB.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Page
	for rows.Next() {
		var p Page
		var content, fetchError, snapshotKey sql.NullString
		if err := rows.Scan(&p.ID, &p.RunID, &p.URL, &content, &p.Fetched, &fetchError, &snapshotKey, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Content = content.String
		p.FetchError = fetchError.String
		p.SnapshotKey = snapshotKey.String
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateCategories inserts category rows.
func (r *PGRepo) CreateCategories(ctx context.Context, categories []Category) error {
	const query = `
INSERT INTO categories (id, run_id, name, description, confidence, source_pages, custom, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, c := range categories {
		sourcePages, err := json.Marshal(c.SourcePages)
		if err != nil {
			return err
		}
		if _, err := r.DB.ExecContext(ctx, query,
			c.ID, c.RunID, c.Name, c.Description, c.Confidence, sourcePages, c.Custom, c.CreatedAt,
		); err != nil {
			return err
		}
	}
	return nil
}

// ListCategories returns a run's categories in insertion order.
func (r *PGRepo) ListCategories(ctx context.Context, runID string) ([]Category, error) {
	const query = `
SELECT id, run_id, name, description, confidence, source_pages, custom, created_at
FROM categories
WHERE run_id = $1
ORDER BY created_at, name`
	rows, err := r.DB.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCategory returns one category by ID.
func (r *PGRepo) GetCategory(ctx context.Context, id string) (Category, error) {
	const query = `
SELECT id, run_id, name, description, confidence, source_pages, custom, created_at
FROM categories
WHERE id = $1
LIMIT 1`
	c, err := scanCategory(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Category{}, ErrNotFound
		}
		return Category{}, err
	}
	return c, nil
}

// UpsertPrompts inserts prompts, treating duplicate questions from a
// prior partial run as no-ops.
func (r *PGRepo) UpsertPrompts(ctx context.Context, prompts []Prompt) error {
	const query = `
INSERT INTO prompts (id, run_id, company_id, category_id, question, language, country, region, intent, active, created_at, updated_at)
VALUES ($1, NULLIF($2, '')::uuid, NULLIF($3, '')::uuid, NULLIF($4, '')::uuid, $5, $6, NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), $10, $11, $11)
ON CONFLICT (run_id, category_id, question) DO NOTHING`
	for _, p := range prompts {
		if _, err := r.DB.ExecContext(ctx, query,
			p.ID, p.RunID, p.CompanyID, p.CategoryID, p.Question, p.Language, p.Country, p.Region, p.Intent, p.Active, p.CreatedAt,
		); err != nil {
			return err
		}
	}
	return nil
}

// ListPrompts returns a run's prompts in insertion order.
func (r *PGRepo) ListPrompts(ctx context.Context, runID string) ([]Prompt, error) {
	const query = `
SELECT id, run_id, company_id, category_id, question, language, country, region, intent, active, created_at, updated_at
FROM prompts
WHERE run_id = $1
ORDER BY created_at, question`
	rows, err := r.DB.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Prompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPrompt returns one prompt by ID.
func (r *PGRepo) GetPrompt(ctx context.Context, id string) (Prompt, error) {
	const query = `
SELECT id, run_id, company_id, category_id, question, language, country, region, intent, active, created_at, updated_at
FROM prompts
WHERE id = $1
LIMIT 1`
	p, err := scanPrompt(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Prompt{}, ErrNotFound
		}
		return Prompt{}, err
	}
	return p, nil
}

// CreateResponse appends a response row.
func (r *PGRepo) CreateResponse(ctx context.Context, resp Response) error {
	citations, err := json.Marshal(resp.Citations)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO responses (id, prompt_id, output_text, model, citations, created_at)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)`
	_, err = r.DB.ExecContext(ctx, query, resp.ID, resp.PromptID, resp.OutputText, resp.Model, citations, resp.CreatedAt)
	return err
}

// LatestResponse returns the newest response for a prompt.
func (r *PGRepo) LatestResponse(ctx context.Context, promptID string) (Response, error) {
	const query = `
SELECT id, prompt_id, output_text, model, citations, created_at
FROM responses
WHERE prompt_id = $1
ORDER BY created_at DESC
LIMIT 1`
	var resp Response
	var model sql.NullString
	var citations sql.NullString
	err := r.DB.QueryRowContext(ctx, query, promptID).Scan(
		&resp.ID, &resp.PromptID, &resp.OutputText, &model, &citations, &resp.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Response{}, ErrNotFound
		}
		return Response{}, err
	}
	resp.Model = model.String
	if citations.Valid {
		_ = json.Unmarshal([]byte(citations.String), &resp.Citations)
	}
	return resp, nil
}

// UpsertAnalysis writes the current analysis for a response. The
// response_id primary key guarantees at most one row per response.
func (r *PGRepo) UpsertAnalysis(ctx context.Context, a StoredAnalysis) error {
	contexts, err := json.Marshal(a.Result.MentionContexts)
	if err != nil {
		return err
	}
	urls, err := json.Marshal(a.Result.CitationURLs)
	if err != nil {
		return err
	}
	competitors, err := json.Marshal(a.Result.Competitors)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO response_analyses (
	response_id, prompt_id, exact_mentions, fuzzy_mentions, mention_contexts,
	citation_count, brand_citations, citation_urls, competitors,
	sentiment, sentiment_confidence, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
ON CONFLICT (response_id) DO UPDATE
SET exact_mentions = EXCLUDED.exact_mentions,
    fuzzy_mentions = EXCLUDED.fuzzy_mentions,
    mention_contexts = EXCLUDED.mention_contexts,
    citation_count = EXCLUDED.citation_count,
    brand_citations = EXCLUDED.brand_citations,
    citation_urls = EXCLUDED.citation_urls,
    competitors = EXCLUDED.competitors,
    sentiment = EXCLUDED.sentiment,
    sentiment_confidence = EXCLUDED.sentiment_confidence,
    updated_at = now()`
	_, err = r.DB.ExecContext(ctx, query,
		a.ResponseID,
		a.PromptID,
		a.Result.ExactMentions,
		a.Result.FuzzyMentions,
		contexts,
		a.Result.CitationCount,
		a.Result.BrandCitations,
		urls,
		competitors,
		a.Result.Sentiment.Tone,
		a.Result.Sentiment.Confidence,
		a.CreatedAt,
	)
	return err
}

// GetAnalysis returns the current analysis for a response.
func (r *PGRepo) GetAnalysis(ctx context.Context, responseID string) (StoredAnalysis, error) {
	const query = `
SELECT response_id, prompt_id, exact_mentions, fuzzy_mentions, mention_contexts,
       citation_count, brand_citations, citation_urls, competitors,
       sentiment, sentiment_confidence, created_at, updated_at
FROM response_analyses
WHERE response_id = $1
LIMIT 1`
	a, err := scanStoredAnalysis(r.DB.QueryRowContext(ctx, query, responseID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StoredAnalysis{}, ErrNotFound
		}
		return StoredAnalysis{}, err
	}
	return a, nil
}

// ListAnalyses returns the analysis of the latest response for every
// prompt of a run.
func (r *PGRepo) ListAnalyses(ctx context.Context, runID string) ([]StoredAnalysis, error) {
	const query = `
SELECT ra.response_id, ra.prompt_id, ra.exact_mentions, ra.fuzzy_mentions, ra.mention_contexts,
       ra.citation_count, ra.brand_citations, ra.citation_urls, ra.competitors,
       ra.sentiment, ra.sentiment_confidence, ra.created_at, ra.updated_at
FROM response_analyses ra
JOIN (
	SELECT DISTINCT ON (prompt_id) id
	FROM responses
	WHERE prompt_id IN (SELECT id FROM prompts WHERE run_id = $1)
	ORDER BY prompt_id, created_at DESC
) latest ON latest.id = ra.response_id
ORDER BY ra.created_at`
	rows, err := r.DB.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredAnalysis
	for rows.Next() {
		a, err := scanStoredAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

var _ Repo = (*PGRepo)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (Category, error) {
	var c Category
	var description sql.NullString
	var sourcePages sql.NullString
	if err := row.Scan(&c.ID, &c.RunID, &c.Name, &description, &c.Confidence, &sourcePages, &c.Custom, &c.CreatedAt); err != nil {
		return Category{}, err
	}
	c.Description = description.String
	if sourcePages.Valid {
		_ = json.Unmarshal([]byte(sourcePages.String), &c.SourcePages)
	}
	return c, nil
}

func scanPrompt(row rowScanner) (Prompt, error) {
	var p Prompt
	var runID, companyID, categoryID, country, region, intent sql.NullString
	if err := row.Scan(
		&p.ID, &runID, &companyID, &categoryID, &p.Question, &p.Language,
		&country, &region, &intent, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return Prompt{}, err
	}
	p.RunID = runID.String
	p.CompanyID = companyID.String
	p.CategoryID = categoryID.String
	p.Country = country.String
	p.Region = region.String
	p.Intent = intent.String
	return p, nil
}

func scanStoredAnalysis(row rowScanner) (StoredAnalysis, error) {
	var a StoredAnalysis
	var contexts, urls, competitors sql.NullString
	var tone sql.NullString
	var confidence sql.NullFloat64
	if err := row.Scan(
		&a.ResponseID, &a.PromptID,
		&a.Result.ExactMentions, &a.Result.FuzzyMentions, &contexts,
		&a.Result.CitationCount, &a.Result.BrandCitations, &urls, &competitors,
		&tone, &confidence, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return StoredAnalysis{}, err
	}
	if contexts.Valid {
		_ = json.Unmarshal([]byte(contexts.String), &a.Result.MentionContexts)
	}
	if urls.Valid {
		_ = json.Unmarshal([]byte(urls.String), &a.Result.CitationURLs)
	}
	if competitors.Valid {
		_ = json.Unmarshal([]byte(competitors.String), &a.Result.Competitors)
	}
	a.Result.Sentiment = analysis.Sentiment{Tone: tone.String, Confidence: confidence.Float64}
	return a, nil
}
