package workflow

import "context"

// Repo abstracts per-run workflow persistence: pages, categories,
// prompts, responses, and analyses.
type Repo interface {
	// UpsertPages inserts pages, ignoring duplicates on (run_id, url).
	UpsertPages(ctx context.Context, pages []Page) error
	ListPages(ctx context.Context, runID string) ([]Page, error)

	CreateCategories(ctx context.Context, categories []Category) error
	ListCategories(ctx context.Context, runID string) ([]Category, error)
	GetCategory(ctx context.Context, id string) (Category, error)

	// UpsertPrompts inserts prompts, ignoring duplicates on
	// (run_id, category_id, question).
	UpsertPrompts(ctx context.Context, prompts []Prompt) error
	ListPrompts(ctx context.Context, runID string) ([]Prompt, error)
	GetPrompt(ctx context.Context, id string) (Prompt, error)

	CreateResponse(ctx context.Context, resp Response) error
	// LatestResponse returns the newest response for a prompt.
	LatestResponse(ctx context.Context, promptID string) (Response, error)

	// UpsertAnalysis writes the single current analysis for a response,
	// overwriting any prior row.
	UpsertAnalysis(ctx context.Context, a StoredAnalysis) error
	GetAnalysis(ctx context.Context, responseID string) (StoredAnalysis, error)
	// ListAnalyses returns the current analysis of the latest response
	// for every prompt of a run.
	ListAnalyses(ctx context.Context, runID string) ([]StoredAnalysis, error)
}
