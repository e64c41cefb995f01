package companies

import (
	"context"

	"brandscope-backend/internal/workflow"
)

// Repo abstracts company persistence. Saved prompts live in the shared
// prompts table, keyed by company instead of run.
type Repo interface {
	Create(ctx context.Context, company Company) error
	GetByID(ctx context.Context, id string) (Company, error)
	List(ctx context.Context, limit, offset int) ([]Company, error)
	Delete(ctx context.Context, id string) error

	AddPrompt(ctx context.Context, prompt workflow.Prompt) error
	// ListPrompts returns a company's saved prompts; activeOnly limits
	// output to prompts eligible for scheduled execution.
	ListPrompts(ctx context.Context, companyID string, activeOnly bool) ([]workflow.Prompt, error)
	SetPromptActive(ctx context.Context, companyID, promptID string, active bool) error
}
