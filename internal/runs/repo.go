package runs

import "context"

// Repo abstracts run persistence.
type Repo interface {
	Create(ctx context.Context, run Run) error
	GetByID(ctx context.Context, id string) (Run, error)
	List(ctx context.Context, limit, offset int) ([]Run, error)
	// UpdateState moves the run to the given step/status and refreshes
	// its progress descriptor in one write.
	UpdateState(ctx context.Context, id, step, status string, progress Progress) error
	SetFoundSitemap(ctx context.Context, id string, found bool) error
	// SetError marks the run failed and records the failure message.
	SetError(ctx context.Context, id, message string) error
	Delete(ctx context.Context, id string) error
}
