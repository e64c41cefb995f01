package readiness

import "context"

// Repo abstracts readiness-job persistence.
type Repo interface {
	CreateRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id string) (Run, error)
	SetMessage(ctx context.Context, id, message string) error
	SetCompleted(ctx context.Context, id, recommendations string) error
	SetFailed(ctx context.Context, id, message string) error
	// AppendLog appends one entry; entries are never modified after.
	AppendLog(ctx context.Context, entry LogEntry) error
	// ListLogs returns a run's entries in append order.
	ListLogs(ctx context.Context, runID string) ([]LogEntry, error)
}
