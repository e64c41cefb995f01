package readiness

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo for local development and tests.
type MemoryRepo struct {
	mu     sync.RWMutex
	runs   map[string]Run
	logs   map[string][]LogEntry
	nextID int64
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		runs: map[string]Run{},
		logs: map[string][]LogEntry{},
	}
}

func (r *MemoryRepo) CreateRun(_ context.Context, run Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run.UpdatedAt.IsZero() {
		run.UpdatedAt = run.CreatedAt
	}
	r.runs[run.ID] = run
	return nil
}

func (r *MemoryRepo) GetRun(_ context.Context, id string) (Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return Run{}, ErrNotFound
	}
	return run, nil
}

func (r *MemoryRepo) SetMessage(_ context.Context, id, message string) error {
	return r.update(id, func(run *Run) {
		run.Message = message
	})
}

func (r *MemoryRepo) SetCompleted(_ context.Context, id, recommendations string) error {
	return r.update(id, func(run *Run) {
		run.Status = StatusCompleted
		run.Recommendations = recommendations
		run.Message = "analysis complete"
	})
}

func (r *MemoryRepo) SetFailed(_ context.Context, id, message string) error {
	return r.update(id, func(run *Run) {
		run.Status = StatusError
		run.ErrorMessage = message
	})
}

func (r *MemoryRepo) AppendLog(_ context.Context, entry LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	entry.ID = r.nextID
	r.logs[entry.RunID] = append(r.logs[entry.RunID], entry)
	return nil
}

func (r *MemoryRepo) ListLogs(_ context.Context, runID string) ([]LogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := r.logs[runID]
	out := make([]LogEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (r *MemoryRepo) update(id string, mutate func(*Run)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return ErrNotFound
	}
	mutate(&run)
	run.UpdatedAt = time.Now().UTC()
	r.runs[id] = run
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
