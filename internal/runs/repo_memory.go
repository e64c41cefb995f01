package runs

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo for local development and tests.
type MemoryRepo struct {
	mu   sync.RWMutex
	runs map[string]Run
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{runs: map[string]Run{}}
}

func (r *MemoryRepo) Create(_ context.Context, run Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run.UpdatedAt.IsZero() {
		run.UpdatedAt = run.CreatedAt
	}
	r.runs[run.ID] = run
	return nil
}

func (r *MemoryRepo) GetByID(_ context.Context, id string) (Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return Run{}, ErrNotFound
	}
	return run, nil
}

func (r *MemoryRepo) List(_ context.Context, limit, offset int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	all := make([]Run, 0, len(r.runs))
	for _, run := range r.runs {
		all = append(all, run)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *MemoryRepo) UpdateState(_ context.Context, id, step, status string, progress Progress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return ErrNotFound
	}
	run.CurrentStep = step
	run.Status = status
	run.Progress = progress
	run.UpdatedAt = time.Now().UTC()
	r.runs[id] = run
	return nil
}

func (r *MemoryRepo) SetFoundSitemap(_ context.Context, id string, found bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return ErrNotFound
	}
	run.FoundSitemap = &found
	run.UpdatedAt = time.Now().UTC()
	r.runs[id] = run
	return nil
}

func (r *MemoryRepo) SetError(_ context.Context, id, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return ErrNotFound
	}
	run.Status = StatusFailed
	run.ErrorMessage = &message
	run.UpdatedAt = time.Now().UTC()
	r.runs[id] = run
	return nil
}

func (r *MemoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[id]; !ok {
		return ErrNotFound
	}
	delete(r.runs, id)
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
