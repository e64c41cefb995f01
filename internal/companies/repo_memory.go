package companies

import (
	"context"
	"sort"
	"sync"
	"time"

	"brandscope-backend/internal/workflow"
)

// MemoryRepo is an in-memory Repo for local development and tests.
type MemoryRepo struct {
	mu        sync.RWMutex
	companies map[string]Company
	prompts   map[string]workflow.Prompt
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		companies: map[string]Company{},
		prompts:   map[string]workflow.Prompt{},
	}
}

func (r *MemoryRepo) Create(_ context.Context, company Company) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if company.UpdatedAt.IsZero() {
		company.UpdatedAt = company.CreatedAt
	}
	r.companies[company.ID] = company
	return nil
}

func (r *MemoryRepo) GetByID(_ context.Context, id string) (Company, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.companies[id]
	if !ok {
		return Company{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) List(_ context.Context, limit, offset int) ([]Company, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	all := make([]Company, 0, len(r.companies))
	for _, c := range r.companies {
		all = append(all, c)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *MemoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.companies[id]; !ok {
		return ErrNotFound
	}
	delete(r.companies, id)
	for pid, p := range r.prompts {
		if p.CompanyID == id {
			delete(r.prompts, pid)
		}
	}
	return nil
}

func (r *MemoryRepo) AddPrompt(_ context.Context, p workflow.Prompt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts[p.ID] = p
	return nil
}

func (r *MemoryRepo) ListPrompts(_ context.Context, companyID string, activeOnly bool) ([]workflow.Prompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []workflow.Prompt
	for _, p := range r.prompts {
		if p.CompanyID != companyID {
			continue
		}
		if activeOnly && !p.Active {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Question < out[j].Question
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) SetPromptActive(_ context.Context, companyID, promptID string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.prompts[promptID]
	if !ok || p.CompanyID != companyID {
		return ErrNotFound
	}
	p.Active = active
	p.UpdatedAt = time.Now().UTC()
	r.prompts[promptID] = p
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
