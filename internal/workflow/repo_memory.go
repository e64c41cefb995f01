package workflow

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo for local development and tests.
type MemoryRepo struct {
	mu         sync.RWMutex
	pages      map[string]Page           // key: run_id|url
	categories map[string]Category       // key: id
	prompts    map[string]Prompt         // key: id
	promptKeys map[string]string         // key: run_id|category_id|question -> id
	responses  map[string][]Response     // key: prompt_id, append order
	analyses   map[string]StoredAnalysis // key: response_id
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		pages:      map[string]Page{},
		categories: map[string]Category{},
		prompts:    map[string]Prompt{},
		promptKeys: map[string]string{},
		responses:  map[string][]Response{},
		analyses:   map[string]StoredAnalysis{},
	}
}

func (r *MemoryRepo) UpsertPages(_ context.Context, pages []Page) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pages {
		key := p.RunID + "|" + p.URL
		if existing, ok := r.pages[key]; ok {
			// keep the original id and timestamp, refresh content
			p.ID = existing.ID
			p.CreatedAt = existing.CreatedAt
			if p.SnapshotKey == "" {
				p.SnapshotKey = existing.SnapshotKey
			}
		}
		r.pages[key] = p
	}
	return nil
}

func (r *MemoryRepo) ListPages(_ context.Context, runID string) ([]Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Page
	for _, p := range r.pages {
		if p.RunID == runID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].URL < out[j].URL
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) CreateCategories(_ context.Context, categories []Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range categories {
		r.categories[c.ID] = c
	}
	return nil
}

func (r *MemoryRepo) ListCategories(_ context.Context, runID string) ([]Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Category
	for _, c := range r.categories {
		if c.RunID == runID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) GetCategory(_ context.Context, id string) (Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.categories[id]
	if !ok {
		return Category{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) UpsertPrompts(_ context.Context, prompts []Prompt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range prompts {
		key := p.RunID + "|" + p.CategoryID + "|" + p.Question
		if _, ok := r.promptKeys[key]; ok {
			continue
		}
		r.promptKeys[key] = p.ID
		r.prompts[p.ID] = p
	}
	return nil
}

func (r *MemoryRepo) ListPrompts(_ context.Context, runID string) ([]Prompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Prompt
	for _, p := range r.prompts {
		if p.RunID == runID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Question < out[j].Question
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) GetPrompt(_ context.Context, id string) (Prompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.prompts[id]
	if !ok {
		return Prompt{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepo) CreateResponse(_ context.Context, resp Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[resp.PromptID] = append(r.responses[resp.PromptID], resp)
	return nil
}

func (r *MemoryRepo) LatestResponse(_ context.Context, promptID string) (Response, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.responses[promptID]
	if len(list) == 0 {
		return Response{}, ErrNotFound
	}
	return list[len(list)-1], nil
}

func (r *MemoryRepo) UpsertAnalysis(_ context.Context, a StoredAnalysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.analyses[a.ResponseID]; ok {
		a.CreatedAt = existing.CreatedAt
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now().UTC()
	}
	r.analyses[a.ResponseID] = a
	return nil
}

func (r *MemoryRepo) GetAnalysis(_ context.Context, responseID string) (StoredAnalysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.analyses[responseID]
	if !ok {
		return StoredAnalysis{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) ListAnalyses(_ context.Context, runID string) ([]StoredAnalysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []StoredAnalysis
	for _, p := range r.prompts {
		if p.RunID != runID {
			continue
		}
		list := r.responses[p.ID]
		if len(list) == 0 {
			continue
		}
		latest := list[len(list)-1]
		if a, ok := r.analyses[latest.ID]; ok {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
