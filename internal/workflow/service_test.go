package workflow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"brandscope-backend/internal/llm"
	"brandscope-backend/internal/runs"
)

type fakeLLM struct {
	complete func(ctx context.Context, in llm.CompleteInput) (llm.Completion, error)
}

func (f *fakeLLM) Complete(ctx context.Context, in llm.CompleteInput) (llm.Completion, error) {
	return f.complete(ctx, in)
}

func newTestService(t *testing.T, client llm.Client) (*Service, *runs.MemoryRepo, *MemoryRepo) {
	t.Helper()
	runRepo := runs.NewMemoryRepo()
	repo := NewMemoryRepo()
	svc := &Service{
		Runs:                 runRepo,
		Repo:                 repo,
		Discoverer:           NewDiscoverer(5*time.Second, 50),
		Fetcher:              NewFetcher(5*time.Second, nil, 2000),
		LLM:                  client,
		QuestionsPerCategory: 5,
		LLMTimeout:           5 * time.Second,
	}
	return svc, runRepo, repo
}

func seedRun(t *testing.T, runRepo *runs.MemoryRepo, step, status string) runs.Run {
	t.Helper()
	svc := runs.NewService(runRepo)
	run, err := svc.Create(context.Background(), runs.CreateInput{
		SiteURL:   "https://acme.example",
		BrandName: "Acme",
	})
	if err != nil {
		t.Fatalf("seed run: %v", err)
	}
	if step != runs.StepPending || status != runs.StatusPending {
		if err := runRepo.UpdateState(context.Background(), run.ID, step, status, runs.Progress{Step: step}); err != nil {
			t.Fatalf("seed state: %v", err)
		}
	}
	run, err = runRepo.GetByID(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("reload run: %v", err)
	}
	return run
}

func seedPages(t *testing.T, repo *MemoryRepo, runID string, pages []Page) {
	t.Helper()
	for i := range pages {
		if pages[i].ID == "" {
			pages[i].ID = fmt.Sprintf("page-%d", i)
		}
		pages[i].RunID = runID
		if pages[i].CreatedAt.IsZero() {
			pages[i].CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Millisecond)
		}
	}
	if err := repo.UpsertPages(context.Background(), pages); err != nil {
		t.Fatalf("seed pages: %v", err)
	}
}

func TestStepOrderEnforced(t *testing.T) {
	svc, runRepo, _ := newTestService(t, &fakeLLM{})
	run := seedRun(t, runRepo, runs.StepPending, runs.StatusPending)

	if _, err := svc.FetchContent(context.Background(), run.ID); !errors.Is(err, ErrStepNotReady) {
		t.Fatalf("FetchContent on pending run: expected ErrStepNotReady, got %v", err)
	}
	if _, err := svc.GenerateCategories(context.Background(), run.ID); !errors.Is(err, ErrStepNotReady) {
		t.Fatalf("GenerateCategories on pending run: expected ErrStepNotReady, got %v", err)
	}
	if _, _, err := svc.ExecuteAllPrompts(context.Background(), run.ID); !errors.Is(err, ErrStepNotReady) {
		t.Fatalf("ExecuteAllPrompts on pending run: expected ErrStepNotReady, got %v", err)
	}
}

func TestFetchContentToleratesPartialFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/bad") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("<html><body><p>Content for " + r.URL.Path + "</p></body></html>"))
	}))
	t.Cleanup(srv.Close)

	svc, runRepo, repo := newTestService(t, &fakeLLM{})
	run := seedRun(t, runRepo, runs.StepSitemapFound, runs.StatusRunning)
	seedPages(t, repo, run.ID, []Page{
		{URL: srv.URL + "/ok-1"},
		{URL: srv.URL + "/ok-2"},
		{URL: srv.URL + "/bad-1"},
		{URL: srv.URL + "/ok-3"},
		{URL: srv.URL + "/bad-2"},
	})

	result, err := svc.FetchContent(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("FetchContent: %v", err)
	}
	if result.FetchedCount != 3 || result.FailedCount != 2 {
		t.Fatalf("fetched=%d failed=%d, want 3/2", result.FetchedCount, result.FailedCount)
	}

	pages, err := repo.ListPages(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("ListPages: %v", err)
	}
	var withError int
	for _, p := range pages {
		if p.FetchError != "" {
			withError++
		}
	}
	if withError != 2 {
		t.Fatalf("expected 2 pages with fetch errors, got %d", withError)
	}

	got, _ := runRepo.GetByID(context.Background(), run.ID)
	if got.CurrentStep != runs.StepContentFetched {
		t.Fatalf("step = %q, want content_fetched", got.CurrentStep)
	}
}

func TestGenerateCategoriesRepairsSchemaOnce(t *testing.T) {
	var calls int
	client := &fakeLLM{complete: func(ctx context.Context, in llm.CompleteInput) (llm.Completion, error) {
		calls++
		if calls == 1 {
			return llm.Completion{Text: "sorry, here is prose instead of JSON"}, nil
		}
		if _, ok := llm.ExtraSystemMessageFromContext(ctx); !ok {
			t.Error("retry call should carry a repair system message")
		}
		return llm.Completion{Text: `[{"name":"Widgets","confidence":0.8}]`}, nil
	}}

	svc, runRepo, repo := newTestService(t, client)
	run := seedRun(t, runRepo, runs.StepContentFetched, runs.StatusRunning)
	seedPages(t, repo, run.ID, []Page{{URL: "https://acme.example/a", Fetched: true, Content: "widgets and tools"}})

	categories, err := svc.GenerateCategories(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("GenerateCategories: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 LLM calls, got %d", calls)
	}
	if len(categories) != 1 || categories[0].Name != "Widgets" {
		t.Fatalf("unexpected categories: %+v", categories)
	}

	got, _ := runRepo.GetByID(context.Background(), run.ID)
	if got.CurrentStep != runs.StepCategoriesGenerated {
		t.Fatalf("step = %q, want categories_generated", got.CurrentStep)
	}
}

func TestGenerateCategoriesSurfacesSchemaError(t *testing.T) {
	client := &fakeLLM{complete: func(ctx context.Context, in llm.CompleteInput) (llm.Completion, error) {
		return llm.Completion{Text: "still not JSON"}, nil
	}}

	svc, runRepo, repo := newTestService(t, client)
	run := seedRun(t, runRepo, runs.StepContentFetched, runs.StatusRunning)
	seedPages(t, repo, run.ID, []Page{{URL: "https://acme.example/a", Fetched: true, Content: "widgets"}})

	_, err := svc.GenerateCategories(context.Background(), run.ID)
	if !IsSchemaError(err) {
		t.Fatalf("expected SchemaError, got %v", err)
	}

	// a schema mismatch aborts the step but does not fail the run
	got, _ := runRepo.GetByID(context.Background(), run.ID)
	if got.Status == runs.StatusFailed {
		t.Fatal("schema error must not mark the run failed")
	}
	if got.CurrentStep != runs.StepContentFetched {
		t.Fatalf("step advanced despite schema error: %q", got.CurrentStep)
	}
}

func seedCategories(t *testing.T, repo *MemoryRepo, runID string, names ...string) []Category {
	t.Helper()
	now := time.Now().UTC()
	var out []Category
	for i, name := range names {
		out = append(out, Category{
			ID:         fmt.Sprintf("cat-%d", i),
			RunID:      runID,
			Name:       name,
			Confidence: 0.8,
			CreatedAt:  now.Add(time.Duration(i) * time.Millisecond),
		})
	}
	if err := repo.CreateCategories(context.Background(), out); err != nil {
		t.Fatalf("seed categories: %v", err)
	}
	return out
}

func TestGeneratePromptsProducesQuestionsPerCategory(t *testing.T) {
	client := &fakeLLM{complete: func(ctx context.Context, in llm.CompleteInput) (llm.Completion, error) {
		return llm.Completion{Text: `["Q one?","Q two?","Q three?"]`}, nil
	}}

	svc, runRepo, repo := newTestService(t, client)
	run := seedRun(t, runRepo, runs.StepCategoriesGenerated, runs.StatusRunning)
	seedCategories(t, repo, run.ID, "Widgets", "Tools")

	prompts, err := svc.GeneratePrompts(context.Background(), run.ID, nil, 3)
	if err != nil {
		t.Fatalf("GeneratePrompts: %v", err)
	}
	if len(prompts) != 6 {
		t.Fatalf("expected 6 prompts (2 categories x 3), got %d", len(prompts))
	}
	byCategory := map[string]int{}
	for _, p := range prompts {
		byCategory[p.CategoryID]++
		if p.Language != "en" {
			t.Fatalf("prompt language = %q, want en", p.Language)
		}
	}
	for id, n := range byCategory {
		if n != 3 {
			t.Fatalf("category %s has %d prompts, want 3", id, n)
		}
	}
}

func TestGeneratePromptsToleratesCategoryFailure(t *testing.T) {
	client := &fakeLLM{complete: func(ctx context.Context, in llm.CompleteInput) (llm.Completion, error) {
		if strings.Contains(in.Prompt, "Widgets") {
			return llm.Completion{}, errors.New("upstream unavailable")
		}
		return llm.Completion{Text: `["Q one?","Q two?"]`}, nil
	}}

	svc, runRepo, repo := newTestService(t, client)
	run := seedRun(t, runRepo, runs.StepCategoriesGenerated, runs.StatusRunning)
	seedCategories(t, repo, run.ID, "Widgets", "Tools")

	prompts, err := svc.GeneratePrompts(context.Background(), run.ID, nil, 2)
	if err != nil {
		t.Fatalf("GeneratePrompts: %v", err)
	}
	if len(prompts) != 2 {
		t.Fatalf("expected 2 prompts from the surviving category, got %d", len(prompts))
	}
}

func seedPrompts(t *testing.T, repo *MemoryRepo, runID string, questions ...string) []Prompt {
	t.Helper()
	now := time.Now().UTC()
	var out []Prompt
	for i, q := range questions {
		out = append(out, Prompt{
			ID:        fmt.Sprintf("prompt-%d", i),
			RunID:     runID,
			Question:  q,
			Language:  "en",
			Active:    true,
			CreatedAt: now.Add(time.Duration(i) * time.Millisecond),
			UpdatedAt: now,
		})
	}
	if err := repo.UpsertPrompts(context.Background(), out); err != nil {
		t.Fatalf("seed prompts: %v", err)
	}
	return out
}

func TestExecutePromptPersistsResponseAndAnalysis(t *testing.T) {
	client := &fakeLLM{complete: func(ctx context.Context, in llm.CompleteInput) (llm.Completion, error) {
		if !in.WebSearch {
			t.Error("prompt execution must enable web search")
		}
		return llm.Completion{
			Text:  "Acme is a solid choice. Many reviewers rate Acme highly for durability.",
			Model: "gpt-4o-search",
			Citations: []llm.Citation{
				{URL: "https://acme.example/about", Title: "Acme Widgets Official Site"},
				{URL: "https://reviews.example/widgets", Title: "Widget roundup"},
			},
		}, nil
	}}

	svc, runRepo, repo := newTestService(t, client)
	run := seedRun(t, runRepo, runs.StepPromptsGenerated, runs.StatusRunning)
	prompts := seedPrompts(t, repo, run.ID, "What is the best widget?")

	result, err := svc.ExecutePrompt(context.Background(), run.ID, prompts[0].ID)
	if err != nil {
		t.Fatalf("ExecutePrompt: %v", err)
	}
	if result.Analysis.ExactMentions != 2 {
		t.Fatalf("exact mentions = %d, want 2", result.Analysis.ExactMentions)
	}
	if result.Analysis.BrandCitations != 1 {
		t.Fatalf("brand citations = %d, want 1", result.Analysis.BrandCitations)
	}
	if result.Analysis.CitationCount != 2 {
		t.Fatalf("citation count = %d, want 2", result.Analysis.CitationCount)
	}

	latest, err := repo.LatestResponse(context.Background(), prompts[0].ID)
	if err != nil {
		t.Fatalf("LatestResponse: %v", err)
	}
	if latest.ID != result.Response.ID {
		t.Fatal("persisted response does not match returned response")
	}
	if _, err := repo.GetAnalysis(context.Background(), latest.ID); err != nil {
		t.Fatalf("GetAnalysis: %v", err)
	}

	got, _ := runRepo.GetByID(context.Background(), run.ID)
	if got.CurrentStep != runs.StepPromptsExecuting {
		t.Fatalf("step = %q, want prompts_executing", got.CurrentStep)
	}
}

func TestExecutePromptRejectsForeignPrompt(t *testing.T) {
	svc, runRepo, repo := newTestService(t, &fakeLLM{complete: func(ctx context.Context, in llm.CompleteInput) (llm.Completion, error) {
		return llm.Completion{Text: "answer"}, nil
	}})
	run := seedRun(t, runRepo, runs.StepPromptsGenerated, runs.StatusRunning)
	other := seedRun(t, runRepo, runs.StepPromptsGenerated, runs.StatusRunning)
	prompts := seedPrompts(t, repo, other.ID, "Question?")

	if _, err := svc.ExecutePrompt(context.Background(), run.ID, prompts[0].ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for prompt of another run, got %v", err)
	}
}

func TestExecuteAllPromptsPartialSuccess(t *testing.T) {
	var call int
	client := &fakeLLM{complete: func(ctx context.Context, in llm.CompleteInput) (llm.Completion, error) {
		call++
		if call == 2 || call == 4 {
			return llm.Completion{}, errors.New("timeout")
		}
		return llm.Completion{Text: "Acme answer"}, nil
	}}

	svc, runRepo, repo := newTestService(t, client)
	run := seedRun(t, runRepo, runs.StepPromptsGenerated, runs.StatusRunning)
	seedPrompts(t, repo, run.ID, "Q1?", "Q2?", "Q3?", "Q4?", "Q5?")

	executed, failed, err := svc.ExecuteAllPrompts(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("ExecuteAllPrompts: %v", err)
	}
	if executed != 3 || failed != 2 {
		t.Fatalf("executed=%d failed=%d, want 3/2", executed, failed)
	}

	got, _ := runRepo.GetByID(context.Background(), run.ID)
	if got.Status != runs.StatusCompleted || got.CurrentStep != runs.StepCompleted {
		t.Fatalf("run = %s/%s, want completed/completed", got.Status, got.CurrentStep)
	}
	if got.Progress.Message != "3 of 5 prompts executed" {
		t.Fatalf("progress message = %q", got.Progress.Message)
	}
}

func TestExecuteAllPromptsFailsWhenNothingExecutes(t *testing.T) {
	client := &fakeLLM{complete: func(ctx context.Context, in llm.CompleteInput) (llm.Completion, error) {
		return llm.Completion{}, errors.New("upstream down")
	}}

	svc, runRepo, repo := newTestService(t, client)
	run := seedRun(t, runRepo, runs.StepPromptsGenerated, runs.StatusRunning)
	seedPrompts(t, repo, run.ID, "Q1?", "Q2?")

	if _, _, err := svc.ExecuteAllPrompts(context.Background(), run.ID); err == nil {
		t.Fatal("expected error when every execution fails")
	}

	got, _ := runRepo.GetByID(context.Background(), run.ID)
	if got.Status != runs.StatusFailed {
		t.Fatalf("status = %q, want failed", got.Status)
	}
}

func TestExecuteAllPromptsStopsAtPause(t *testing.T) {
	svc, runRepo, repo := newTestService(t, nil)
	run := seedRun(t, runRepo, runs.StepPromptsGenerated, runs.StatusRunning)
	seedPrompts(t, repo, run.ID, "Q1?", "Q2?", "Q3?")

	svc.LLM = &fakeLLM{complete: func(ctx context.Context, in llm.CompleteInput) (llm.Completion, error) {
		// a user pause lands while the first call is in flight; the
		// in-flight call still completes and persists
		if err := runRepo.UpdateState(context.Background(), run.ID, runs.StepPromptsExecuting, runs.StatusPaused, runs.Progress{Step: runs.StepPromptsExecuting}); err != nil {
			t.Errorf("pause: %v", err)
		}
		return llm.Completion{Text: "answer"}, nil
	}}

	executed, _, err := svc.ExecuteAllPrompts(context.Background(), run.ID)
	if !errors.Is(err, ErrRunPaused) {
		t.Fatalf("expected ErrRunPaused, got %v", err)
	}
	if executed != 1 {
		t.Fatalf("executed = %d, want 1 (in-flight call runs to completion)", executed)
	}

	// the completed prompt's result is persisted and queryable
	analyses, err := repo.ListAnalyses(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("ListAnalyses: %v", err)
	}
	if len(analyses) != 1 {
		t.Fatalf("expected 1 persisted analysis, got %d", len(analyses))
	}
}
