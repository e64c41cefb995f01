package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"brandscope-backend/internal/analysis"
	"brandscope-backend/internal/llm"
	"brandscope-backend/internal/runs"
	"brandscope-backend/internal/shared/metrics"
	"brandscope-backend/internal/shared/storage/object"
	"brandscope-backend/internal/shared/telemetry"
)

// Service drives the five workflow steps for a run. Each step persists
// its output before the run record advances, so any step can be safely
// re-invoked after a crash.
type Service struct {
	Runs       runs.Repo
	Repo       Repo
	Discoverer *Discoverer
	Fetcher    *Fetcher
	LLM        llm.Client
	// Store archives raw model output per response; nil disables archiving.
	Store object.ObjectStore

	QuestionsPerCategory int
	LLMTimeout           time.Duration
}

func stepRank(step string) int {
	switch step {
	case runs.StepPending:
		return 0
	case runs.StepSitemapFound:
		return 1
	case runs.StepContentFetched:
		return 2
	case runs.StepCategoriesGenerated:
		return 3
	case runs.StepPromptsGenerated:
		return 4
	case runs.StepPromptsExecuting:
		return 5
	case runs.StepCompleted:
		return 6
	default:
		return -1
	}
}

func (s *Service) llmTimeout() time.Duration {
	if s.LLMTimeout > 0 {
		return s.LLMTimeout
	}
	return 120 * time.Second
}

// requireStep loads the run and verifies the prior step has persisted.
func (s *Service) requireStep(ctx context.Context, runID string, minRank int) (runs.Run, error) {
	run, err := s.Runs.GetByID(ctx, runID)
	if err != nil {
		return runs.Run{}, err
	}
	if stepRank(run.CurrentStep) < minRank {
		return runs.Run{}, fmt.Errorf("%w: run is at step %q", ErrStepNotReady, run.CurrentStep)
	}
	return run, nil
}

func (s *Service) advance(ctx context.Context, runID, step, status string, percent int, message string) error {
	return s.Runs.UpdateState(ctx, runID, step, status, runs.Progress{
		Step:    step,
		Percent: percent,
		Message: message,
	})
}

func (s *Service) fail(ctx context.Context, runID string, err error) {
	metrics.IncRunFailed()
	if serr := s.Runs.SetError(ctx, runID, sanitizeError(err)); serr != nil {
		telemetry.Error("workflow.fail_write", map[string]any{"run_id": runID, "error": serr.Error()})
	}
}

// sanitizeError bounds the message persisted on a failed run; full
// detail stays in the logs.
func sanitizeError(err error) string {
	msg := err.Error()
	if len(msg) > 500 {
		msg = msg[:500]
	}
	return msg
}

// DiscoverPages locates the run's candidate pages and records them as
// unfetched rows. Re-invocation refreshes the same rows, never errors.
func (s *Service) DiscoverPages(ctx context.Context, runID string) (DiscoverResult, error) {
	run, err := s.requireStep(ctx, runID, 0)
	if err != nil {
		return DiscoverResult{}, err
	}

	started := time.Now()
	result, err := s.Discoverer.Discover(ctx, run.SiteURL)
	if err != nil {
		s.fail(ctx, runID, err)
		return DiscoverResult{}, err
	}

	now := time.Now().UTC()
	pages := make([]Page, 0, len(result.URLs))
	for _, u := range result.URLs {
		pages = append(pages, Page{
			ID:        uuid.NewString(),
			RunID:     runID,
			URL:       u,
			CreatedAt: now,
		})
	}
	if err := s.Repo.UpsertPages(ctx, pages); err != nil {
		s.fail(ctx, runID, err)
		return DiscoverResult{}, err
	}
	if err := s.Runs.SetFoundSitemap(ctx, runID, result.FoundSitemap); err != nil {
		return DiscoverResult{}, err
	}
	if err := s.advance(ctx, runID, runs.StepSitemapFound, runs.StatusRunning, 15,
		fmt.Sprintf("discovered %d pages", len(result.URLs))); err != nil {
		return DiscoverResult{}, err
	}

	metrics.ObserveStepDurationMs(float64(time.Since(started).Milliseconds()))
	telemetry.Info("workflow.discover.done", map[string]any{
		"run_id":        runID,
		"urls":          len(result.URLs),
		"found_sitemap": result.FoundSitemap,
	})
	return result, nil
}

// FetchContent downloads every discovered page. Individual failures are
// recorded on the page row and never abort the batch.
func (s *Service) FetchContent(ctx context.Context, runID string) (FetchResult, error) {
	if _, err := s.requireStep(ctx, runID, stepRank(runs.StepSitemapFound)); err != nil {
		return FetchResult{}, err
	}

	pages, err := s.Repo.ListPages(ctx, runID)
	if err != nil {
		return FetchResult{}, err
	}
	if len(pages) == 0 {
		return FetchResult{}, fmt.Errorf("%w: no pages discovered", ErrStepNotReady)
	}

	started := time.Now()
	var fetched, failed int
	for i := range pages {
		text, snapshotKey, err := s.Fetcher.FetchPage(ctx, runID, pages[i].URL)
		if err != nil {
			failed++
			pages[i].Fetched = false
			pages[i].FetchError = err.Error()
			telemetry.Warn("workflow.fetch.page_failed", map[string]any{
				"run_id": runID,
				"url":    pages[i].URL,
				"error":  err.Error(),
			})
			continue
		}
		fetched++
		pages[i].Fetched = true
		pages[i].FetchError = ""
		pages[i].Content = text
		pages[i].SnapshotKey = snapshotKey
	}

	if err := s.Repo.UpsertPages(ctx, pages); err != nil {
		s.fail(ctx, runID, err)
		return FetchResult{}, err
	}
	if err := s.advance(ctx, runID, runs.StepContentFetched, runs.StatusRunning, 30,
		fmt.Sprintf("fetched %d of %d pages", fetched, len(pages))); err != nil {
		return FetchResult{}, err
	}

	metrics.ObserveStepDurationMs(float64(time.Since(started).Milliseconds()))
	return FetchResult{Pages: pages, FetchedCount: fetched, FailedCount: failed}, nil
}

// GenerateCategories asks the model for topical clusters over the
// fetched content. Malformed model output is retried once with a
// repair instruction, then surfaced as a SchemaError.
func (s *Service) GenerateCategories(ctx context.Context, runID string) ([]Category, error) {
	run, err := s.requireStep(ctx, runID, stepRank(runs.StepContentFetched))
	if err != nil {
		return nil, err
	}

	pages, err := s.Repo.ListPages(ctx, runID)
	if err != nil {
		return nil, err
	}
	content := aggregateContent(pages)
	if content == "" {
		return nil, fmt.Errorf("%w: no fetched content", ErrStepNotReady)
	}

	started := time.Now()
	prompt := categoriesPrompt(run, content)
	payloads, err := completeJSONWithRepair(ctx, s.LLM, s.llmTimeout(), categoriesSystem, prompt, parseCategoryOutput)
	if err != nil {
		if IsSchemaError(err) {
			return nil, err
		}
		s.fail(ctx, runID, err)
		return nil, err
	}

	now := time.Now().UTC()
	categories := make([]Category, 0, len(payloads))
	for _, p := range payloads {
		categories = append(categories, Category{
			ID:          uuid.NewString(),
			RunID:       runID,
			Name:        p.Name,
			Description: p.Description,
			Confidence:  p.Confidence,
			SourcePages: p.SourcePages,
			CreatedAt:   now,
		})
	}
	if err := s.Repo.CreateCategories(ctx, categories); err != nil {
		s.fail(ctx, runID, err)
		return nil, err
	}
	if err := s.advance(ctx, runID, runs.StepCategoriesGenerated, runs.StatusRunning, 50,
		fmt.Sprintf("generated %d categories", len(categories))); err != nil {
		return nil, err
	}

	metrics.ObserveStepDurationMs(float64(time.Since(started).Milliseconds()))
	return categories, nil
}

// AddCustomCategory records a user-supplied category alongside the
// generated ones.
func (s *Service) AddCustomCategory(ctx context.Context, runID, name, description string) (Category, error) {
	if _, err := s.requireStep(ctx, runID, stepRank(runs.StepContentFetched)); err != nil {
		return Category{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, fmt.Errorf("%w: category name is required", runs.ErrInvalidInput)
	}
	category := Category{
		ID:          uuid.NewString(),
		RunID:       runID,
		Name:        name,
		Description: strings.TrimSpace(description),
		Confidence:  0.5,
		Custom:      true,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.Repo.CreateCategories(ctx, []Category{category}); err != nil {
		return Category{}, err
	}
	return category, nil
}

// ListCategories returns the run's categories.
func (s *Service) ListCategories(ctx context.Context, runID string) ([]Category, error) {
	return s.Repo.ListCategories(ctx, runID)
}

// GeneratePrompts asks the model for candidate questions per category.
// A failing category is skipped and the batch continues; the step only
// fails when every category fails.
func (s *Service) GeneratePrompts(ctx context.Context, runID string, categoryIDs []string, questionsPerCategory int) ([]Prompt, error) {
	run, err := s.requireStep(ctx, runID, stepRank(runs.StepCategoriesGenerated))
	if err != nil {
		return nil, err
	}
	if questionsPerCategory <= 0 {
		questionsPerCategory = s.QuestionsPerCategory
	}
	if questionsPerCategory <= 0 {
		questionsPerCategory = 5
	}

	categories, err := s.selectCategories(ctx, runID, categoryIDs)
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("%w: no categories to generate prompts for", ErrStepNotReady)
	}

	started := time.Now()
	now := time.Now().UTC()
	var all []Prompt
	var failedCategories int
	var lastErr error
	for _, category := range categories {
		prompt := promptsPrompt(run, category, questionsPerCategory)
		payloads, err := completeJSONWithRepair(ctx, s.LLM, s.llmTimeout(), promptsSystem, prompt, parsePromptOutput)
		if err != nil {
			failedCategories++
			lastErr = err
			telemetry.Warn("workflow.prompts.category_failed", map[string]any{
				"run_id":   runID,
				"category": category.Name,
				"error":    err.Error(),
			})
			continue
		}
		if len(payloads) > questionsPerCategory {
			payloads = payloads[:questionsPerCategory]
		}
		for _, p := range payloads {
			all = append(all, Prompt{
				ID:         uuid.NewString(),
				RunID:      runID,
				CategoryID: category.ID,
				Question:   p.Question,
				Language:   run.Language,
				Country:    run.Country,
				Region:     run.Region,
				Intent:     p.Intent,
				Active:     true,
				CreatedAt:  now,
				UpdatedAt:  now,
			})
		}
	}
	if len(all) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, &SchemaError{Expected: "at least one question", Detail: "model produced no questions"}
	}

	if err := s.Repo.UpsertPrompts(ctx, all); err != nil {
		s.fail(ctx, runID, err)
		return nil, err
	}
	if err := s.advance(ctx, runID, runs.StepPromptsGenerated, runs.StatusRunning, 65,
		fmt.Sprintf("generated %d prompts across %d categories", len(all), len(categories)-failedCategories)); err != nil {
		return nil, err
	}

	metrics.ObserveStepDurationMs(float64(time.Since(started).Milliseconds()))
	return all, nil
}

// ListPrompts returns the run's prompts.
func (s *Service) ListPrompts(ctx context.Context, runID string) ([]Prompt, error) {
	return s.Repo.ListPrompts(ctx, runID)
}

// ExecutePrompt sends one prompt to the search-enabled model, then
// persists the response and its analysis before returning.
func (s *Service) ExecutePrompt(ctx context.Context, runID, promptID string) (ExecuteResult, error) {
	run, err := s.requireStep(ctx, runID, stepRank(runs.StepPromptsGenerated))
	if err != nil {
		return ExecuteResult{}, err
	}
	if run.Status == runs.StatusPaused {
		return ExecuteResult{}, ErrRunPaused
	}

	prompt, err := s.Repo.GetPrompt(ctx, promptID)
	if err != nil {
		return ExecuteResult{}, err
	}
	if prompt.RunID != runID {
		return ExecuteResult{}, ErrNotFound
	}

	if run.CurrentStep == runs.StepPromptsGenerated {
		if err := s.advance(ctx, runID, runs.StepPromptsExecuting, runs.StatusRunning, 70, "executing prompts"); err != nil {
			return ExecuteResult{}, err
		}
	}

	result, err := s.executeOne(ctx, run, prompt)
	if err != nil {
		metrics.IncPromptExecutionFailed()
		return ExecuteResult{}, err
	}
	metrics.IncPromptExecuted()
	return result, nil
}

// ExecuteAllPrompts runs every prompt of the run in order, re-reading
// the run's status between prompts so a pause takes effect before the
// next call is issued. Partial success is a valid terminal outcome.
func (s *Service) ExecuteAllPrompts(ctx context.Context, runID string) (executed, failed int, err error) {
	run, err := s.requireStep(ctx, runID, stepRank(runs.StepPromptsGenerated))
	if err != nil {
		return 0, 0, err
	}
	if run.Status == runs.StatusPaused {
		return 0, 0, ErrRunPaused
	}

	prompts, err := s.Repo.ListPrompts(ctx, runID)
	if err != nil {
		return 0, 0, err
	}
	if len(prompts) == 0 {
		return 0, 0, fmt.Errorf("%w: no prompts generated", ErrStepNotReady)
	}

	if err := s.advance(ctx, runID, runs.StepPromptsExecuting, runs.StatusRunning, 70, "executing prompts"); err != nil {
		return 0, 0, err
	}

	for i, prompt := range prompts {
		// pause check: a user pause lands between prompts, never
		// mid-call
		current, err := s.Runs.GetByID(ctx, runID)
		if err != nil {
			return executed, failed, err
		}
		if current.Status == runs.StatusPaused {
			telemetry.Info("workflow.execute.paused", map[string]any{
				"run_id":   runID,
				"executed": executed,
				"total":    len(prompts),
			})
			return executed, failed, ErrRunPaused
		}

		if _, err := s.executeOne(ctx, current, prompt); err != nil {
			failed++
			metrics.IncPromptExecutionFailed()
			telemetry.Warn("workflow.execute.prompt_failed", map[string]any{
				"run_id":    runID,
				"prompt_id": prompt.ID,
				"error":     err.Error(),
			})
		} else {
			executed++
			metrics.IncPromptExecuted()
		}

		// preserve a pause that landed while the call was in flight
		status := runs.StatusRunning
		if after, err := s.Runs.GetByID(ctx, runID); err == nil && after.Status == runs.StatusPaused {
			status = runs.StatusPaused
		}
		percent := 70 + (25*(i+1))/len(prompts)
		_ = s.advance(ctx, runID, runs.StepPromptsExecuting, status, percent,
			fmt.Sprintf("executed %d of %d prompts", executed, len(prompts)))
	}

	if executed == 0 {
		err := fmt.Errorf("all %d prompt executions failed", len(prompts))
		s.fail(ctx, runID, err)
		return executed, failed, err
	}

	if err := s.advance(ctx, runID, runs.StepCompleted, runs.StatusCompleted, 100,
		fmt.Sprintf("%d of %d prompts executed", executed, len(prompts))); err != nil {
		return executed, failed, err
	}
	metrics.IncRunCompleted()
	return executed, failed, nil
}

// Results returns the current analysis per prompt for the run.
func (s *Service) Results(ctx context.Context, runID string) ([]StoredAnalysis, error) {
	if _, err := s.Runs.GetByID(ctx, runID); err != nil {
		return nil, err
	}
	return s.Repo.ListAnalyses(ctx, runID)
}

// ExecuteSaved executes a company-scoped saved prompt in the context of
// the given run and persists its response and analysis. Used by
// scheduled executions, which own their run record but not the prompt.
func (s *Service) ExecuteSaved(ctx context.Context, run runs.Run, prompt Prompt) (ExecuteResult, error) {
	return s.executeOne(ctx, run, prompt)
}

func (s *Service) executeOne(ctx context.Context, run runs.Run, prompt Prompt) (ExecuteResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.llmTimeout())
	defer cancel()

	completion, err := s.LLM.Complete(callCtx, llm.CompleteInput{
		System:    executeSystem(run),
		Prompt:    prompt.Question,
		WebSearch: true,
	})
	if err != nil {
		return ExecuteResult{}, err
	}

	citations := make([]analysis.Citation, 0, len(completion.Citations))
	for _, c := range completion.Citations {
		citations = append(citations, analysis.Citation{URL: c.URL, Title: c.Title, Snippet: c.Snippet})
	}

	now := time.Now().UTC()
	response := Response{
		ID:         uuid.NewString(),
		PromptID:   prompt.ID,
		OutputText: completion.Text,
		Model:      completion.Model,
		Citations:  citations,
		CreatedAt:  now,
	}
	if err := s.Repo.CreateResponse(ctx, response); err != nil {
		return ExecuteResult{}, err
	}

	if s.Store != nil {
		key := fmt.Sprintf("runs/%s/responses/%s.txt", run.ID, response.ID)
		if _, err := s.Store.Save(ctx, key, "text/plain", strings.NewReader(completion.Text)); err != nil {
			telemetry.Warn("workflow.response_archive", map[string]any{
				"run_id":      run.ID,
				"response_id": response.ID,
				"error":       err.Error(),
			})
		}
	}

	result := analysis.Analyze(analysis.Input{
		BrandName:    run.BrandName,
		Prompt:       prompt.Question,
		ResponseText: completion.Text,
		Citations:    citations,
	})
	stored := StoredAnalysis{
		ResponseID: response.ID,
		PromptID:   prompt.ID,
		Result:     result,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Repo.UpsertAnalysis(ctx, stored); err != nil {
		return ExecuteResult{}, err
	}

	return ExecuteResult{Response: response, Analysis: result}, nil
}

// completeJSONWithRepair calls the model expecting JSON and, when the
// output fails validation, retries once with the parse failure appended
// as a corrective system message.
func completeJSONWithRepair[T any](ctx context.Context, client llm.Client, timeout time.Duration, system, prompt string, parse func(string) ([]T, error)) ([]T, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	completion, err := client.Complete(callCtx, llm.CompleteInput{
		System:       system,
		Prompt:       prompt,
		JSONResponse: true,
	})
	if err != nil {
		return nil, err
	}
	out, parseErr := parse(completion.Text)
	if parseErr == nil {
		return out, nil
	}
	if !IsSchemaError(parseErr) {
		return nil, parseErr
	}

	retryCtx, cancelRetry := context.WithTimeout(ctx, timeout)
	defer cancelRetry()
	retryCtx = llm.WithExtraSystemMessage(retryCtx,
		"Your previous reply was not valid: "+parseErr.Error()+". Reply with only the requested JSON.")

	completion, err = client.Complete(retryCtx, llm.CompleteInput{
		System:       system,
		Prompt:       prompt,
		JSONResponse: true,
	})
	if err != nil {
		return nil, err
	}
	return parse(completion.Text)
}

func aggregateContent(pages []Page) string {
	var b strings.Builder
	for _, p := range pages {
		if !p.Fetched || p.Content == "" {
			continue
		}
		fmt.Fprintf(&b, "URL: %s\n%s\n\n", p.URL, p.Content)
	}
	return strings.TrimSpace(b.String())
}

func (s *Service) selectCategories(ctx context.Context, runID string, categoryIDs []string) ([]Category, error) {
	all, err := s.Repo.ListCategories(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(categoryIDs) == 0 {
		return all, nil
	}
	want := map[string]bool{}
	for _, id := range categoryIDs {
		want[id] = true
	}
	var out []Category
	for _, c := range all {
		if want[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}
