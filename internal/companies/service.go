package companies

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"brandscope-backend/internal/runs"
	"brandscope-backend/internal/shared/metrics"
	"brandscope-backend/internal/shared/telemetry"
	"brandscope-backend/internal/workflow"
)

// CreateInput is the payload for registering a company.
type CreateInput struct {
	Name      string `json:"name"`
	BrandName string `json:"brandName"`
	SiteURL   string `json:"siteUrl"`
	Country   string `json:"country"`
	Language  string `json:"language"`
}

// AddPromptInput is the payload for saving a company prompt.
type AddPromptInput struct {
	Question string `json:"question"`
	Language string `json:"language"`
	Country  string `json:"country"`
	Region   string `json:"region"`
	Intent   string `json:"intent"`
}

// ScheduledResult summarizes one scheduled execution pass.
type ScheduledResult struct {
	RunID    string `json:"runId"`
	Executed int    `json:"executed"`
	Failed   int    `json:"failed"`
}

// Service owns company records and their scheduled prompt executions.
type Service struct {
	Repo     Repo
	Runs     runs.Repo
	Workflow *workflow.Service
}

// Create validates and persists a new company.
func (s *Service) Create(ctx context.Context, in CreateInput) (Company, error) {
	name := strings.TrimSpace(in.Name)
	brand := strings.TrimSpace(in.BrandName)
	site := strings.TrimSpace(in.SiteURL)
	if name == "" || brand == "" || site == "" {
		return Company{}, fmt.Errorf("%w: name, brandName and siteUrl are required", ErrInvalidInput)
	}
	language := strings.TrimSpace(in.Language)
	if language == "" {
		language = "en"
	}

	company := Company{
		ID:        uuid.NewString(),
		Name:      name,
		BrandName: brand,
		SiteURL:   site,
		Country:   strings.TrimSpace(in.Country),
		Language:  language,
		CreatedAt: time.Now().UTC(),
	}
	company.UpdatedAt = company.CreatedAt
	if err := s.Repo.Create(ctx, company); err != nil {
		return Company{}, err
	}
	return company, nil
}

// Get returns one company.
func (s *Service) Get(ctx context.Context, id string) (Company, error) {
	return s.Repo.GetByID(ctx, id)
}

// List returns companies ordered by name.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Company, error) {
	return s.Repo.List(ctx, limit, offset)
}

// Delete removes a company and its saved prompts.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.Repo.Delete(ctx, id)
}

// AddPrompt saves one prompt under the company for scheduled execution.
func (s *Service) AddPrompt(ctx context.Context, companyID string, in AddPromptInput) (workflow.Prompt, error) {
	company, err := s.Repo.GetByID(ctx, companyID)
	if err != nil {
		return workflow.Prompt{}, err
	}
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return workflow.Prompt{}, fmt.Errorf("%w: question is required", ErrInvalidInput)
	}
	language := strings.TrimSpace(in.Language)
	if language == "" {
		language = company.Language
	}

	now := time.Now().UTC()
	prompt := workflow.Prompt{
		ID:        uuid.NewString(),
		CompanyID: company.ID,
		Question:  question,
		Language:  language,
		Country:   strings.TrimSpace(in.Country),
		Region:    strings.TrimSpace(in.Region),
		Intent:    strings.TrimSpace(in.Intent),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.AddPrompt(ctx, prompt); err != nil {
		return workflow.Prompt{}, err
	}
	return prompt, nil
}

// ListPrompts returns a company's saved prompts.
func (s *Service) ListPrompts(ctx context.Context, companyID string) ([]workflow.Prompt, error) {
	if _, err := s.Repo.GetByID(ctx, companyID); err != nil {
		return nil, err
	}
	return s.Repo.ListPrompts(ctx, companyID, false)
}

// SetPromptActive toggles a saved prompt's scheduling eligibility.
func (s *Service) SetPromptActive(ctx context.Context, companyID, promptID string, active bool) error {
	return s.Repo.SetPromptActive(ctx, companyID, promptID, active)
}

// ExecuteScheduled runs every active saved prompt of the company once,
// recording the pass as a run that references the company. Responses
// append to the company's prompts, so history accumulates across
// passes. Partial success is a valid terminal outcome.
func (s *Service) ExecuteScheduled(ctx context.Context, companyID string) (ScheduledResult, error) {
	company, err := s.Repo.GetByID(ctx, companyID)
	if err != nil {
		return ScheduledResult{}, err
	}
	prompts, err := s.Repo.ListPrompts(ctx, companyID, true)
	if err != nil {
		return ScheduledResult{}, err
	}
	if len(prompts) == 0 {
		return ScheduledResult{}, fmt.Errorf("%w: company has no active prompts", ErrInvalidInput)
	}

	now := time.Now().UTC()
	run := runs.Run{
		ID:          uuid.NewString(),
		CompanyID:   company.ID,
		SiteURL:     company.SiteURL,
		BrandName:   company.BrandName,
		Country:     company.Country,
		Language:    company.Language,
		CurrentStep: runs.StepPromptsExecuting,
		Status:      runs.StatusRunning,
		Progress: runs.Progress{
			Step:    runs.StepPromptsExecuting,
			Percent: 70,
			Message: "scheduled execution started",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Runs.Create(ctx, run); err != nil {
		return ScheduledResult{}, err
	}
	metrics.IncRunStarted()

	result := ScheduledResult{RunID: run.ID}
	for _, prompt := range prompts {
		if _, err := s.Workflow.ExecuteSaved(ctx, run, prompt); err != nil {
			result.Failed++
			metrics.IncPromptExecutionFailed()
			telemetry.Warn("companies.scheduled.prompt_failed", map[string]any{
				"company_id": companyID,
				"prompt_id":  prompt.ID,
				"run_id":     run.ID,
				"error":      err.Error(),
			})
			continue
		}
		result.Executed++
		metrics.IncPromptExecuted()
	}

	if result.Executed == 0 {
		err := fmt.Errorf("all %d scheduled executions failed", len(prompts))
		metrics.IncRunFailed()
		if serr := s.Runs.SetError(ctx, run.ID, err.Error()); serr != nil {
			telemetry.Error("companies.scheduled.fail_write", map[string]any{"run_id": run.ID, "error": serr.Error()})
		}
		return result, err
	}

	if err := s.Runs.UpdateState(ctx, run.ID, runs.StepCompleted, runs.StatusCompleted, runs.Progress{
		Step:    runs.StepCompleted,
		Percent: 100,
		Message: fmt.Sprintf("%d of %d prompts executed", result.Executed, len(prompts)),
	}); err != nil {
		return result, err
	}
	metrics.IncRunCompleted()

	telemetry.Info("companies.scheduled.done", map[string]any{
		"company_id": companyID,
		"run_id":     run.ID,
		"executed":   result.Executed,
		"failed":     result.Failed,
	})
	return result, nil
}
