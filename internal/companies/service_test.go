package companies

import (
	"context"
	"errors"
	"testing"
	"time"

	"brandscope-backend/internal/llm"
	"brandscope-backend/internal/runs"
	"brandscope-backend/internal/workflow"
)

type fakeLLM struct {
	complete func(ctx context.Context, in llm.CompleteInput) (llm.Completion, error)
}

func (f *fakeLLM) Complete(ctx context.Context, in llm.CompleteInput) (llm.Completion, error) {
	return f.complete(ctx, in)
}

func newTestService(t *testing.T, client llm.Client) (*Service, *runs.MemoryRepo, *workflow.MemoryRepo) {
	t.Helper()
	runRepo := runs.NewMemoryRepo()
	wfRepo := workflow.NewMemoryRepo()
	svc := &Service{
		Repo: NewMemoryRepo(),
		Runs: runRepo,
		Workflow: &workflow.Service{
			Runs:       runRepo,
			Repo:       wfRepo,
			LLM:        client,
			LLMTimeout: 5 * time.Second,
		},
	}
	return svc, runRepo, wfRepo
}

func seedCompany(t *testing.T, svc *Service) Company {
	t.Helper()
	company, err := svc.Create(context.Background(), CreateInput{
		Name:      "Acme Inc",
		BrandName: "Acme",
		SiteURL:   "https://acme.example",
	})
	if err != nil {
		t.Fatalf("create company: %v", err)
	}
	return company
}

func TestCreateValidatesInput(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeLLM{})
	_, err := svc.Create(context.Background(), CreateInput{Name: "Acme Inc"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAddPromptInheritsCompanyLanguage(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeLLM{})
	company := seedCompany(t, svc)

	prompt, err := svc.AddPrompt(context.Background(), company.ID, AddPromptInput{Question: "Best widgets?"})
	if err != nil {
		t.Fatalf("AddPrompt: %v", err)
	}
	if prompt.Language != "en" {
		t.Fatalf("language = %q, want en", prompt.Language)
	}
	if !prompt.Active {
		t.Fatal("new prompts should be active")
	}
	if prompt.CompanyID != company.ID || prompt.RunID != "" {
		t.Fatalf("prompt should be company-scoped: %+v", prompt)
	}
}

func TestExecuteScheduledRunsActivePromptsOnly(t *testing.T) {
	var questions []string
	client := &fakeLLM{complete: func(ctx context.Context, in llm.CompleteInput) (llm.Completion, error) {
		questions = append(questions, in.Prompt)
		return llm.Completion{Text: "Acme answer"}, nil
	}}

	svc, runRepo, _ := newTestService(t, client)
	company := seedCompany(t, svc)

	if _, err := svc.AddPrompt(context.Background(), company.ID, AddPromptInput{Question: "Active question?"}); err != nil {
		t.Fatalf("AddPrompt: %v", err)
	}
	inactive, err := svc.AddPrompt(context.Background(), company.ID, AddPromptInput{Question: "Inactive question?"})
	if err != nil {
		t.Fatalf("AddPrompt: %v", err)
	}
	if err := svc.SetPromptActive(context.Background(), company.ID, inactive.ID, false); err != nil {
		t.Fatalf("SetPromptActive: %v", err)
	}

	result, err := svc.ExecuteScheduled(context.Background(), company.ID)
	if err != nil {
		t.Fatalf("ExecuteScheduled: %v", err)
	}
	if result.Executed != 1 || result.Failed != 0 {
		t.Fatalf("executed=%d failed=%d, want 1/0", result.Executed, result.Failed)
	}
	if len(questions) != 1 || questions[0] != "Active question?" {
		t.Fatalf("executed questions = %v", questions)
	}

	run, err := runRepo.GetByID(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("run not created: %v", err)
	}
	if run.CompanyID != company.ID {
		t.Fatalf("run.CompanyID = %q, want %q", run.CompanyID, company.ID)
	}
	if run.Status != runs.StatusCompleted {
		t.Fatalf("run status = %q, want completed", run.Status)
	}
}

func TestExecuteScheduledAccumulatesResponseHistory(t *testing.T) {
	client := &fakeLLM{complete: func(ctx context.Context, in llm.CompleteInput) (llm.Completion, error) {
		return llm.Completion{Text: "Acme answer"}, nil
	}}

	svc, _, wfRepo := newTestService(t, client)
	company := seedCompany(t, svc)
	prompt, err := svc.AddPrompt(context.Background(), company.ID, AddPromptInput{Question: "Q?"})
	if err != nil {
		t.Fatalf("AddPrompt: %v", err)
	}

	first, err := svc.ExecuteScheduled(context.Background(), company.ID)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	second, err := svc.ExecuteScheduled(context.Background(), company.ID)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if first.RunID == second.RunID {
		t.Fatal("each pass must create its own run")
	}

	// both passes appended a response to the same company prompt
	latest, err := wfRepo.LatestResponse(context.Background(), prompt.ID)
	if err != nil {
		t.Fatalf("LatestResponse: %v", err)
	}
	if latest.PromptID != prompt.ID {
		t.Fatalf("latest response prompt = %q, want %q", latest.PromptID, prompt.ID)
	}
}

func TestExecuteScheduledFailsWithNoActivePrompts(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeLLM{})
	company := seedCompany(t, svc)

	if _, err := svc.ExecuteScheduled(context.Background(), company.ID); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
