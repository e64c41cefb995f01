package runs

import (
	"context"
	"errors"
	"testing"
)

func TestCreateValidatesInput(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	cases := []struct {
		name string
		in   CreateInput
	}{
		{"missing site url", CreateInput{BrandName: "Acme"}},
		{"missing brand", CreateInput{SiteURL: "https://acme.example"}},
		{"bad scheme", CreateInput{SiteURL: "ftp://acme.example", BrandName: "Acme"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), tc.in); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestCreateDefaultsAndNormalizes(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	run, err := svc.Create(context.Background(), CreateInput{
		SiteURL:   "acme.example",
		BrandName: "  Acme  ",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if run.SiteURL != "https://acme.example" {
		t.Fatalf("expected https scheme added, got %q", run.SiteURL)
	}
	if run.BrandName != "Acme" {
		t.Fatalf("expected trimmed brand, got %q", run.BrandName)
	}
	if run.Language != "en" {
		t.Fatalf("expected language default en, got %q", run.Language)
	}
	if run.CurrentStep != StepPending || run.Status != StatusPending {
		t.Fatalf("expected pending/pending, got %s/%s", run.CurrentStep, run.Status)
	}
	if run.ID == "" {
		t.Fatal("expected generated id")
	}

	got, err := svc.Get(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != run.ID {
		t.Fatalf("expected persisted run, got %+v", got)
	}
}

func TestPauseOnlyWhileExecuting(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	run, err := svc.Create(context.Background(), CreateInput{SiteURL: "https://acme.example", BrandName: "Acme"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Pending runs cannot be paused.
	if _, err := svc.Pause(context.Background(), run.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	if err := repo.UpdateState(context.Background(), run.ID, StepPromptsExecuting, StatusRunning, Progress{Step: StepPromptsExecuting, Percent: 50}); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}

	paused, err := svc.Pause(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if paused.Status != StatusPaused {
		t.Fatalf("expected paused, got %q", paused.Status)
	}
	if paused.CurrentStep != StepPromptsExecuting {
		t.Fatalf("pause must not change step, got %q", paused.CurrentStep)
	}

	resumed, err := svc.Resume(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if resumed.Status != StatusRunning || resumed.CurrentStep != StepPromptsExecuting {
		t.Fatalf("expected running at prompts_executing, got %s/%s", resumed.Status, resumed.CurrentStep)
	}

	// Resuming a running run is a conflict.
	if _, err := svc.Resume(context.Background(), run.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestDeleteRemovesRun(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	run, err := svc.Create(context.Background(), CreateInput{SiteURL: "https://acme.example", BrandName: "Acme"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(context.Background(), run.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), run.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := svc.Delete(context.Background(), run.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestNextStepOrdering(t *testing.T) {
	order := []string{
		StepPending,
		StepSitemapFound,
		StepContentFetched,
		StepCategoriesGenerated,
		StepPromptsGenerated,
		StepPromptsExecuting,
		StepCompleted,
	}
	for i := 0; i < len(order)-1; i++ {
		if got := NextStep(order[i]); got != order[i+1] {
			t.Fatalf("NextStep(%s) = %s, want %s", order[i], got, order[i+1])
		}
	}
	if got := NextStep(StepCompleted); got != "" {
		t.Fatalf("NextStep(completed) = %q, want empty", got)
	}
}
