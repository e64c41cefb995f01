package runs

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"brandscope-backend/internal/shared/metrics"
)

// CreateInput is the payload for starting a new run.
type CreateInput struct {
	SiteURL   string `json:"siteUrl"`
	BrandName string `json:"brandName"`
	Country   string `json:"country"`
	Language  string `json:"language"`
	Region    string `json:"region"`
	CompanyID string `json:"companyId"`
}

// Service owns run lifecycle rules.
type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// Create validates the input and persists a new pending run.
func (s *Service) Create(ctx context.Context, in CreateInput) (Run, error) {
	siteURL, err := normalizeSiteURL(in.SiteURL)
	if err != nil {
		return Run{}, err
	}
	brand := strings.TrimSpace(in.BrandName)
	if brand == "" {
		return Run{}, fmt.Errorf("%w: brandName is required", ErrInvalidInput)
	}
	language := strings.TrimSpace(in.Language)
	if language == "" {
		language = "en"
	}

	run := Run{
		ID:          uuid.NewString(),
		CompanyID:   strings.TrimSpace(in.CompanyID),
		SiteURL:     siteURL,
		BrandName:   brand,
		Country:     strings.TrimSpace(in.Country),
		Language:    language,
		Region:      strings.TrimSpace(in.Region),
		CurrentStep: StepPending,
		Status:      StatusPending,
		Progress: Progress{
			Step:    StepPending,
			Percent: 0,
			Message: "run created",
		},
		CreatedAt: time.Now().UTC(),
	}
	run.UpdatedAt = run.CreatedAt

	if err := s.Repo.Create(ctx, run); err != nil {
		return Run{}, err
	}
	metrics.IncRunStarted()
	return run, nil
}

// Get returns a single run.
func (s *Service) Get(ctx context.Context, id string) (Run, error) {
	if strings.TrimSpace(id) == "" {
		return Run{}, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, id)
}

// List returns runs newest-first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Run, error) {
	return s.Repo.List(ctx, limit, offset)
}

// Pause stops prompt execution. Only a run that is actively executing
// prompts can be paused.
func (s *Service) Pause(ctx context.Context, id string) (Run, error) {
	run, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Run{}, err
	}
	if run.CurrentStep != StepPromptsExecuting || run.Status != StatusRunning {
		return Run{}, fmt.Errorf("%w: cannot pause run in step %q status %q", ErrInvalidTransition, run.CurrentStep, run.Status)
	}
	progress := run.Progress
	progress.Message = "execution paused"
	if err := s.Repo.UpdateState(ctx, id, run.CurrentStep, StatusPaused, progress); err != nil {
		return Run{}, err
	}
	return s.Repo.GetByID(ctx, id)
}

// Resume returns a paused run to the running state. The current step is
// preserved so execution picks up where it left off.
func (s *Service) Resume(ctx context.Context, id string) (Run, error) {
	run, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Run{}, err
	}
	if run.Status != StatusPaused {
		return Run{}, fmt.Errorf("%w: cannot resume run in status %q", ErrInvalidTransition, run.Status)
	}
	progress := run.Progress
	progress.Message = "execution resumed"
	if err := s.Repo.UpdateState(ctx, id, run.CurrentStep, StatusRunning, progress); err != nil {
		return Run{}, err
	}
	return s.Repo.GetByID(ctx, id)
}

// Delete removes a run and everything derived from it.
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	return s.Repo.Delete(ctx, id)
}

func normalizeSiteURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: siteUrl is required", ErrInvalidInput)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: siteUrl is not a valid URL", ErrInvalidInput)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: siteUrl must use http or https", ErrInvalidInput)
	}
	u.Fragment = ""
	return u.String(), nil
}
