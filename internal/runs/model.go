package runs

import "time"

// Workflow steps, in order.
const (
	StepPending             = "pending"
	StepSitemapFound        = "sitemap_found"
	StepContentFetched      = "content_fetched"
	StepCategoriesGenerated = "categories_generated"
	StepPromptsGenerated    = "prompts_generated"
	StepPromptsExecuting    = "prompts_executing"
	StepCompleted           = "completed"
)

// Run statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusPaused    = "paused"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Progress is the free-form progress descriptor shown to clients.
type Progress struct {
	Step    string `json:"step"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// Run is one end-to-end analysis session for a target website.
type Run struct {
	ID           string    `json:"id"`
	CompanyID    string    `json:"companyId,omitempty"`
	SiteURL      string    `json:"siteUrl"`
	BrandName    string    `json:"brandName"`
	Country      string    `json:"country,omitempty"`
	Language     string    `json:"language"`
	Region       string    `json:"region,omitempty"`
	CurrentStep  string    `json:"currentStep"`
	Status       string    `json:"status"`
	Progress     Progress  `json:"progress"`
	FoundSitemap *bool     `json:"foundSitemap,omitempty"`
	ErrorMessage *string   `json:"errorMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NextStep returns the step that follows the given one, or "" when the
// run is at its terminal step.
func NextStep(step string) string {
	switch step {
	case StepPending:
		return StepSitemapFound
	case StepSitemapFound:
		return StepContentFetched
	case StepContentFetched:
		return StepCategoriesGenerated
	case StepCategoriesGenerated:
		return StepPromptsGenerated
	case StepPromptsGenerated:
		return StepPromptsExecuting
	case StepPromptsExecuting:
		return StepCompleted
	default:
		return ""
	}
}
