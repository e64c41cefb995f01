package workflow

import (
	"time"

	"brandscope-backend/internal/analysis"
)

// Page is one discovered URL and its fetched content for a run.
type Page struct {
	ID          string    `json:"id"`
	RunID       string    `json:"runId"`
	URL         string    `json:"url"`
	Content     string    `json:"content,omitempty"`
	Fetched     bool      `json:"fetched"`
	FetchError  string    `json:"fetchError,omitempty"`
	SnapshotKey string    `json:"snapshotKey,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Category is a topical cluster derived from fetched content.
type Category struct {
	ID          string    `json:"id"`
	RunID       string    `json:"runId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Confidence  float64   `json:"confidence"`
	SourcePages []string  `json:"sourcePages,omitempty"`
	Custom      bool      `json:"custom"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Prompt is one question to pose to the LLM. Run-scoped prompts carry
// RunID; company-scoped saved prompts carry CompanyID instead.
type Prompt struct {
	ID         string    `json:"id"`
	RunID      string    `json:"runId,omitempty"`
	CompanyID  string    `json:"companyId,omitempty"`
	CategoryID string    `json:"categoryId,omitempty"`
	Question   string    `json:"question"`
	Language   string    `json:"language"`
	Country    string    `json:"country,omitempty"`
	Region     string    `json:"region,omitempty"`
	Intent     string    `json:"intent,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Response is the LLM's answer to one Prompt. Append-only; the newest
// row per prompt is the current one.
type Response struct {
	ID         string              `json:"id"`
	PromptID   string              `json:"promptId"`
	OutputText string              `json:"outputText"`
	Model      string              `json:"model,omitempty"`
	Citations  []analysis.Citation `json:"citations,omitempty"`
	CreatedAt  time.Time           `json:"createdAt"`
}

// StoredAnalysis is the persisted metrics row for one Response. Exactly
// one exists per response; recomputation overwrites in place.
type StoredAnalysis struct {
	ResponseID string          `json:"responseId"`
	PromptID   string          `json:"promptId"`
	Result     analysis.Result `json:"result"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// DiscoverResult is the outcome of page discovery.
type DiscoverResult struct {
	URLs         []string `json:"urls"`
	FoundSitemap bool     `json:"foundSitemap"`
}

// FetchResult is the outcome of content fetching.
type FetchResult struct {
	Pages        []Page `json:"pages"`
	FetchedCount int    `json:"fetchedCount"`
	FailedCount  int    `json:"failedCount"`
}

// ExecuteResult pairs a persisted response with its analysis.
type ExecuteResult struct {
	Response Response        `json:"response"`
	Analysis analysis.Result `json:"analysis"`
}
