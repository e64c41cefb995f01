package readiness

import "time"

// Job statuses.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Log entry outcomes.
const (
	OutcomeOK    = "OK"
	OutcomeWarn  = "WARN"
	OutcomeError = "ERROR"
)

// Run is one AI-readiness background job.
type Run struct {
	ID              string    `json:"id"`
	SiteURL         string    `json:"siteUrl"`
	Status          string    `json:"status"`
	Message         string    `json:"message,omitempty"`
	Recommendations string    `json:"recommendations,omitempty"`
	ErrorMessage    string    `json:"error,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// LogEntry is one immutable record of a job step's outcome. Entries
// are append-only; the ordered list is the job's audit trail.
type LogEntry struct {
	ID             int64          `json:"id"`
	RunID          string         `json:"runId"`
	StepID         string         `json:"stepId"`
	StepName       string         `json:"stepName"`
	Outcome        string         `json:"outcome"`
	ResponseTimeMs *float64       `json:"responseTimeMs,omitempty"`
	Detail         map[string]any `json:"detail,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// StatusResponse is the pollable view of a job.
type StatusResponse struct {
	Status          string     `json:"status"`
	Message         string     `json:"message,omitempty"`
	Logs            []LogEntry `json:"logs"`
	Recommendations string     `json:"recommendations,omitempty"`
	Error           string     `json:"error,omitempty"`
}
