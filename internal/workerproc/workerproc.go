package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"brandscope-backend/internal/companies"
	"brandscope-backend/internal/queue"
	"brandscope-backend/internal/shared/metrics"
	"brandscope-backend/internal/shared/telemetry"
)

// ScheduledExecutor runs all saved prompts for one company.
type ScheduledExecutor interface {
	ExecuteScheduled(ctx context.Context, companyID string) (companies.ScheduledResult, error)
}

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrMissingCompanyID indicates a message missing the company id.
type ErrMissingCompanyID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingCompanyID) Error() string { return "missing company id" }

// ErrProcess indicates execution failed after successful parsing.
type ErrProcess struct {
	CompanyID string
	RequestID string
	Err       error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "execute scheduled prompts"
	}
	return "execute scheduled prompts: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if strings.TrimSpace(msg.CompanyID) == "" {
		return msg, meta, ErrMissingCompanyID{Meta: meta, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

// HandleMessage parses, validates, and executes one scheduled-run payload.
func HandleMessage(ctx context.Context, exec ScheduledExecutor, body string) error {
	msg, _, err := ParseMessage(body)
	if err != nil {
		return err
	}
	metrics.IncScheduledJobsReceived()

	result, err := exec.ExecuteScheduled(ctx, msg.CompanyID)
	if err != nil {
		return ErrProcess{CompanyID: msg.CompanyID, RequestID: msg.RequestID, Err: err}
	}

	telemetry.Info("worker.scheduled_run.done", map[string]any{
		"company_id": msg.CompanyID,
		"request_id": msg.RequestID,
		"run_id":     result.RunID,
		"executed":   result.Executed,
		"failed":     result.Failed,
	})
	return nil
}
