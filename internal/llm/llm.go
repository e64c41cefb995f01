package llm

import (
	"context"
	"errors"
)

// Citation is one web source returned by a search-enabled completion.
type Citation struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// Completion is the model's answer to one request.
type Completion struct {
	Text      string
	Citations []Citation
	Model     string
}

// CompleteInput captures the inputs for one completion request.
type CompleteInput struct {
	System       string
	Prompt       string
	WebSearch    bool
	JSONResponse bool
}

// Client abstracts LLM providers.
type Client interface {
	Complete(ctx context.Context, input CompleteInput) (Completion, error)
}

type extraSystemKey struct{}

// WithExtraSystemMessage returns a context carrying an additional system
// message, used for schema-repair retries.
func WithExtraSystemMessage(ctx context.Context, msg string) context.Context {
	return context.WithValue(ctx, extraSystemKey{}, msg)
}

// ExtraSystemMessageFromContext returns the extra system message, if any.
func ExtraSystemMessageFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(extraSystemKey{})
	msg, ok := val.(string)
	return msg, ok
}

// ErrNotImplemented is returned by the placeholder client.
var ErrNotImplemented = errors.New("LLM not implemented")

// PlaceholderClient is a stub implementation until provider wiring is added.
type PlaceholderClient struct{}

// Complete returns ErrNotImplemented.
func (PlaceholderClient) Complete(ctx context.Context, input CompleteInput) (Completion, error) {
	_ = ctx
	_ = input
	return Completion{}, ErrNotImplemented
}
