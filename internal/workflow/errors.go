package workflow

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrStepNotReady is returned when a step is invoked before its
	// predecessor has persisted its output.
	ErrStepNotReady = errors.New("previous step not completed")
	// ErrRunPaused is returned when prompt execution is requested on a
	// paused run.
	ErrRunPaused = errors.New("run is paused")
)

// SchemaError reports LLM output that did not match the expected JSON
// shape. It aborts the current step but carries enough context for the
// caller to surface a useful message.
type SchemaError struct {
	Expected string
	Detail   string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("llm output schema mismatch: expected %s: %s", e.Expected, e.Detail)
}

// IsSchemaError reports whether err is a SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}
