package runs

import "errors"

var (
	ErrNotFound     = errors.New("run not found")
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidTransition is returned when a state change is requested
	// from a step or status that does not allow it.
	ErrInvalidTransition = errors.New("invalid state transition")
)
