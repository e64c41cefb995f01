package readiness

import "errors"

var (
	ErrNotFound     = errors.New("readiness run not found")
	ErrInvalidInput = errors.New("invalid input")
)
