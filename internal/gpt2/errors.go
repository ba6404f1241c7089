package gpt2

import (
	"errors"
	"fmt"
)

// Forward pass and loading errors.
var (
	ErrInvalidHParams   = errors.New("invalid hyperparameters")
	ErrEmptyInput       = errors.New("empty input")
	ErrRaggedInput      = errors.New("input rows have different lengths")
	ErrTokenOutOfRange  = errors.New("token id out of vocabulary range")
	ErrContextOverflow  = errors.New("context exceeds model positional capacity")
	ErrPastMismatch     = errors.New("past does not match input")
	ErrWeightShape      = errors.New("weight shape mismatch")
	ErrUnknownModelName = errors.New("unknown model name")
)

// RowError reports a failure attributable to one batch row.
type RowError struct {
	Row int
	Err error
}

// Error implements the error interface.
func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

// Unwrap returns the underlying error.
func (e *RowError) Unwrap() error {
	return e.Err
}
