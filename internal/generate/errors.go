package generate

import (
	"errors"
	"fmt"
)

// Configuration errors. They are reported before the first step.
var (
	ErrInvalidTemperature = errors.New("temperature must be > 0")
	ErrInvalidTopK        = errors.New("top_k must be >= 0")
	ErrInvalidTopP        = errors.New("top_p must be in (0, 1]")
	ErrInvalidLength      = errors.New("length must be > 0")
	ErrLengthTooLong      = errors.New("context plus length exceeds model context")
	ErrInvalidBatch       = errors.New("invalid batch")
	ErrInvalidSamples     = errors.New("nsamples must be > 0")
)

// ErrDegenerateDistribution means every candidate was masked. Top-p always
// keeps one token, so seeing it indicates a bug rather than bad input.
var ErrDegenerateDistribution = errors.New("no candidate token survived filtering")

// ErrLogitsShape is returned when a model yields logits of the wrong shape.
var ErrLogitsShape = errors.New("unexpected logits shape")

// StepError wraps a failure inside the decode loop.
type StepError struct {
	Step int // zero-based step index
	Row  int // batch row, or -1 when not attributable to a row
	Err  error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("step %d, row %d: %v", e.Step, e.Row, e.Err)
	}
	return fmt.Sprintf("step %d: %v", e.Step, e.Err)
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error {
	return e.Err
}
