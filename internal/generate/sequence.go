package generate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/born-ml/gpt2/internal/gpt2"
)

// Model is the forward pass the decode loop drives. *gpt2.Model implements it.
type Model interface {
	// Forward scores the next position of every row. past is nil on the
	// first call; the returned past replaces it for the next call.
	Forward(tokens [][]int32, past *gpt2.Past) ([][]float32, *gpt2.Past, error)

	// VocabSize returns the vocabulary size.
	VocabSize() int

	// MaxContext returns the number of positions the model supports.
	MaxContext() int
}

// Observer receives timing events from the decode loop.
type Observer interface {
	OnStep(step, rows int, elapsed time.Duration)
	OnSequence(rows, tokens int, elapsed time.Duration)
}

// SequenceConfig configures one decode call.
type SequenceConfig struct {
	// Length is the number of tokens to generate per row.
	Length int

	// BatchSize is the number of rows decoded together.
	BatchSize int

	// Context seeds every row. It has either BatchSize rows or a single row
	// that is repeated. Empty means StartToken alone.
	Context [][]int32

	// StartToken seeds rows when Context is empty (<|endoftext|> for GPT-2).
	StartToken int32

	// IncludeContext prepends the seed context to the returned rows.
	IncludeContext bool

	// Sampling is fixed for the whole call.
	Sampling SamplingConfig

	// Observer is optional.
	Observer Observer
}

// seedRows returns BatchSize owned copies of the seed context.
func (c SequenceConfig) seedRows() ([][]int32, error) {
	src := c.Context
	if len(src) == 0 {
		src = [][]int32{{c.StartToken}}
	}
	if len(src) != 1 && len(src) != c.BatchSize {
		return nil, fmt.Errorf("%w: context has %d rows, batch size is %d", ErrInvalidBatch, len(src), c.BatchSize)
	}

	n := len(src[0])
	for i, row := range src {
		if len(row) == 0 {
			return nil, fmt.Errorf("%w: context row %d is empty", ErrInvalidBatch, i)
		}
		if len(row) != n {
			return nil, fmt.Errorf("%w: context row %d has %d tokens, row 0 has %d", ErrInvalidBatch, i, len(row), n)
		}
	}

	rows := make([][]int32, c.BatchSize)
	for b := range rows {
		row := src[0]
		if len(src) > 1 {
			row = src[b]
		}
		rows[b] = make([]int32, n, n+c.Length)
		copy(rows[b], row)
	}
	return rows, nil
}

// validate checks everything that can be checked before the first step and
// returns the seeded rows.
func (c SequenceConfig) validate(model Model) ([][]int32, error) {
	if err := c.Sampling.Validate(); err != nil {
		return nil, err
	}
	if c.Length <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLength, c.Length)
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size must be > 0, got %d", ErrInvalidBatch, c.BatchSize)
	}

	rows, err := c.seedRows()
	if err != nil {
		return nil, err
	}
	if total := len(rows[0]) + c.Length; total > model.MaxContext() {
		return nil, fmt.Errorf("%w: %d context + %d length > %d", ErrLengthTooLong, len(rows[0]), c.Length, model.MaxContext())
	}
	return rows, nil
}

// SampleSequence runs the decode loop: the first step feeds the whole
// context, every later step feeds only the token drawn in the previous step
// together with the cached past. It returns BatchSize rows of Length tokens,
// preceded by the context when IncludeContext is set.
//
// ctx is checked between steps. Any failure discards the partial output; a
// failing forward pass or draw is reported as a *StepError.
func SampleSequence(ctx context.Context, model Model, cfg SequenceConfig) ([][]int32, error) {
	rows, err := cfg.validate(model)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	contextLen := len(rows[0])
	sampler := NewSampler(cfg.Sampling)

	input := rows
	var past *gpt2.Past
	for step := 0; step < cfg.Length; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		stepStart := time.Now()
		logits, next, err := model.Forward(input, past)
		if err != nil {
			return nil, forwardError(step, err)
		}
		if len(logits) != cfg.BatchSize {
			return nil, &StepError{Step: step, Row: -1,
				Err: fmt.Errorf("%w: %d rows, want %d", ErrLogitsShape, len(logits), cfg.BatchSize)}
		}

		input = make([][]int32, cfg.BatchSize)
		for b, row := range logits {
			if len(row) != model.VocabSize() {
				return nil, &StepError{Step: step, Row: b,
					Err: fmt.Errorf("%w: %d logits, want %d", ErrLogitsShape, len(row), model.VocabSize())}
			}
			tok, err := sampler.Sample(row)
			if err != nil {
				return nil, &StepError{Step: step, Row: b, Err: err}
			}
			rows[b] = append(rows[b], tok)
			input[b] = []int32{tok}
		}
		past = next

		if cfg.Observer != nil {
			cfg.Observer.OnStep(step, cfg.BatchSize, time.Since(stepStart))
		}
	}

	if cfg.Observer != nil {
		cfg.Observer.OnSequence(cfg.BatchSize, cfg.BatchSize*cfg.Length, time.Since(start))
	}

	if cfg.IncludeContext {
		return rows, nil
	}
	out := make([][]int32, len(rows))
	for b, row := range rows {
		out[b] = row[contextLen:]
	}
	return out, nil
}

func forwardError(step int, err error) error {
	var rowErr *gpt2.RowError
	if errors.As(err, &rowErr) {
		return &StepError{Step: step, Row: rowErr.Row, Err: err}
	}
	return &StepError{Step: step, Row: -1, Err: err}
}
