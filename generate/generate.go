// Package generate samples text from GPT-2 models.
//
// This package wraps the internal generate implementation and provides
// a clean public API for sampling.
//
// Components:
//   - Sampler: temperature, top-k and top-p filtering of one logit row
//   - SampleSequence: the cached-past decode loop for one batch
//   - SampleN: several decode calls with independent seeds
//   - TextGenerator: prompt in, decoded samples out
//
// Example usage:
//
//	import (
//	    "github.com/born-ml/gpt2/generate"
//	    "github.com/born-ml/gpt2/gpt2"
//	    "github.com/born-ml/gpt2/tokenizer"
//	)
//
//	model, err := gpt2.Load("models", "124M")
//	tok, err := tokenizer.Load("models", "124M")
//
//	cfg := generate.DefaultGenerateConfig()
//	cfg.NSamples = 4
//	cfg.Sampling.TopK = 40
//
//	gen := generate.NewTextGenerator(model, tok)
//	samples, err := gen.Generate(ctx, "Hello", cfg)
package generate

import (
	"context"

	"github.com/born-ml/gpt2/internal/generate"
	"github.com/born-ml/gpt2/internal/parallel"
	"github.com/born-ml/gpt2/internal/tokenizer"
)

// Sampling Configuration

// SamplingConfig configures the sampling strategy.
//
// Parameters:
//   - Temperature: logits are divided by it (> 0, 1 = unchanged)
//   - TopK: keep the K most likely tokens (0 = disabled)
//   - TopP: keep the smallest set whose probability reaches P (1.0 = disabled)
//   - Seed: random seed (negative = random)
type SamplingConfig = generate.SamplingConfig

// DefaultSamplingConfig returns temperature 1, no filtering and a random seed.
func DefaultSamplingConfig() SamplingConfig {
	return generate.DefaultSamplingConfig()
}

// Sampler draws tokens from logit rows.
type Sampler = generate.Sampler

// NewSampler creates a new sampler with the given configuration.
func NewSampler(config SamplingConfig) *Sampler {
	return generate.NewSampler(config)
}

// Decode Loop

// Model is the interface the decode loop drives.
type Model = generate.Model

// Observer receives per-step and per-call timings.
type Observer = generate.Observer

// SequenceConfig configures one decode call.
type SequenceConfig = generate.SequenceConfig

// StepError reports the decode step (and row, when known) that failed.
type StepError = generate.StepError

// SampleSequence decodes cfg.Length tokens for each row of the batch.
func SampleSequence(ctx context.Context, model Model, cfg SequenceConfig) ([][]int32, error) {
	return generate.SampleSequence(ctx, model, cfg)
}

// SampleN runs decode calls until nsamples rows are produced. Call i is
// seeded with base seed + i, so results do not depend on scheduling.
func SampleN(ctx context.Context, model Model, nsamples int, cfg SequenceConfig) ([][]int32, error) {
	return generate.SampleN(ctx, model, nsamples, cfg, parallel.DefaultConfig())
}

// Text Generation

// GenerateConfig configures text generation.
//
//nolint:revive // GenerateConfig is clearer than Config
type GenerateConfig = generate.GenerateConfig

// DefaultGenerateConfig returns one sample of half-context length.
func DefaultGenerateConfig() GenerateConfig {
	return generate.DefaultGenerateConfig()
}

// Sample is one generated text.
type Sample = generate.Sample

// TextGenerator generates text using a model and tokenizer.
type TextGenerator = generate.TextGenerator

// GeneratorOption configures a TextGenerator.
type GeneratorOption = generate.GeneratorOption

// WithObserver attaches an observer to every decode call.
func WithObserver(o Observer) GeneratorOption {
	return generate.WithObserver(o)
}

// WithSequential decodes batches one after another on the calling goroutine.
func WithSequential() GeneratorOption {
	return generate.WithParallel(parallel.Sequential())
}

// NewTextGenerator creates a new text generator.
func NewTextGenerator(model Model, tok tokenizer.Tokenizer, opts ...GeneratorOption) *TextGenerator {
	return generate.NewTextGenerator(model, tok, opts...)
}

// Errors

// Configuration and decode errors.
var (
	ErrInvalidTemperature     = generate.ErrInvalidTemperature
	ErrInvalidTopK            = generate.ErrInvalidTopK
	ErrInvalidTopP            = generate.ErrInvalidTopP
	ErrInvalidLength          = generate.ErrInvalidLength
	ErrLengthTooLong          = generate.ErrLengthTooLong
	ErrInvalidBatch           = generate.ErrInvalidBatch
	ErrInvalidSamples         = generate.ErrInvalidSamples
	ErrDegenerateDistribution = generate.ErrDegenerateDistribution
)
