package generate

import (
	"context"
	"fmt"

	"github.com/born-ml/gpt2/internal/parallel"
	"github.com/born-ml/gpt2/internal/tokenizer"
)

// GenerateConfig configures text generation.
//
//nolint:revive // GenerateConfig is clearer than Config
type GenerateConfig struct {
	// Length is the number of tokens per sample. 0 means half the model context.
	Length int

	// NSamples is the total number of samples to return.
	NSamples int

	// BatchSize is the number of samples decoded together.
	BatchSize int

	// IncludeContext prepends the prompt to every sample.
	IncludeContext bool

	// Sampling is the sampling configuration.
	Sampling SamplingConfig
}

// DefaultGenerateConfig returns one sample of half-context length.
func DefaultGenerateConfig() GenerateConfig {
	return GenerateConfig{
		Length:    0,
		NSamples:  1,
		BatchSize: 1,
		Sampling:  DefaultSamplingConfig(),
	}
}

// Sample is one generated text.
type Sample struct {
	Index  int     `json:"index"`
	Tokens []int32 `json:"tokens"`
	Text   string  `json:"text"`
}

// TextGenerator generates text from prompts with a model and tokenizer.
// It is safe for concurrent use when the model is.
type TextGenerator struct {
	model     Model
	tokenizer tokenizer.Tokenizer
	parallel  parallel.Config
	observer  Observer
}

// GeneratorOption configures a TextGenerator.
type GeneratorOption func(*TextGenerator)

// WithParallel sets how batches are scheduled.
func WithParallel(cfg parallel.Config) GeneratorOption {
	return func(g *TextGenerator) {
		g.parallel = cfg
	}
}

// WithObserver attaches an observer to every decode call.
func WithObserver(o Observer) GeneratorOption {
	return func(g *TextGenerator) {
		g.observer = o
	}
}

// NewTextGenerator creates a new text generator.
func NewTextGenerator(model Model, tok tokenizer.Tokenizer, opts ...GeneratorOption) *TextGenerator {
	g := &TextGenerator{
		model:     model,
		tokenizer: tok,
		parallel:  parallel.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate samples cfg.NSamples continuations of prompt. An empty prompt
// generates unconditionally from the end-of-text token.
func (g *TextGenerator) Generate(ctx context.Context, prompt string, cfg GenerateConfig) ([]Sample, error) {
	seq, err := g.sequenceConfig(prompt, cfg)
	if err != nil {
		return nil, err
	}

	rows, err := SampleN(ctx, g.model, cfg.NSamples, seq, g.parallel)
	if err != nil {
		return nil, err
	}

	samples := make([]Sample, len(rows))
	for i, row := range rows {
		text, err := g.tokenizer.Decode(row)
		if err != nil {
			return nil, fmt.Errorf("decode sample %d: %w", i, err)
		}
		samples[i] = Sample{Index: i, Tokens: row, Text: text}
	}
	return samples, nil
}

func (g *TextGenerator) sequenceConfig(prompt string, cfg GenerateConfig) (SequenceConfig, error) {
	length := cfg.Length
	if length == 0 {
		length = g.model.MaxContext() / 2
	}

	seq := SequenceConfig{
		Length:         length,
		BatchSize:      cfg.BatchSize,
		StartToken:     g.tokenizer.BosToken(),
		IncludeContext: cfg.IncludeContext,
		Sampling:       cfg.Sampling,
		Observer:       g.observer,
	}
	if prompt == "" {
		return seq, nil
	}

	ids, err := g.tokenizer.Encode(prompt)
	if err != nil {
		return SequenceConfig{}, fmt.Errorf("encode prompt: %w", err)
	}
	if len(ids) > 0 {
		seq.Context = [][]int32{ids}
	}
	return seq, nil
}
