package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/gpt2/internal/generate"
)

// fakeGenerator echoes the prompt back once per requested sample.
type fakeGenerator struct {
	prompts []string
	cfgs    []generate.GenerateConfig
	err     error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, cfg generate.GenerateConfig) ([]generate.Sample, error) {
	f.prompts = append(f.prompts, prompt)
	f.cfgs = append(f.cfgs, cfg)
	if f.err != nil {
		return nil, f.err
	}
	samples := make([]generate.Sample, cfg.NSamples)
	for i := range samples {
		samples[i] = generate.Sample{Index: i, Text: fmt.Sprintf("%s#%d", prompt, i)}
	}
	return samples, nil
}

func TestPrintSamples(t *testing.T) {
	var buf bytes.Buffer
	err := printSamples(&buf, []generate.Sample{
		{Index: 0, Text: "first"},
		{Index: 1, Text: "second"},
	})
	require.NoError(t, err)

	bar := strings.Repeat("=", 40)
	want := bar + " SAMPLE 1 " + bar + "\n" +
		"first\n" +
		bar + " SAMPLE 2 " + bar + "\n" +
		"second\n" +
		strings.Repeat("=", 80) + "\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteSamples(t *testing.T) {
	gen := &fakeGenerator{}
	cfg := generate.DefaultGenerateConfig()
	cfg.NSamples = 3

	var buf bytes.Buffer
	require.NoError(t, writeSamples(context.Background(), gen, "", cfg, &buf))

	assert.Equal(t, []string{""}, gen.prompts)
	assert.Equal(t, 3, strings.Count(buf.String(), " SAMPLE "))
	assert.Contains(t, buf.String(), "#2\n")
}

func TestWriteSamples_Error(t *testing.T) {
	gen := &fakeGenerator{err: generate.ErrInvalidTopK}

	var buf bytes.Buffer
	err := writeSamples(context.Background(), gen, "x", generate.DefaultGenerateConfig(), &buf)
	require.ErrorIs(t, err, generate.ErrInvalidTopK)
	assert.Empty(t, buf.String())
}

func TestInteractiveSamples(t *testing.T) {
	gen := &fakeGenerator{}
	in := strings.NewReader("\n   \nhello\n  world  \n")

	var out bytes.Buffer
	require.NoError(t, interactiveSamples(context.Background(), gen, generate.DefaultGenerateConfig(), in, &out))

	assert.Equal(t, []string{"hello", "world"}, gen.prompts)
	got := out.String()
	assert.Equal(t, 2, strings.Count(got, "Prompt should not be empty!"))
	assert.Equal(t, 5, strings.Count(got, promptMarker))
	assert.Contains(t, got, "hello#0\n")
	assert.Contains(t, got, "world#0\n")
	assert.Equal(t, 2, strings.Count(got, strings.Repeat("=", 80)))
}

func TestInteractiveSamples_PromptTooLong(t *testing.T) {
	gen := &fakeGenerator{err: fmt.Errorf("%w: 2000 > 1024", generate.ErrLengthTooLong)}

	var out bytes.Buffer
	err := interactiveSamples(context.Background(), gen, generate.DefaultGenerateConfig(), strings.NewReader("a\nb\n"), &out)
	require.NoError(t, err)
	assert.Len(t, gen.prompts, 2)
	assert.Equal(t, 2, strings.Count(out.String(), "Prompt is too long"))
}

func TestInteractiveSamples_Error(t *testing.T) {
	gen := &fakeGenerator{err: generate.ErrDegenerateDistribution}

	var out bytes.Buffer
	err := interactiveSamples(context.Background(), gen, generate.DefaultGenerateConfig(), strings.NewReader("a\nb\n"), &out)
	require.ErrorIs(t, err, generate.ErrDegenerateDistribution)
	assert.Len(t, gen.prompts, 1)
}

func TestSampleOptionsConfig(t *testing.T) {
	o := sampleOptions{
		sampling:       samplingOptions{length: 12, temperature: 0.5, topK: 40, topP: 0.9, seed: 7},
		nsamples:       4,
		batchSize:      2,
		includeContext: true,
	}

	cfg := o.config()
	assert.Equal(t, 12, cfg.Length)
	assert.Equal(t, 4, cfg.NSamples)
	assert.Equal(t, 2, cfg.BatchSize)
	assert.True(t, cfg.IncludeContext)
	assert.Equal(t, generate.SamplingConfig{Temperature: 0.5, TopK: 40, TopP: 0.9, Seed: 7}, cfg.Sampling)
}
