package generate

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/gpt2/internal/parallel"
)

// letterTokenizer maps 'a'..'g' to ids 1..7 and id 0 to <|endoftext|>.
type letterTokenizer struct{}

func (letterTokenizer) Encode(text string) ([]int32, error) {
	ids := make([]int32, 0, len(text))
	for _, r := range text {
		if r < 'a' || r > 'g' {
			return nil, fmt.Errorf("unknown rune %q", r)
		}
		ids = append(ids, r-'a'+1)
	}
	return ids, nil
}

func (letterTokenizer) Decode(tokens []int32) (string, error) {
	var sb strings.Builder
	for _, id := range tokens {
		switch {
		case id == 0:
			sb.WriteString("<|endoftext|>")
		case id > 0 && id < 8:
			sb.WriteRune(rune('a' + id - 1))
		default:
			return "", fmt.Errorf("unknown id %d", id)
		}
	}
	return sb.String(), nil
}

func (letterTokenizer) VocabSize() int                  { return 8 }
func (letterTokenizer) BosToken() int32                 { return 0 }
func (letterTokenizer) EosToken() int32                 { return 0 }
func (letterTokenizer) IsSpecialToken(token int32) bool { return token == 0 }

func greedyConfig(length, nsamples, batch int) GenerateConfig {
	cfg := DefaultGenerateConfig()
	cfg.Length = length
	cfg.NSamples = nsamples
	cfg.BatchSize = batch
	cfg.Sampling = greedy()
	return cfg
}

func TestTextGenerator_Generate(t *testing.T) {
	gen := NewTextGenerator(newEchoModel(), letterTokenizer{})

	samples, err := gen.Generate(context.Background(), "ab", greedyConfig(3, 1, 1))
	require.NoError(t, err)
	require.Len(t, samples, 1)

	assert.Equal(t, 0, samples[0].Index)
	assert.Equal(t, []int32{3, 4, 5}, samples[0].Tokens)
	assert.Equal(t, "cde", samples[0].Text)
}

func TestTextGenerator_IncludeContext(t *testing.T) {
	gen := NewTextGenerator(newEchoModel(), letterTokenizer{})

	cfg := greedyConfig(2, 1, 1)
	cfg.IncludeContext = true
	samples, err := gen.Generate(context.Background(), "ab", cfg)
	require.NoError(t, err)
	assert.Equal(t, "abcd", samples[0].Text)
}

func TestTextGenerator_Unconditional(t *testing.T) {
	model := newEchoModel()
	gen := NewTextGenerator(model, letterTokenizer{})

	samples, err := gen.Generate(context.Background(), "", greedyConfig(3, 1, 1))
	require.NoError(t, err)

	assert.Equal(t, [][]int32{{0}}, model.inputs[0])
	assert.Equal(t, "abc", samples[0].Text)
}

func TestTextGenerator_SamplesAcrossBatches(t *testing.T) {
	gen := NewTextGenerator(newEchoModel(), letterTokenizer{}, WithParallel(parallel.Sequential()))

	samples, err := gen.Generate(context.Background(), "a", greedyConfig(2, 3, 2))
	require.NoError(t, err)
	require.Len(t, samples, 3)

	for i, s := range samples {
		assert.Equal(t, i, s.Index)
		assert.Len(t, s.Tokens, 2)
	}
	// Row 0 of each batch follows the same greedy path.
	assert.Equal(t, "bc", samples[0].Text)
	assert.Equal(t, "ce", samples[1].Text)
	assert.Equal(t, samples[0].Text, samples[2].Text)
}

func TestTextGenerator_DefaultLengthIsHalfContext(t *testing.T) {
	gen := NewTextGenerator(newEchoModel(), letterTokenizer{})

	samples, err := gen.Generate(context.Background(), "a", greedyConfig(0, 1, 1))
	require.NoError(t, err)
	assert.Len(t, samples[0].Tokens, 16)
}

func TestTextGenerator_Errors(t *testing.T) {
	gen := NewTextGenerator(newEchoModel(), letterTokenizer{})

	_, err := gen.Generate(context.Background(), "xyz", greedyConfig(2, 1, 1))
	assert.ErrorContains(t, err, "encode prompt")

	_, err = gen.Generate(context.Background(), "a", greedyConfig(40, 1, 1))
	assert.ErrorIs(t, err, ErrLengthTooLong)

	_, err = gen.Generate(context.Background(), "a", greedyConfig(-1, 1, 1))
	assert.ErrorIs(t, err, ErrInvalidLength)

	_, err = gen.Generate(context.Background(), "a", greedyConfig(2, 0, 1))
	assert.ErrorIs(t, err, ErrInvalidSamples)
}

func TestTextGenerator_Observer(t *testing.T) {
	obs := &recordingObserver{}
	gen := NewTextGenerator(newEchoModel(), letterTokenizer{}, WithObserver(obs))

	_, err := gen.Generate(context.Background(), "a", greedyConfig(3, 4, 2))
	require.NoError(t, err)
	assert.Equal(t, 2, obs.sequences)
	assert.Equal(t, 12, obs.tokens)
}

func TestTextGenerator_DecodeError(t *testing.T) {
	model := newEchoModel()
	model.vocab = 12
	gen := NewTextGenerator(model, letterTokenizer{})

	_, err := gen.Generate(context.Background(), "g", greedyConfig(3, 1, 1))
	assert.ErrorContains(t, err, "decode sample 0")
}
