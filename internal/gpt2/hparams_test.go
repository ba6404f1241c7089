package gpt2

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*HParams)
		wantErr bool
	}{
		{"valid", func(*HParams) {}, false},
		{"zero vocab", func(h *HParams) { h.NVocab = 0 }, true},
		{"zero ctx", func(h *HParams) { h.NCtx = 0 }, true},
		{"negative embd", func(h *HParams) { h.NEmbd = -1 }, true},
		{"zero heads", func(h *HParams) { h.NHead = 0 }, true},
		{"zero layers", func(h *HParams) { h.NLayer = 0 }, true},
		{"heads do not divide", func(h *HParams) { h.NHead = 5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hp := tinyHParams()
			tt.mutate(&hp)
			err := hp.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidHParams)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHParamsFor(t *testing.T) {
	hp, err := HParamsFor("124M")
	require.NoError(t, err)
	assert.Equal(t, DefaultHParams(), hp)
	assert.Equal(t, 64, hp.HeadDim())

	hp, err = HParamsFor("1558M")
	require.NoError(t, err)
	assert.Equal(t, 48, hp.NLayer)

	_, err = HParamsFor("117B")
	assert.ErrorIs(t, err, ErrUnknownModelName)

	assert.Equal(t, []string{"124M", "355M", "774M", "1558M"}, ModelNames())
}

func TestLoadHParams(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hparams.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "n_vocab": 50257,
  "n_ctx": 1024,
  "n_embd": 768,
  "n_head": 12,
  "n_layer": 12
}`), 0o600))

	hp, err := LoadHParams(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultHParams(), hp)

	require.NoError(t, os.WriteFile(path, []byte(`{"n_vocab": 10, "n_ctx": 8, "n_embd": 6, "n_head": 4, "n_layer": 1}`), 0o600))
	_, err = LoadHParams(path)
	assert.ErrorIs(t, err, ErrInvalidHParams)

	_, err = LoadHParams(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
