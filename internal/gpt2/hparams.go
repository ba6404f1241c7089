package gpt2

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/goccy/go-json"
)

// HParams are the hyperparameters stored in a model directory's hparams.json.
type HParams struct {
	NVocab int `json:"n_vocab"`
	NCtx   int `json:"n_ctx"`
	NEmbd  int `json:"n_embd"`
	NHead  int `json:"n_head"`
	NLayer int `json:"n_layer"`
}

// Published GPT-2 sizes keyed by model name.
var knownHParams = map[string]HParams{
	"124M":  {NVocab: 50257, NCtx: 1024, NEmbd: 768, NHead: 12, NLayer: 12},
	"355M":  {NVocab: 50257, NCtx: 1024, NEmbd: 1024, NHead: 16, NLayer: 24},
	"774M":  {NVocab: 50257, NCtx: 1024, NEmbd: 1280, NHead: 20, NLayer: 36},
	"1558M": {NVocab: 50257, NCtx: 1024, NEmbd: 1600, NHead: 25, NLayer: 48},
}

// DefaultHParams returns the hyperparameters of the 124M model.
func DefaultHParams() HParams {
	return knownHParams["124M"]
}

// HParamsFor returns the published hyperparameters for a model name.
func HParamsFor(name string) (HParams, error) {
	hp, ok := knownHParams[name]
	if !ok {
		return HParams{}, fmt.Errorf("%w: %q (known: %v)", ErrUnknownModelName, name, ModelNames())
	}
	return hp, nil
}

// ModelNames lists the published model names in size order.
func ModelNames() []string {
	names := make([]string, 0, len(knownHParams))
	for name := range knownHParams {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return knownHParams[names[i]].NLayer < knownHParams[names[j]].NLayer
	})
	return names
}

// LoadHParams reads hparams.json.
func LoadHParams(path string) (HParams, error) {
	//nolint:gosec // G304: path is the model directory chosen by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return HParams{}, fmt.Errorf("read hparams: %w", err)
	}

	var hp HParams
	if err := json.Unmarshal(data, &hp); err != nil {
		return HParams{}, fmt.Errorf("parse hparams %s: %w", path, err)
	}
	if err := hp.Validate(); err != nil {
		return HParams{}, fmt.Errorf("hparams %s: %w", path, err)
	}
	return hp, nil
}

func writeHParams(path string, hp HParams) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	data, err := json.MarshalIndent(hp, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write hparams: %w", err)
	}
	return nil
}

// Validate checks that every dimension is positive and heads divide the embedding.
func (hp HParams) Validate() error {
	switch {
	case hp.NVocab <= 0:
		return fmt.Errorf("%w: n_vocab must be positive, got %d", ErrInvalidHParams, hp.NVocab)
	case hp.NCtx <= 0:
		return fmt.Errorf("%w: n_ctx must be positive, got %d", ErrInvalidHParams, hp.NCtx)
	case hp.NEmbd <= 0:
		return fmt.Errorf("%w: n_embd must be positive, got %d", ErrInvalidHParams, hp.NEmbd)
	case hp.NHead <= 0:
		return fmt.Errorf("%w: n_head must be positive, got %d", ErrInvalidHParams, hp.NHead)
	case hp.NLayer <= 0:
		return fmt.Errorf("%w: n_layer must be positive, got %d", ErrInvalidHParams, hp.NLayer)
	case hp.NEmbd%hp.NHead != 0:
		return fmt.Errorf("%w: n_embd %d not divisible by n_head %d", ErrInvalidHParams, hp.NEmbd, hp.NHead)
	}
	return nil
}

// HeadDim returns the per-head dimension.
func (hp HParams) HeadDim() int {
	return hp.NEmbd / hp.NHead
}
