package main

import (
	"context"
	"fmt"

	"github.com/born-ml/gpt2/internal/generate"
	"github.com/born-ml/gpt2/internal/gpt2"
	"github.com/born-ml/gpt2/internal/logger"
	"github.com/born-ml/gpt2/internal/modeldir"
	"github.com/born-ml/gpt2/internal/tokenizer"
)

// loadGenerator reads the checkpoint and vocabulary of d.
func loadGenerator(ctx context.Context, d modeldir.Dir, opts ...generate.GeneratorOption) (*generate.TextGenerator, *gpt2.Model, error) {
	log := logger.FromContext(ctx)

	if err := d.Check(); err != nil {
		return nil, nil, fmt.Errorf("%w (run `gpt2 download -m %s`)", err, d.Model)
	}
	tok, err := tokenizer.LoadGPT2(d)
	if err != nil {
		return nil, nil, fmt.Errorf("load tokenizer: %w", err)
	}
	model, err := gpt2.Load(d)
	if err != nil {
		return nil, nil, fmt.Errorf("load model: %w", err)
	}

	hp := model.HParams()
	log.Info().
		Str("model", d.Model).
		Int("n_layer", hp.NLayer).
		Int("n_embd", hp.NEmbd).
		Int("n_ctx", hp.NCtx).
		Int("n_vocab", hp.NVocab).
		Msg("model loaded")

	return generate.NewTextGenerator(model, tok, opts...), model, nil
}
