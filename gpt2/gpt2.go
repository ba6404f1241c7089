// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package gpt2 provides the GPT-2 decoder with a cached past.
//
// This package wraps the internal gpt2 implementation and provides
// a clean public API for loading and running models.
//
// Example usage:
//
//	import "github.com/born-ml/gpt2/gpt2"
//
//	model, err := gpt2.Load("models", "124M")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Full forward pass over the prompt, then one token per step.
//	logits, past, err := model.Forward([][]int32{{15496, 11}}, nil)
//	logits, past, err = model.Forward([][]int32{{995}}, past)
package gpt2

import (
	"github.com/born-ml/gpt2/internal/gpt2"
	"github.com/born-ml/gpt2/internal/modeldir"
)

// HParams are the model hyperparameters stored in hparams.json.
type HParams = gpt2.HParams

// Model is a GPT-2 decoder. Forward is safe for concurrent use.
type Model = gpt2.Model

// Past holds the cached keys and values of every layer.
type Past = gpt2.Past

// Option configures a Model.
type Option = gpt2.Option

// ModelNames returns the names of the published checkpoints.
func ModelNames() []string {
	return gpt2.ModelNames()
}

// HParamsFor returns the hyperparameters of a published model.
func HParamsFor(name string) (HParams, error) {
	return gpt2.HParamsFor(name)
}

// Load reads hparams.json and model.safetensors from <modelsDir>/<model>.
func Load(modelsDir, model string, opts ...Option) (*Model, error) {
	return gpt2.Load(modeldir.New(modelsDir, model), opts...)
}

// Save writes hparams.json and model.safetensors to <modelsDir>/<model>.
func Save(modelsDir, model string, m *Model) error {
	return gpt2.Save(modeldir.New(modelsDir, model), m)
}

// NewRandom returns a model with small random weights.
func NewRandom(hp HParams, seed int64, opts ...Option) (*Model, error) {
	return gpt2.NewRandom(hp, seed, opts...)
}

// Errors returned by Forward and Load.
var (
	ErrInvalidHParams  = gpt2.ErrInvalidHParams
	ErrEmptyInput      = gpt2.ErrEmptyInput
	ErrRaggedInput     = gpt2.ErrRaggedInput
	ErrTokenOutOfRange = gpt2.ErrTokenOutOfRange
	ErrContextOverflow = gpt2.ErrContextOverflow
	ErrPastMismatch    = gpt2.ErrPastMismatch

	ErrCheckpointNotFound = modeldir.ErrCheckpointNotFound
)
