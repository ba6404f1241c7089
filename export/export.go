// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package export freezes a GPT-2 model and its sampling loop into a single
// .born artifact and runs it.
//
// The artifact's graph takes one row of token ids on the input_context
// endpoint and yields the sampled continuation on output_logits.
//
// Example usage:
//
//	import "github.com/born-ml/gpt2/export"
//
//	opts := export.DefaultOptions()
//	opts.Sampling.TopK = 40
//	res, err := export.Freeze(ctx, opts)
//
//	graph, err := export.Load(res.Path)
//	out, err := graph.Run(ctx, [][]int32{{15496, 11}})
package export

import (
	"context"

	"github.com/born-ml/gpt2/internal/export"
)

// Endpoint names of the frozen graph.
const (
	InputEndpoint  = export.InputEndpoint
	OutputEndpoint = export.OutputEndpoint
)

// Options configures Freeze.
type Options = export.Options

// Result describes a written artifact.
type Result = export.Result

// Graph is a loaded artifact.
type Graph = export.Graph

// LoadOption configures Load.
type LoadOption = export.LoadOption

// DefaultOptions returns the 124M model, length 32 and unfiltered sampling.
func DefaultOptions() Options {
	return export.DefaultOptions()
}

// Freeze writes the artifact for opts.
func Freeze(ctx context.Context, opts Options) (*Result, error) {
	return export.Freeze(ctx, opts)
}

// Load opens an artifact, memory-mapped unless WithoutMmap is given.
func Load(path string, opts ...LoadOption) (*Graph, error) {
	return export.Load(path, opts...)
}

// WithoutMmap reads the artifact into memory.
func WithoutMmap() LoadOption {
	return export.WithoutMmap()
}

// Errors.
var (
	ErrExportDir      = export.ErrExportDir
	ErrInvalidOptions = export.ErrInvalidOptions
	ErrBatchSize      = export.ErrBatchSize
	ErrEmptyInput     = export.ErrEmptyInput
	ErrNoGraph        = export.ErrNoGraph
	ErrBadGraph       = export.ErrBadGraph
)
