// Package loader reads and writes GPT-2 checkpoints in SafeTensors format.
//
// This package wraps internal loader implementations and exports a clean public API.
//
// Example usage:
//
//	import "github.com/born-ml/gpt2/loader"
//
//	ckpt, err := loader.OpenCheckpoint("models/124M/model.safetensors")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ckpt.Close()
//
//	wte, shape, err := ckpt.Float32("wte.weight")
package loader

import (
	"github.com/born-ml/gpt2/internal/loader"
)

// Checkpoint is a SafeTensors checkpoint addressed by canonical GPT-2 names
// such as "wte.weight" or "h.0.attn.c_attn.weight".
type Checkpoint = loader.Checkpoint

// Tensor is a named float32 tensor.
type Tensor = loader.Tensor

// WeightMapper maps stored tensor names to canonical names.
type WeightMapper = loader.WeightMapper

// OpenCheckpoint opens a checkpoint with the GPT-2 name mapping. Names with
// and without the "transformer." prefix are accepted.
func OpenCheckpoint(path string) (*Checkpoint, error) {
	return loader.OpenCheckpoint(path, loader.NewGPT2Mapper())
}

// OpenCheckpointWithMapper opens a checkpoint with a custom name mapping.
func OpenCheckpointWithMapper(path string, mapper WeightMapper) (*Checkpoint, error) {
	return loader.OpenCheckpoint(path, mapper)
}

// WriteSafeTensors writes float32 tensors to path.
func WriteSafeTensors(path string, tensors []Tensor, metadata map[string]string) error {
	return loader.WriteSafeTensors(path, tensors, metadata)
}
