package loader

import (
	"fmt"
	"strings"
)

// ArchitectureGPT2 identifies GPT-2 checkpoints.
const ArchitectureGPT2 = "gpt2"

// WeightMapper maps checkpoint tensor names to the names a model expects.
type WeightMapper interface {
	// MapName converts a checkpoint name to the canonical name.
	// ok is false for tensors the model does not consume (buffers, tied heads).
	MapName(name string) (canonical string, ok bool)

	// Architecture returns the architecture name.
	Architecture() string
}

// GPT2Mapper maps Hugging Face GPT-2 checkpoint names.
//
// Canonical names follow the Hugging Face layout without the optional
// "transformer." prefix: wte.weight, wpe.weight, h.N.ln_1.weight, ...,
// ln_f.weight.
type GPT2Mapper struct{}

// NewGPT2Mapper creates a GPT-2 weight mapper.
func NewGPT2Mapper() *GPT2Mapper {
	return &GPT2Mapper{}
}

// MapName strips the "transformer." prefix and skips the causal-mask buffers
// and the lm_head, which is tied to wte.
func (m *GPT2Mapper) MapName(name string) (string, bool) {
	name = strings.TrimPrefix(name, "transformer.")
	switch {
	case name == "lm_head.weight":
		return "", false
	case strings.HasSuffix(name, ".attn.bias"), strings.HasSuffix(name, ".attn.masked_bias"):
		return "", false
	}
	return name, true
}

// Architecture returns the architecture name.
func (m *GPT2Mapper) Architecture() string {
	return ArchitectureGPT2
}

// Checkpoint is a SafeTensors checkpoint whose tensors are addressed by
// canonical names.
type Checkpoint struct {
	reader *SafeTensorsReader
	names  map[string]string // canonical -> stored
}

// OpenCheckpoint opens a SafeTensors checkpoint and indexes it through mapper.
func OpenCheckpoint(path string, mapper WeightMapper) (*Checkpoint, error) {
	reader, err := NewSafeTensorsReader(path)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string)
	for _, stored := range reader.TensorNames() {
		canonical, ok := mapper.MapName(stored)
		if !ok {
			continue
		}
		if prev, dup := names[canonical]; dup {
			_ = reader.Close()
			return nil, fmt.Errorf("tensors %s and %s both map to %s", prev, stored, canonical)
		}
		names[canonical] = stored
	}

	return &Checkpoint{reader: reader, names: names}, nil
}

// Float32 reads a tensor by canonical name.
func (c *Checkpoint) Float32(name string) ([]float32, []int, error) {
	stored, ok := c.names[name]
	if !ok {
		return nil, nil, fmt.Errorf("tensor %s not found in checkpoint", name)
	}
	return c.reader.ReadFloat32(stored)
}

// Metadata returns the checkpoint's __metadata__ section.
func (c *Checkpoint) Metadata() map[string]string {
	return c.reader.Metadata()
}

// Close closes the underlying file.
func (c *Checkpoint) Close() error {
	return c.reader.Close()
}
