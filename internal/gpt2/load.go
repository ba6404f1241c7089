package gpt2

import (
	"fmt"

	"github.com/born-ml/gpt2/internal/loader"
	"github.com/born-ml/gpt2/internal/modeldir"
)

// Load restores a Model from a model directory: hparams.json plus
// model.safetensors. A missing checkpoint fails with
// modeldir.ErrCheckpointNotFound before anything is read.
func Load(d modeldir.Dir, opts ...Option) (*Model, error) {
	if err := d.CheckCheckpoint(); err != nil {
		return nil, err
	}
	if err := d.CheckHParams(); err != nil {
		return nil, err
	}

	hp, err := LoadHParams(d.HParams())
	if err != nil {
		return nil, err
	}

	ckpt, err := loader.OpenCheckpoint(d.Checkpoint(), loader.NewGPT2Mapper())
	if err != nil {
		return nil, fmt.Errorf("open checkpoint: %w", err)
	}
	defer func() {
		_ = ckpt.Close()
	}()

	return FromSource(hp, ckpt, opts...)
}

// Save writes hparams.json and model.safetensors for m into d.
func Save(d modeldir.Dir, m *Model) error {
	if err := writeHParams(d.HParams(), m.hp); err != nil {
		return err
	}

	tensors := m.Tensors()
	out := make([]loader.Tensor, len(tensors))
	for i, t := range tensors {
		out[i] = loader.Tensor{Name: t.Name, Shape: t.Shape, Data: t.Data}
	}
	if err := loader.WriteSafeTensors(d.Checkpoint(), out, map[string]string{"format": "pt"}); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}
