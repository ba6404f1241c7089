// Package modeldir describes the on-disk layout of a GPT-2 model directory
// and downloads the published files into it.
//
// A model directory <models-dir>/<model>/ holds:
//
//	encoder.json        token -> id map (byte-level unicode keys)
//	vocab.bpe           BPE merge list
//	hparams.json        n_vocab, n_ctx, n_embd, n_head, n_layer
//	model.safetensors   the checkpoint
package modeldir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// File names inside a model directory.
const (
	EncoderFile    = "encoder.json"
	VocabFile      = "vocab.bpe"
	HParamsFile    = "hparams.json"
	CheckpointFile = "model.safetensors"
)

// Missing-artifact errors.
var (
	ErrCheckpointNotFound = errors.New("checkpoint not found")
	ErrVocabNotFound      = errors.New("vocabulary not found")
	ErrHParamsNotFound    = errors.New("hparams not found")
	ErrUnknownModel       = errors.New("unknown model name")
)

// Dir is one model directory.
type Dir struct {
	Root  string // models directory
	Model string // model name, e.g. "124M"
}

// New returns the directory of model under root.
func New(root, model string) Dir {
	return Dir{Root: root, Model: model}
}

// Path returns the directory path.
func (d Dir) Path() string {
	return filepath.Join(d.Root, d.Model)
}

// Encoder returns the path of encoder.json.
func (d Dir) Encoder() string { return filepath.Join(d.Path(), EncoderFile) }

// Vocab returns the path of vocab.bpe.
func (d Dir) Vocab() string { return filepath.Join(d.Path(), VocabFile) }

// HParams returns the path of hparams.json.
func (d Dir) HParams() string { return filepath.Join(d.Path(), HParamsFile) }

// Checkpoint returns the path of model.safetensors.
func (d Dir) Checkpoint() string { return filepath.Join(d.Path(), CheckpointFile) }

// CheckCheckpoint fails with ErrCheckpointNotFound when no checkpoint exists.
func (d Dir) CheckCheckpoint() error {
	if !isFile(d.Checkpoint()) {
		return fmt.Errorf("%w for model %q in %s", ErrCheckpointNotFound, d.Model, d.Path())
	}
	return nil
}

// CheckVocab fails with ErrVocabNotFound when encoder.json or vocab.bpe is missing.
func (d Dir) CheckVocab() error {
	for _, p := range []string{d.Encoder(), d.Vocab()} {
		if !isFile(p) {
			return fmt.Errorf("%w: %s", ErrVocabNotFound, p)
		}
	}
	return nil
}

// CheckHParams fails with ErrHParamsNotFound when hparams.json is missing.
func (d Dir) CheckHParams() error {
	if !isFile(d.HParams()) {
		return fmt.Errorf("%w: %s", ErrHParamsNotFound, d.HParams())
	}
	return nil
}

// Check verifies that every file is present. All failures are joined so
// errors.Is matches each missing artifact.
func (d Dir) Check() error {
	return errors.Join(d.CheckCheckpoint(), d.CheckVocab(), d.CheckHParams())
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
