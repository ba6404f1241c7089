package modeldir

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
}

func TestDir_Paths(t *testing.T) {
	d := New("models", "124M")
	assert.Equal(t, filepath.Join("models", "124M"), d.Path())
	assert.Equal(t, filepath.Join("models", "124M", "encoder.json"), d.Encoder())
	assert.Equal(t, filepath.Join("models", "124M", "vocab.bpe"), d.Vocab())
	assert.Equal(t, filepath.Join("models", "124M", "hparams.json"), d.HParams())
	assert.Equal(t, filepath.Join("models", "124M", "model.safetensors"), d.Checkpoint())
}

func TestDir_Check(t *testing.T) {
	d := New(t.TempDir(), "124M")

	err := d.Check()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCheckpointNotFound)
	assert.ErrorIs(t, err, ErrVocabNotFound)
	assert.ErrorIs(t, err, ErrHParamsNotFound)

	touch(t, d.Encoder())
	touch(t, d.Vocab())
	touch(t, d.HParams())

	err = d.Check()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCheckpointNotFound)
	assert.False(t, errors.Is(err, ErrVocabNotFound))

	touch(t, d.Checkpoint())
	assert.NoError(t, d.Check())
}

func TestDir_CheckVocab_Partial(t *testing.T) {
	d := New(t.TempDir(), "124M")
	touch(t, d.Encoder())

	err := d.CheckVocab()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVocabNotFound)
	assert.Contains(t, err.Error(), VocabFile)
}

func TestDir_CheckCheckpoint_Directory(t *testing.T) {
	d := New(t.TempDir(), "124M")
	require.NoError(t, os.MkdirAll(d.Checkpoint(), 0o750))

	assert.ErrorIs(t, d.CheckCheckpoint(), ErrCheckpointNotFound)
}
