package gpt2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/gpt2/internal/modeldir"
)

func TestSaveLoad(t *testing.T) {
	m := tinyModel(t)
	d := modeldir.New(t.TempDir(), "124M")
	require.NoError(t, Save(d, m))

	loaded, err := Load(d)
	require.NoError(t, err)
	assert.Equal(t, m.HParams(), loaded.HParams())

	tokens := [][]int32{{5, 6, 7}}
	want, _, err := m.Forward(tokens, nil)
	require.NoError(t, err)
	got, _, err := loaded.Forward(tokens, nil)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoad_MissingCheckpoint(t *testing.T) {
	_, err := Load(modeldir.New(t.TempDir(), "124M"))
	assert.ErrorIs(t, err, modeldir.ErrCheckpointNotFound)
}

type mapSource map[string]Tensor

func (s mapSource) Float32(name string) ([]float32, []int, error) {
	t, ok := s[name]
	if !ok {
		return nil, nil, assert.AnError
	}
	return t.Data, t.Shape, nil
}

func TestFromSource_ShapeMismatch(t *testing.T) {
	src := mapSource{}
	for _, tensor := range tinyModel(t).Tensors() {
		src[tensor.Name] = tensor
	}

	wte := src["wte.weight"]
	wte.Shape = []int{16, 64}
	src["wte.weight"] = wte

	_, err := FromSource(tinyHParams(), src)
	assert.ErrorIs(t, err, ErrWeightShape)

	delete(src, "wte.weight")
	_, err = FromSource(tinyHParams(), src)
	assert.ErrorIs(t, err, assert.AnError)
}
