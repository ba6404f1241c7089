package loader_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/gpt2/loader"
)

func TestOpenCheckpoint_StripsPrefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.safetensors")
	require.NoError(t, loader.WriteSafeTensors(path, []loader.Tensor{
		{Name: "transformer.wte.weight", Shape: []int{2, 2}, Data: []float32{1, 2, 3, 4}},
		{Name: "lm_head.weight", Shape: []int{2, 2}, Data: []float32{0, 0, 0, 0}},
	}, map[string]string{"format": "pt"}))

	ckpt, err := loader.OpenCheckpoint(path)
	require.NoError(t, err)
	defer ckpt.Close()

	data, shape, err := ckpt.Float32("wte.weight")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, shape)
	assert.Equal(t, []float32{1, 2, 3, 4}, data)
	assert.Equal(t, "pt", ckpt.Metadata()["format"])

	_, _, err = ckpt.Float32("lm_head.weight")
	require.Error(t, err)
}
