package gpt2

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func tinyHParams() HParams {
	return HParams{NVocab: 64, NCtx: 16, NEmbd: 16, NHead: 2, NLayer: 2}
}

func tinyModel(t *testing.T, opts ...Option) *Model {
	t.Helper()
	m, err := NewRandom(tinyHParams(), 42, opts...)
	require.NoError(t, err)
	return m
}
