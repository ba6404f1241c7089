package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
models_dir: /srv/models
model: 355M
export_dir: /srv/export
log_level: debug
server_address: 0.0.0.0:9000
sampling:
  temperature: 0.7
  top_k: 40
  length: 64
  seed: 0
`)

	cfg, err := loadConfig(path, true)
	require.NoError(t, err)
	assert.Equal(t, "/srv/models", cfg.ModelsDir)
	assert.Equal(t, "355M", cfg.Model)
	assert.Equal(t, "/srv/export", cfg.ExportDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Empty(t, cfg.LogFormat)
	assert.Equal(t, "0.0.0.0:9000", cfg.ServerAddress)

	require.NotNil(t, cfg.Sampling.Temperature)
	assert.InDelta(t, 0.7, *cfg.Sampling.Temperature, 1e-12)
	require.NotNil(t, cfg.Sampling.TopK)
	assert.Equal(t, 40, *cfg.Sampling.TopK)
	require.NotNil(t, cfg.Sampling.Length)
	assert.Equal(t, 64, *cfg.Sampling.Length)
	require.NotNil(t, cfg.Sampling.Seed)
	assert.Equal(t, int64(0), *cfg.Sampling.Seed)
	assert.Nil(t, cfg.Sampling.TopP)
}

func TestLoadConfig_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")

	cfg, err := loadConfig(path, false)
	require.NoError(t, err)
	assert.Equal(t, fileConfig{}, cfg)

	_, err = loadConfig(path, true)
	require.ErrorIs(t, err, os.ErrNotExist)

	cfg, err = loadConfig("", true)
	require.NoError(t, err)
	assert.Equal(t, fileConfig{}, cfg)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := writeConfig(t, "sampling: [1, 2\n")

	_, err := loadConfig(path, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
