package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileConfig is the config file ($XDG_CONFIG_HOME/gpt2/config.yaml).
// Pointer fields distinguish "not set" from zero values.
type fileConfig struct {
	ModelsDir     string         `yaml:"models_dir"`
	Model         string         `yaml:"model"`
	ExportDir     string         `yaml:"export_dir"`
	LogLevel      string         `yaml:"log_level"`
	LogFormat     string         `yaml:"log_format"`
	ServerAddress string         `yaml:"server_address"`
	Sampling      samplingConfig `yaml:"sampling"`
}

type samplingConfig struct {
	Temperature *float64 `yaml:"temperature"`
	TopK        *int     `yaml:"top_k"`
	TopP        *float64 `yaml:"top_p"`
	Length      *int     `yaml:"length"`
	Seed        *int64   `yaml:"seed"`
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "gpt2", "config.yaml")
}

// loadConfig reads the config file. A missing file yields a zero config
// unless the path was given explicitly.
func loadConfig(path string, explicit bool) (fileConfig, error) {
	if path == "" {
		return fileConfig{}, nil
	}
	//nolint:gosec // G304: config path is chosen by the user
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return fileConfig{}, nil
	}
	if err != nil {
		return fileConfig{}, fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
