package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/born-ml/gpt2/internal/generate"
	"github.com/born-ml/gpt2/internal/logger"
	"github.com/born-ml/gpt2/internal/modeldir"
)

// globalOptions holds the flags shared by every subcommand.
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	modelsDir  string
	model      string

	cfg fileConfig
}

func (g *globalOptions) flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml",
			Value:       defaultConfigPath(),
			Destination: &g.configPath,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &g.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (console, json)",
			Value:       "console",
			Destination: &g.logFormat,
		},
		&cli.StringFlag{
			Name:        "models-dir",
			Usage:       "directory holding one subdirectory per model",
			Value:       "models",
			Destination: &g.modelsDir,
		},
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "model name (124M, 355M, 774M, 1558M)",
			Value:       "124M",
			Destination: &g.model,
		},
	}
}

// before loads the config file and installs the logger.
func (g *globalOptions) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := loadConfig(g.configPath, cmd.IsSet("config"))
	if err != nil {
		return ctx, err
	}
	g.cfg = cfg
	g.applyConfig(cmd)

	l := logger.Setup(g.logLevel, g.logFormat)
	return logger.WithContext(ctx, l), nil
}

func (g *globalOptions) applyConfig(cmd *cli.Command) {
	if g.cfg.ModelsDir != "" && !cmd.IsSet("models-dir") {
		g.modelsDir = g.cfg.ModelsDir
	}
	if g.cfg.Model != "" && !cmd.IsSet("model") {
		g.model = g.cfg.Model
	}
	if g.cfg.LogLevel != "" && !cmd.IsSet("log-level") {
		g.logLevel = g.cfg.LogLevel
	}
	if g.cfg.LogFormat != "" && !cmd.IsSet("log-format") {
		g.logFormat = g.cfg.LogFormat
	}
}

func (g *globalOptions) dir() modeldir.Dir {
	return modeldir.New(g.modelsDir, g.model)
}

// samplingOptions backs the sampling flags of one subcommand.
type samplingOptions struct {
	length      int
	temperature float64
	topK        int
	topP        float64
	seed        int64
}

func samplingFlags(o *samplingOptions, defaultLength int, lengthUsage string) []cli.Flag {
	def := generate.DefaultSamplingConfig()
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "length",
			Usage:       lengthUsage,
			Value:       defaultLength,
			Destination: &o.length,
		},
		&cli.FloatFlag{
			Name:        "temperature",
			Aliases:     []string{"t"},
			Usage:       "divide logits by this value before sampling",
			Value:       def.Temperature,
			Destination: &o.temperature,
		},
		&cli.IntFlag{
			Name:        "top-k",
			Usage:       "keep only the k most likely tokens (0 = off)",
			Value:       def.TopK,
			Destination: &o.topK,
		},
		&cli.FloatFlag{
			Name:        "top-p",
			Usage:       "nucleus sampling threshold (1 = off)",
			Value:       def.TopP,
			Destination: &o.topP,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "random seed (negative = random)",
			Value:       def.Seed,
			Destination: &o.seed,
		},
	}
}

// applyConfig fills values from the config file for flags not given on the
// command line.
func (o *samplingOptions) applyConfig(cmd *cli.Command, cfg samplingConfig) {
	if cfg.Length != nil && !cmd.IsSet("length") {
		o.length = *cfg.Length
	}
	if cfg.Temperature != nil && !cmd.IsSet("temperature") {
		o.temperature = *cfg.Temperature
	}
	if cfg.TopK != nil && !cmd.IsSet("top-k") {
		o.topK = *cfg.TopK
	}
	if cfg.TopP != nil && !cmd.IsSet("top-p") {
		o.topP = *cfg.TopP
	}
	if cfg.Seed != nil && !cmd.IsSet("seed") {
		o.seed = *cfg.Seed
	}
}

func (o samplingOptions) sampling() generate.SamplingConfig {
	return generate.SamplingConfig{
		Temperature: o.temperature,
		TopK:        o.topK,
		TopP:        o.topP,
		Seed:        o.seed,
	}
}
