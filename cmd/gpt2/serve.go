package main

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"

	"github.com/born-ml/gpt2/internal/generate"
	"github.com/born-ml/gpt2/internal/logger"
	"github.com/born-ml/gpt2/internal/metrics"
	"github.com/born-ml/gpt2/internal/server"
)

const defaultAddress = "127.0.0.1:8080"

func serveCmd(g *globalOptions) *cli.Command {
	var (
		sampling   samplingOptions
		addr       string
		maxSamples int
	)
	flags := samplingFlags(&sampling, 0, "default tokens per sample (0 = half the model context)")
	flags = append(flags,
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "listen address",
			Value:       defaultAddress,
			Destination: &addr,
		},
		&cli.IntFlag{
			Name:        "max-samples",
			Usage:       "largest nsamples and batch_size accepted per request",
			Value:       server.DefaultMaxSamples,
			Destination: &maxSamples,
		},
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve generation over HTTP",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			sampling.applyConfig(cmd, g.cfg.Sampling)
			if g.cfg.ServerAddress != "" && !cmd.IsSet("addr") {
				addr = g.cfg.ServerAddress
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			m := metrics.New(reg)

			gen, model, err := loadGenerator(ctx, g.dir(), generate.WithObserver(m))
			if err != nil {
				return err
			}
			hp := model.HParams()
			m.ModelInfo.WithLabelValues(g.model, strconv.Itoa(hp.NLayer), strconv.Itoa(hp.NEmbd)).Set(1)

			defaults := generate.DefaultGenerateConfig()
			defaults.Length = sampling.length
			defaults.Sampling = sampling.sampling()
			if err := defaults.Sampling.Validate(); err != nil {
				return err
			}

			srv := server.New(server.Config{
				Model:      g.model,
				Generator:  gen,
				Metrics:    m,
				Defaults:   defaults,
				MaxSamples: maxSamples,
				Logger:     *logger.FromContext(ctx),
			})
			return srv.Start(ctx, addr)
		},
	}
}
