package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/born-ml/gpt2/internal/generate"
	"github.com/born-ml/gpt2/internal/logger"
)

var (
	sampleSeparator = strings.Repeat("=", 40)
	roundSeparator  = strings.Repeat("=", 80)
)

const promptMarker = "Model prompt >>> "

type sampleOptions struct {
	sampling       samplingOptions
	nsamples       int
	batchSize      int
	prompt         string
	includeContext bool
	interactive    bool
}

func (o *sampleOptions) config() generate.GenerateConfig {
	return generate.GenerateConfig{
		Length:         o.sampling.length,
		NSamples:       o.nsamples,
		BatchSize:      o.batchSize,
		IncludeContext: o.includeContext,
		Sampling:       o.sampling.sampling(),
	}
}

// generator is satisfied by *generate.TextGenerator.
type generator interface {
	Generate(ctx context.Context, prompt string, cfg generate.GenerateConfig) ([]generate.Sample, error)
}

func sampleCmd(g *globalOptions, stdin io.Reader, stdout io.Writer) *cli.Command {
	o := &sampleOptions{}
	flags := samplingFlags(&o.sampling, 0, "tokens per sample (0 = half the model context)")
	flags = append(flags,
		&cli.IntFlag{
			Name:        "nsamples",
			Aliases:     []string{"n"},
			Usage:       "number of samples per prompt",
			Value:       1,
			Destination: &o.nsamples,
		},
		&cli.IntFlag{
			Name:        "batch-size",
			Usage:       "samples decoded together",
			Value:       1,
			Destination: &o.batchSize,
		},
		&cli.StringFlag{
			Name:        "prompt",
			Aliases:     []string{"p"},
			Usage:       "condition samples on this text (empty = unconditional)",
			Destination: &o.prompt,
		},
		&cli.BoolFlag{
			Name:        "include-context",
			Usage:       "print the prompt in front of each sample",
			Destination: &o.includeContext,
		},
		&cli.BoolFlag{
			Name:        "interactive",
			Aliases:     []string{"i"},
			Usage:       "read prompts from stdin until EOF",
			Destination: &o.interactive,
		},
	)

	return &cli.Command{
		Name:  "sample",
		Usage: "Generate text samples",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			o.sampling.applyConfig(cmd, g.cfg.Sampling)

			gen, _, err := loadGenerator(ctx, g.dir())
			if err != nil {
				return err
			}
			if o.interactive {
				return interactiveSamples(ctx, gen, o.config(), stdin, stdout)
			}
			return writeSamples(ctx, gen, o.prompt, o.config(), stdout)
		},
	}
}

// writeSamples generates one round of samples for prompt and prints them.
func writeSamples(ctx context.Context, gen generator, prompt string, cfg generate.GenerateConfig, w io.Writer) error {
	logger.FromContext(ctx).Debug().
		Int("nsamples", cfg.NSamples).
		Int("batch_size", cfg.BatchSize).
		Bool("conditional", prompt != "").
		Msg("sampling")

	samples, err := gen.Generate(ctx, prompt, cfg)
	if err != nil {
		return err
	}
	return printSamples(w, samples)
}

func printSamples(w io.Writer, samples []generate.Sample) error {
	bw := bufio.NewWriter(w)
	for _, s := range samples {
		fmt.Fprintf(bw, "%s SAMPLE %d %s\n", sampleSeparator, s.Index+1, sampleSeparator)
		fmt.Fprintln(bw, s.Text)
	}
	fmt.Fprintln(bw, roundSeparator)
	return bw.Flush()
}

// interactiveSamples reads one prompt per line until EOF. Empty prompts are
// asked for again.
func interactiveSamples(ctx context.Context, gen generator, cfg generate.GenerateConfig, r io.Reader, w io.Writer) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for {
		if _, err := io.WriteString(w, promptMarker); err != nil {
			return err
		}
		if !sc.Scan() {
			_, _ = io.WriteString(w, "\n")
			if err := sc.Err(); err != nil {
				return fmt.Errorf("read prompt: %w", err)
			}
			return nil
		}

		prompt := strings.TrimSpace(sc.Text())
		if prompt == "" {
			if _, err := io.WriteString(w, "Prompt should not be empty!\n"); err != nil {
				return err
			}
			continue
		}

		err := writeSamples(ctx, gen, prompt, cfg, w)
		switch {
		case errors.Is(err, context.Canceled):
			return nil
		case errors.Is(err, generate.ErrLengthTooLong):
			fmt.Fprintf(w, "Prompt is too long: %v\n", err)
			continue
		case err != nil:
			return err
		}
	}
}
