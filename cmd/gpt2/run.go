package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/born-ml/gpt2/internal/export"
	"github.com/born-ml/gpt2/internal/logger"
	"github.com/born-ml/gpt2/internal/modeldir"
	"github.com/born-ml/gpt2/internal/serialization"
	"github.com/born-ml/gpt2/internal/tokenizer"
)

var errNoInput = errors.New("one of --prompt or --tokens is required")

type runOptions struct {
	prompt string
	tokens string
	noMmap bool
}

func runCmd(g *globalOptions, stdout io.Writer) *cli.Command {
	o := &runOptions{}
	return &cli.Command{
		Name:      "run",
		Usage:     "Run a frozen artifact once",
		ArgsUsage: "<artifact>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "prompt",
				Aliases:     []string{"p"},
				Usage:       "text to encode into input_context",
				Destination: &o.prompt,
			},
			&cli.StringFlag{
				Name:        "tokens",
				Usage:       "comma-separated token ids for input_context",
				Destination: &o.tokens,
			},
			&cli.BoolFlag{
				Name:        "no-mmap",
				Usage:       "read the artifact into memory instead of mapping it",
				Destination: &o.noMmap,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return cli.ShowSubcommandHelp(cmd)
			}
			return runArtifact(ctx, cmd.Args().First(), g.modelsDir, o, stdout)
		},
	}
}

func runArtifact(ctx context.Context, path, modelsDir string, o *runOptions, w io.Writer) error {
	log := logger.FromContext(ctx)

	log.Info().Str("path", path).Msg("loading graph")
	var opts []export.LoadOption
	if o.noMmap {
		opts = append(opts, export.WithoutMmap())
	}
	graph, err := export.Load(path, opts...)
	if err != nil {
		return err
	}
	log.Info().
		Str("model", graph.ModelName()).
		Str("export_id", graph.ExportID()).
		Strs("inputs", endpointNames(graph.Inputs())).
		Strs("outputs", endpointNames(graph.Outputs())).
		Msg("graph loaded")

	// The vocabulary is optional unless the input is text.
	tok, tokErr := tokenizer.LoadGPT2(modeldir.New(modelsDir, graph.ModelName()))

	var input []int32
	switch {
	case o.prompt != "":
		if tokErr != nil {
			return fmt.Errorf("load tokenizer: %w", tokErr)
		}
		input, err = tok.Encode(o.prompt)
	case o.tokens != "":
		input, err = parseTokens(o.tokens)
	default:
		return errNoInput
	}
	if err != nil {
		return err
	}

	out, err := graph.Run(ctx, [][]int32{input})
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s: %s\n", export.OutputEndpoint, formatTokens(out[0]))
	if tokErr != nil {
		log.Debug().Err(tokErr).Msg("no vocabulary, skipping decode")
		return nil
	}
	text, err := tok.Decode(out[0])
	if err != nil {
		return fmt.Errorf("decode output: %w", err)
	}
	_, err = fmt.Fprintln(w, text)
	return err
}

func parseTokens(s string) ([]int32, error) {
	fields := strings.Split(s, ",")
	ids := make([]int32, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseInt(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parse token %q: %w", f, err)
		}
		ids = append(ids, int32(v))
	}
	return ids, nil
}

func formatTokens(ids []int32) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(int64(id), 10)
	}
	return strings.Join(parts, " ")
}

func endpointNames(eps []serialization.Endpoint) []string {
	names := make([]string, len(eps))
	for i, ep := range eps {
		names[i] = ep.Name
	}
	return names
}
