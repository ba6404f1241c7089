package main

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/born-ml/gpt2/internal/export"
	"github.com/born-ml/gpt2/internal/logger"
)

func exportCmd(g *globalOptions, stdout io.Writer) *cli.Command {
	var (
		sampling  samplingOptions
		exportDir string
	)
	flags := samplingFlags(&sampling, export.DefaultLength, "tokens produced by each run of the frozen graph")
	flags = append(flags, &cli.StringFlag{
		Name:        "export-dir",
		Aliases:     []string{"o"},
		Usage:       "directory the artifact is written to",
		Value:       export.DefaultExportDir,
		Destination: &exportDir,
	})

	return &cli.Command{
		Name:  "export",
		Usage: "Freeze a model and its sampling loop into one artifact",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			sampling.applyConfig(cmd, g.cfg.Sampling)
			if g.cfg.ExportDir != "" && !cmd.IsSet("export-dir") {
				exportDir = g.cfg.ExportDir
			}

			res, err := export.Freeze(ctx, export.Options{
				ModelName: g.model,
				ModelsDir: g.modelsDir,
				ExportDir: exportDir,
				Length:    sampling.length,
				Sampling:  sampling.sampling(),
			})
			if err != nil {
				return err
			}

			logger.FromContext(ctx).Debug().Str("export_id", res.ExportID).Msg("export finished")
			_, err = fmt.Fprintf(stdout, "%s (%d tensors, %d bytes)\n", res.Path, res.Tensors, res.Bytes)
			return err
		},
	}
}
