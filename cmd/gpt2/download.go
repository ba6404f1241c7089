package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/born-ml/gpt2/internal/modeldir"
)

func downloadCmd(g *globalOptions) *cli.Command {
	var force bool
	return &cli.Command{
		Name:      "download",
		Usage:     "Download model checkpoints and vocabularies",
		ArgsUsage: "[model...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "force",
				Usage:       "re-download files that already exist",
				Destination: &force,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			models := cmd.Args().Slice()
			if len(models) == 0 {
				models = []string{g.model}
			}

			dl := modeldir.NewDownloader()
			dl.Force = force
			for _, m := range models {
				if err := dl.Download(ctx, modeldir.New(g.modelsDir, m)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
