// Package main provides the gpt2 command: sampling, export, frozen-graph
// runs, model download and an HTTP server.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

const version = "v0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newApp(os.Stdin, os.Stdout).Run(ctx, os.Args)
	stop()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp(stdin io.Reader, stdout io.Writer) *cli.Command {
	g := &globalOptions{}
	return &cli.Command{
		Name:    "gpt2",
		Usage:   "Sample, export and serve GPT-2 models",
		Version: version,
		Writer:  stdout,
		Flags:   g.flags(),
		Before:  g.before,
		Action: func(_ context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			sampleCmd(g, stdin, stdout),
			exportCmd(g, stdout),
			runCmd(g, stdout),
			downloadCmd(g),
			serveCmd(g),
		},
	}
}
