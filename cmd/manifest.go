package main

import (
	"context"

	"github.com/desertthunder/spotomi/internal/tools"
	"github.com/urfave/cli/v3"
)

func manifestCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "manifest",
		Usage: "Print the chat tools manifest served at /.well-known/omi-tools.json",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "compact",
				Usage: "Emit compact JSON",
			},
		},
		Action: r.Manifest,
	}
}

// Manifest prints the tool definitions the assistant platform consumes.
func (r *Runner) Manifest(ctx context.Context, cmd *cli.Command) error {
	return r.writeJSON(tools.DefaultManifest(), !cmd.Bool("compact"))
}
