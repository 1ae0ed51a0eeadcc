package main

import (
	"context"

	"github.com/desertthunder/melon/internal/formatter"
	"github.com/urfave/cli/v3"
)

const defaultExportFormat = formatter.FormatText

// Extract prints the tracklist found on the selected page, or writes it to --output.
func (r *Runner) Extract(ctx context.Context, cmd *cli.Command) error {
	ext, err := r.extract(ctx, cmd)
	if err != nil {
		return err
	}

	if output := cmd.String("output"); output != "" {
		format, err := formatter.ParseFormat(cmd.String("format"))
		if err != nil {
			return err
		}

		path, err := formatter.WriteExport(ext, format, output)
		if err != nil {
			return err
		}
		r.logger.Info("tracklist exported", "path", path, "format", format)
		return r.writePlain("✓ %d songs written to %s\n", len(ext.Songs), path)
	}

	if cmd.Bool("json") {
		return r.writeJSON(ext, cmd.Bool("pretty"))
	}

	return r.writePlain("%s", r.palette.RenderExtraction(ext))
}
