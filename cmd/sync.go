package main

import (
	"context"
	"errors"

	"github.com/desertthunder/melon/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Sync extracts the tracklist, matches every song on Spotify and creates the playlist.
//
// A failed sync still prints its matching data before returning the error.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	ext, err := r.extract(ctx, cmd)
	if err != nil {
		return err
	}

	synchronizer, err := r.synchronizer()
	if err != nil {
		return err
	}

	asJSON := cmd.Bool("json")
	req := tasks.RequestFromExtraction(*ext)
	req.DryRun = cmd.Bool("dry-run")

	if len(req.Songs) == 0 {
		r.logger.Warn("no songs found, nothing to sync", "url", req.SourceURL)
	} else if !asJSON {
		r.writePlain("Syncing %d songs from %q...\n", len(req.Songs), req.VideoTitle)
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			// the result is printed once Sync returns
			if update.State.Terminal() {
				continue
			}
			if asJSON {
				r.logger.Debug(update.Message, "state", update.State)
				continue
			}
			switch update.State {
			case tasks.Matching:
				if update.Step == 0 {
					r.writePlain("\n🔍 %s\n", update.Message)
				} else {
					r.writePlain("   %s\n", update.Message)
				}
			case tasks.CreatingPlaylist, tasks.AddingTracks:
				r.writePlain("\n📝 %s\n", update.Message)
			}
		}
	}()

	result := synchronizer.Sync(ctx, req, progressCh)
	close(progressCh)
	<-done

	if asJSON {
		if err := r.writeJSON(result, true); err != nil {
			return err
		}
	} else {
		r.writePlain("\n%s", r.palette.RenderSyncResult(result))
	}

	if result.Failed() {
		return errors.New(result.Error)
	}
	if req.DryRun && !asJSON {
		return r.writePlain("Dry run: no playlist created (%d/%d matched)\n", result.MatchedCount, len(result.Matched))
	}
	return nil
}
