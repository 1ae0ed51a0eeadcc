package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/melon/internal/models"
	"github.com/desertthunder/melon/internal/repositories"
	"github.com/desertthunder/melon/internal/shared"
	"github.com/urfave/cli/v3"
)

// History lists recorded sync runs, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.syncRuns()
	if err != nil {
		return err
	}

	runs, err := repo.List(ctx, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(runs, true)
	}
	return r.writePlain("%s", r.palette.RenderHistory(runs))
}

// HistoryShow prints one recorded run with its matched songs.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	id, err := runID(cmd)
	if err != nil {
		return err
	}

	repo, err := r.syncRuns()
	if err != nil {
		return err
	}

	run, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(run, true)
	}

	r.writePlain("%s\n", r.palette.Title.Render(fmt.Sprintf("#%d %s", run.Seq, run.VideoTitle)))
	if run.SourceURL != "" {
		r.writePlain("%s\n", run.SourceURL)
	}
	return r.writePlain("%s", r.palette.RenderSyncResult(models.SyncResult{
		Matched:      run.Matched,
		MatchedCount: run.MatchedCount,
		PlaylistURL:  run.PlaylistURL,
		Error:        run.Error,
	}))
}

// HistoryDelete removes one recorded run.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := runID(cmd)
	if err != nil {
		return err
	}

	repo, err := r.syncRuns()
	if err != nil {
		return err
	}

	if err := repo.Delete(ctx, id); err != nil {
		return err
	}

	r.logger.Info("sync run deleted", "id", id)
	return r.writePlain("✓ Deleted %s\n", id)
}

func (r *Runner) syncRuns() (*repositories.SyncRunRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewSyncRunRepository(db), nil
}

func runID(cmd *cli.Command) (string, error) {
	id := cmd.Args().First()
	if id == "" {
		return "", fmt.Errorf("%w: sync run ID", shared.ErrMissingArgument)
	}
	return id, nil
}
