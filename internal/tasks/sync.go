package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/melon/internal/models"
	"github.com/desertthunder/melon/internal/services"
	"github.com/desertthunder/melon/internal/shared"
)

const (
	// PlaylistPrefix is prepended to the video title to name created playlists.
	PlaylistPrefix = "🍉 "
	// PlaylistDescription tags every created playlist.
	PlaylistDescription = "Created by melon"
)

// Credentials supplies access tokens to the synchronizer.
//
// [auth.Authenticator] satisfies it.
type Credentials interface {
	// ValidToken returns a usable access token or "".
	ValidToken(ctx context.Context) string
	// Logout forgets the stored credential.
	Logout(ctx context.Context) error
}

// Recorder persists finished sync runs.
type Recorder interface {
	Record(ctx context.Context, run *models.SyncRun) error
}

// SyncRequest is the input of one sync run.
type SyncRequest struct {
	Songs      []models.CandidateSong
	VideoTitle string
	SourceURL  string
	// DryRun stops after matching: no playlist is created and nothing is recorded.
	DryRun bool
}

// RequestFromExtraction builds a [SyncRequest] from an extraction response.
func RequestFromExtraction(e models.Extraction) SyncRequest {
	return SyncRequest{Songs: e.Songs, VideoTitle: e.VideoTitle, SourceURL: e.SourceURL}
}

// SynchronizerOptions configures a [Synchronizer].
type SynchronizerOptions struct {
	Credentials Credentials
	Catalogs    services.CatalogProvider
	Matcher     *Matcher
	Recorder    Recorder // optional
	Logger      *log.Logger
}

// Synchronizer turns candidate songs into a remote playlist.
type Synchronizer struct {
	creds    Credentials
	catalogs services.CatalogProvider
	matcher  *Matcher
	recorder Recorder
	logger   *log.Logger
}

// NewSynchronizer creates a [Synchronizer].
func NewSynchronizer(opts SynchronizerOptions) *Synchronizer {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	matcher := opts.Matcher
	if matcher == nil {
		matcher = NewMatcher(MatcherOptions{Logger: logger})
	}
	return &Synchronizer{
		creds:    opts.Credentials,
		catalogs: opts.Catalogs,
		matcher:  matcher,
		recorder: opts.Recorder,
		logger:   shared.WithLogger(logger, "component", "sync"),
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (s *Synchronizer) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Sync matches every song, creates the playlist and fills it.
//
// Failures never escape as errors: they are reported in [models.SyncResult.Error] alongside whatever
// matching data was gathered. Creation is retried once with a fresh token when the credential is rejected.
func (s *Synchronizer) Sync(ctx context.Context, req SyncRequest, progress chan<- ProgressUpdate) models.SyncResult {
	result := s.run(ctx, req, progress)

	if result.Failed() {
		s.logger.Error("sync failed", "title", req.VideoTitle, "error", result.Error)
		s.sendProgress(progress, failedUpdate(result))
	} else {
		s.logger.Info("sync finished", "title", req.VideoTitle, "matched", result.MatchedCount, "playlist", result.PlaylistURL)
		s.sendProgress(progress, doneUpdate(result))
	}

	if !req.DryRun {
		s.record(ctx, req, result)
	}
	return result
}

func (s *Synchronizer) run(ctx context.Context, req SyncRequest, progress chan<- ProgressUpdate) models.SyncResult {
	result := models.SyncResult{Matched: []models.MatchedSong{}}
	if len(req.Songs) == 0 {
		return result
	}

	s.sendProgress(progress, authenticatingUpdate())
	token := s.creds.ValidToken(ctx)
	if token == "" {
		result.Error = shared.ErrNotAuthenticated.Error()
		return result
	}

	catalog := s.catalogs.ForToken(token)
	total := len(req.Songs)

	s.sendProgress(progress, matchingUpdate(0, total, nil))
	result.Matched = s.matcher.MatchAll(ctx, catalog, req.Songs, func(i int, song models.CandidateSong) {
		s.sendProgress(progress, matchingUpdate(i+1, total, &song))
	})

	uris := make([]string, 0, total)
	for _, m := range result.Matched {
		if m.Matched() {
			uris = append(uris, m.RemoteTrackID)
		}
	}
	result.MatchedCount = len(uris)
	if len(uris) == 0 || req.DryRun {
		return result
	}

	name := PlaylistPrefix + req.VideoTitle
	s.sendProgress(progress, creatingPlaylistUpdate(1, 2, name))

	pl, err := catalog.CreatePlaylist(ctx, name, PlaylistDescription)
	if err != nil && services.IsUnauthorized(err) {
		s.logger.Warn("credential rejected, retrying once", "error", err)
		if clearErr := s.creds.Logout(ctx); clearErr != nil {
			s.logger.Warn("failed to clear credential", "error", clearErr)
		}

		token = s.creds.ValidToken(ctx)
		if token == "" {
			result.Error = fmt.Errorf("%w: %w", shared.ErrFailedToCreatePlaylist, shared.ErrNotAuthenticated).Error()
			return result
		}

		catalog = s.catalogs.ForToken(token)
		s.sendProgress(progress, creatingPlaylistUpdate(2, 2, name))
		pl, err = catalog.CreatePlaylist(ctx, name, PlaylistDescription)
	}
	if err != nil {
		result.Error = fmt.Errorf("%w: %v", shared.ErrFailedToCreatePlaylist, err).Error()
		return result
	}

	result.PlaylistURL = pl.URL
	s.sendProgress(progress, addingTracksUpdate(pl, len(uris)))

	if err := catalog.AddTracks(ctx, pl.ID, uris); err != nil {
		result.Error = fmt.Errorf("%w: %v", shared.ErrFailedToAddTracks, err).Error()
		return result
	}
	return result
}

// record stores the run when a recorder is configured. Failures are logged only.
func (s *Synchronizer) record(ctx context.Context, req SyncRequest, result models.SyncResult) {
	if s.recorder == nil {
		return
	}

	run := &models.SyncRun{
		VideoTitle:     req.VideoTitle,
		SourceURL:      req.SourceURL,
		CandidateCount: len(req.Songs),
		MatchedCount:   result.MatchedCount,
		PlaylistURL:    result.PlaylistURL,
		Error:          result.Error,
		Matched:        result.Matched,
	}
	if err := s.recorder.Record(ctx, run); err != nil {
		s.logger.Warn("failed to record sync run", "error", err)
	}
}
