package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/melon/internal/auth"
	"github.com/desertthunder/melon/internal/extractor"
	"github.com/desertthunder/melon/internal/formatter"
	"github.com/desertthunder/melon/internal/models"
	"github.com/desertthunder/melon/internal/repositories"
	"github.com/desertthunder/melon/internal/server"
	"github.com/desertthunder/melon/internal/services"
	"github.com/desertthunder/melon/internal/shared"
	"github.com/desertthunder/melon/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	palette    *formatter.Palette
	consent    auth.Consent
	db         *sql.DB
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	// Config skips loading the config file when set.
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	// Consent replaces the loopback browser flow of `auth login`.
	Consent auth.Consent
	// DB replaces the configured database.
	DB *sql.DB
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		palette:    formatter.DefaultPalette,
		consent:    opts.Consent,
		db:         opts.DB,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, extractCommand, syncCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before applies the global flags: log level and config location. The config itself is loaded lazily.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	switch {
	case cmd.Bool("verbose"):
		shared.SetLogLevel(r.logger, log.DebugLevel)
	case cmd.Bool("quiet"):
		shared.SetLogLevel(r.logger, log.ErrorLevel)
	}

	if r.configPath == "" {
		r.configPath = shared.ConfigPath(cmd.String("config"))
	}
	return ctx, nil
}

// Close releases the database handle, if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// loadConfig returns the runner's config, reading it from disk on first use.
//
// A missing file falls back to the defaults with a warning.
func (r *Runner) loadConfig() *shared.Config {
	if r.config != nil {
		return r.config
	}

	path := r.configPath
	if path == "" {
		path = shared.ConfigPath("")
	}

	config, err := shared.LoadConfig(path)
	switch {
	case errors.Is(err, shared.ErrMissingConfig):
		r.logger.Warn("config file not found, using defaults (run `melon setup`)", "path", path)
		config = shared.DefaultConfig()
	case err != nil:
		r.logger.Warn("failed to load config, using defaults", "path", path, "error", err)
		config = shared.DefaultConfig()
	}

	r.config = config
	return config
}

func (r *Runner) client() *http.Client {
	if r.httpClient == nil {
		r.httpClient = &http.Client{Timeout: r.loadConfig().HTTP.Timeout()}
	}
	return r.httpClient
}

// database opens the configured database and applies pending migrations on first use.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.OpenDatabase(r.loadConfig().Database)
	if err != nil {
		return nil, err
	}
	r.db = db
	return db, nil
}

// authenticator builds the PKCE authenticator backed by the credential repository.
func (r *Runner) authenticator() (*auth.Authenticator, error) {
	config := r.loadConfig()
	if err := config.ValidateSpotify(); err != nil {
		return nil, err
	}

	db, err := r.database()
	if err != nil {
		return nil, err
	}

	consent := r.consent
	if consent == nil {
		consent = &server.LoopbackConsent{
			RedirectURI: config.Credentials.Spotify.RedirectURI,
			Prompt:      r.output,
			Logger:      r.logger,
		}
	}

	return auth.NewAuthenticator(auth.Options{
		ClientID:    config.Credentials.Spotify.ClientID,
		RedirectURI: config.Credentials.Spotify.RedirectURI,
		Scopes:      config.Credentials.Spotify.Scopes,
		AuthURL:     config.Spotify.AuthURL,
		TokenURL:    config.Spotify.TokenURL,
		Store:       repositories.NewCredentialRepository(db),
		Consent:     consent,
		HTTPClient:  r.client(),
		Logger:      r.logger,
	}), nil
}

// synchronizer wires the authenticator, the Web API client, the matcher and the history recorder.
func (r *Runner) synchronizer() (*tasks.Synchronizer, error) {
	authenticator, err := r.authenticator()
	if err != nil {
		return nil, err
	}

	config := r.loadConfig()
	return tasks.NewSynchronizer(tasks.SynchronizerOptions{
		Credentials: authenticator,
		Catalogs:    services.NewSpotify(config.Spotify.APIURL, r.client(), r.logger),
		Matcher: tasks.NewMatcher(tasks.MatcherOptions{
			CacheSize:  config.Spotify.SearchCacheSize,
			SearchRate: config.Spotify.SearchRate,
			Logger:     r.logger,
		}),
		Recorder: repositories.NewSyncRunRepository(r.db),
		Logger:   r.logger,
	}), nil
}

// document resolves the page to extract from: a snapshot file or a video fetched from the Data API.
func (r *Runner) document(ctx context.Context, cmd *cli.Command) (extractor.Document, error) {
	snapshot, video := cmd.String("snapshot"), cmd.String("video")

	switch {
	case snapshot == "" && video == "":
		return nil, fmt.Errorf("%w: either --snapshot or --video must be provided", shared.ErrMissingArgument)
	case snapshot != "" && video != "":
		return nil, fmt.Errorf("%w: cannot specify both --snapshot and --video", shared.ErrInvalidArgument)
	case snapshot != "":
		r.logger.Debug("loading snapshot", "path", snapshot)
		return extractor.LoadSnapshotFile(snapshot)
	}

	config := r.loadConfig()
	if err := config.ValidateYouTube(); err != nil {
		return nil, err
	}

	yt, err := services.NewYouTube(ctx, config.Credentials.YouTube.APIKey, config.YouTube.APIURL, r.client(), r.logger)
	if err != nil {
		return nil, err
	}
	return yt.Document(ctx, video)
}

// extract runs the extractor over the document selected by the command's flags.
func (r *Runner) extract(ctx context.Context, cmd *cli.Command) (*models.Extraction, error) {
	doc, err := r.document(ctx, cmd)
	if err != nil {
		return nil, err
	}

	ext := extractor.New(r.logger).Extract(ctx, doc)
	r.logger.Info("extraction complete", "title", ext.VideoTitle, "songs", len(ext.Songs))
	return &ext, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
