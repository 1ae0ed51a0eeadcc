package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/melon/internal/shared"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

const (
	// MaxTracksPerRequest is the Web API limit for one add-tracks call.
	MaxTracksPerRequest = 100

	spotifyBaseURL    = "https://api.spotify.com/v1/"
	playlistURLPrefix = "https://open.spotify.com/playlist/"
	trackURIPrefix    = "spotify:track:"
)

// Spotify builds token-bound Web API clients.
type Spotify struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

// NewSpotify creates a [Spotify]. An empty baseURL means the public Web API.
func NewSpotify(baseURL string, httpClient *http.Client, logger *log.Logger) *Spotify {
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Spotify{baseURL: baseURL, httpClient: httpClient, logger: shared.WithLogger(logger, "component", "spotify")}
}

// ForToken returns a [Catalog] that authenticates every request with token.
func (s *Spotify) ForToken(token string) Catalog {
	base := s.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	checked := &http.Client{Transport: &authStatusTransport{base: base}, Timeout: s.httpClient.Timeout}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, checked)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
	client.Timeout = s.httpClient.Timeout

	return &SpotifyCatalog{
		client: spotify.New(client, spotify.WithBaseURL(s.baseURL)),
		logger: s.logger,
	}
}

// SpotifyCatalog is a [Catalog] on the Spotify Web API.
type SpotifyCatalog struct {
	client *spotify.Client
	logger *log.Logger
	userID string
}

// SearchTrack asks for a single track and returns its URI.
func (c *SpotifyCatalog) SearchTrack(ctx context.Context, query string) (string, error) {
	res, err := c.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(1))
	if err != nil {
		return "", classify(err)
	}
	if res.Tracks == nil || len(res.Tracks.Tracks) == 0 {
		return "", nil
	}
	return string(res.Tracks.Tracks[0].URI), nil
}

// CreatePlaylist creates a private, non-collaborative playlist for the current user.
//
// The URL falls back to the open.spotify.com address when the response has no external URL.
func (c *SpotifyCatalog) CreatePlaylist(ctx context.Context, name, description string) (*Playlist, error) {
	if c.userID == "" {
		user, err := c.client.CurrentUser(ctx)
		if err != nil {
			return nil, classify(err)
		}
		c.userID = user.ID
	}

	pl, err := c.client.CreatePlaylistForUser(ctx, c.userID, name, description, false, false)
	if err != nil {
		return nil, classify(err)
	}

	url := pl.ExternalURLs["spotify"]
	if url == "" {
		url = playlistURLPrefix + string(pl.ID)
	}
	c.logger.Debug("playlist created", "id", pl.ID)
	return &Playlist{ID: string(pl.ID), URL: url}, nil
}

// AddTracks adds uris in order, at most [MaxTracksPerRequest] per request.
func (c *SpotifyCatalog) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	for start := 0; start < len(uris); start += MaxTracksPerRequest {
		end := min(start+MaxTracksPerRequest, len(uris))

		ids := make([]spotify.ID, 0, end-start)
		for _, uri := range uris[start:end] {
			ids = append(ids, spotify.ID(strings.TrimPrefix(uri, trackURIPrefix)))
		}

		if _, err := c.client.AddTracksToPlaylist(ctx, spotify.ID(playlistID), ids...); err != nil {
			return classify(err)
		}
		c.logger.Debug("tracks added", "playlist", playlistID, "count", len(ids))
	}
	return nil
}

// StatusError is a Web API response rejected with 401 or 403, whatever its body holds.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, http.StatusText(e.Code))
}

// authStatusTransport turns 401/403 responses into a [StatusError] before the client library reads the body.
//
// Rejections may come with a plain-text or empty body.
type authStatusTransport struct {
	base http.RoundTripper
}

func (t *authStatusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode}
	}
	return resp, nil
}

// IsUnauthorized reports whether err is a 401/403 from the Web API.
func IsUnauthorized(err error) bool {
	if errors.Is(err, shared.ErrUnauthorized) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return true
	}
	var se spotify.Error
	if errors.As(err, &se) {
		return se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden
	}
	return false
}

func classify(err error) error {
	if IsUnauthorized(err) {
		return fmt.Errorf("%w: %w", shared.ErrUnauthorized, err)
	}
	return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
}
