package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/melon/internal/extractor"
	"github.com/desertthunder/melon/internal/models"
	"github.com/desertthunder/melon/internal/shared"
	"google.golang.org/api/googleapi/transport"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	commentPageSize  = 20
	playlistPageSize = 50
	// maxPlaylistPages caps a listing at 500 entries.
	maxPlaylistPages = 10
)

var videoIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// YouTube reads video metadata from the YouTube Data API v3.
type YouTube struct {
	svc    *youtube.Service
	logger *log.Logger
}

// NewYouTube creates a Data API client keyed with apiKey. endpoint overrides the API root when non-empty.
func NewYouTube(ctx context.Context, apiKey, endpoint string, httpClient *http.Client, logger *log.Logger) (*YouTube, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: youtube api key", shared.ErrMissingCredentials)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	keyed := &http.Client{
		Timeout:   httpClient.Timeout,
		Transport: &transport.APIKey{Key: apiKey, Transport: httpClient.Transport},
	}
	opts := []option.ClientOption{option.WithHTTPClient(keyed)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube client: %w", err)
	}
	return &YouTube{svc: svc, logger: shared.WithLogger(logger, "component", "youtube")}, nil
}

// Document fetches the video snippet for rawURL and returns a document over it.
//
// rawURL may be a watch, youtu.be, shorts or live URL, or a bare video ID. A "list" parameter enables the
// playlist source.
func (y *YouTube) Document(ctx context.Context, rawURL string) (*YouTubeDocument, error) {
	videoID, playlistID, err := ParseVideoURL(rawURL)
	if err != nil {
		return nil, err
	}

	resp, err := y.svc.Videos.List([]string{"snippet"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: videos.list: %w", shared.ErrAPIRequest, err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrVideoNotFound, videoID)
	}

	doc := &YouTubeDocument{
		svc:        y.svc,
		logger:     y.logger,
		videoID:    videoID,
		playlistID: playlistID,
		url:        rawURL,
		snippet:    resp.Items[0].Snippet,
	}
	if !strings.Contains(rawURL, "://") {
		doc.url = "https://www.youtube.com/watch?v=" + videoID
	}
	return doc, nil
}

// YouTubeDocument is an extractor.Document over Data API responses.
type YouTubeDocument struct {
	svc        *youtube.Service
	logger     *log.Logger
	videoID    string
	playlistID string
	url        string
	snippet    *youtube.VideoSnippet
}

// Title prefers the localized title.
func (d *YouTubeDocument) Title() string {
	if d.snippet.Localized != nil && d.snippet.Localized.Title != "" {
		return d.snippet.Localized.Title
	}
	return d.snippet.Title
}

func (d *YouTubeDocument) URL() string {
	return d.url
}

// Lookups lists the Data API strategies for src. Chapters have none.
func (d *YouTubeDocument) Lookups(src models.Source) []extractor.Lookup {
	switch src {
	case models.SourceDescription:
		var lookups []extractor.Lookup
		if d.snippet.Localized != nil {
			lookups = append(lookups, extractor.StaticLookup("localized description", splitLines(d.snippet.Localized.Description)))
		}
		return append(lookups, extractor.StaticLookup("description", splitLines(d.snippet.Description)))
	case models.SourcePinnedComment:
		return []extractor.Lookup{
			{Name: "uploader comment by relevance", Fetch: d.uploaderComment("relevance")},
			{Name: "uploader comment by time", Fetch: d.uploaderComment("time")},
		}
	case models.SourcePlaylist:
		if d.playlistID == "" {
			return nil
		}
		return []extractor.Lookup{{Name: "playlist items", Fetch: d.playlistTitles}}
	default:
		return nil
	}
}

// uploaderComment returns the first top-level comment written by the video's own channel.
//
// The Data API does not flag pinned comments; an uploader comment near the top is the closest signal.
func (d *YouTubeDocument) uploaderComment(order string) func(context.Context) ([]string, error) {
	return func(ctx context.Context) ([]string, error) {
		resp, err := d.svc.CommentThreads.List([]string{"snippet"}).
			VideoId(d.videoID).
			Order(order).
			TextFormat("plainText").
			MaxResults(commentPageSize).
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("%w: commentThreads.list: %w", shared.ErrAPIRequest, err)
		}

		for _, thread := range resp.Items {
			if thread.Snippet == nil || thread.Snippet.TopLevelComment == nil || thread.Snippet.TopLevelComment.Snippet == nil {
				continue
			}
			c := thread.Snippet.TopLevelComment.Snippet
			if c.AuthorChannelId == nil || c.AuthorChannelId.Value != d.snippet.ChannelId {
				continue
			}

			text := c.TextOriginal
			if text == "" {
				text = c.TextDisplay
			}
			return splitLines(text), nil
		}
		return nil, nil
	}
}

// playlistTitles pages through the playlist and returns every available video title.
func (d *YouTubeDocument) playlistTitles(ctx context.Context) ([]string, error) {
	var titles []string
	pageToken := ""

	for page := 0; page < maxPlaylistPages; page++ {
		call := d.svc.PlaylistItems.List([]string{"snippet"}).
			PlaylistId(d.playlistID).
			MaxResults(playlistPageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return titles, fmt.Errorf("%w: playlistItems.list: %w", shared.ErrAPIRequest, err)
		}

		for _, item := range resp.Items {
			if item.Snippet == nil {
				continue
			}
			switch item.Snippet.Title {
			case "", "Deleted video", "Private video":
				continue
			}
			titles = append(titles, item.Snippet.Title)
		}

		if resp.NextPageToken == "" {
			return titles, nil
		}
		pageToken = resp.NextPageToken
	}

	d.logger.Warn("playlist truncated", "playlist", d.playlistID, "entries", len(titles))
	return titles, nil
}

// ParseVideoURL extracts the video ID and optional playlist ID.
func ParseVideoURL(raw string) (videoID, playlistID string, err error) {
	raw = strings.TrimSpace(raw)
	if videoIDRegex.MatchString(raw) {
		return raw, "", nil
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", "", fmt.Errorf("%w: not a YouTube URL: %q", shared.ErrInvalidArgument, raw)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	switch {
	case host == "youtu.be":
		videoID = segments[0]
	case host == "youtube.com" || host == "music.youtube.com":
		switch segments[0] {
		case "watch":
			videoID = u.Query().Get("v")
		case "shorts", "live", "embed":
			if len(segments) > 1 {
				videoID = segments[1]
			}
		}
	default:
		return "", "", fmt.Errorf("%w: not a YouTube URL: %q", shared.ErrInvalidArgument, raw)
	}

	if !videoIDRegex.MatchString(videoID) {
		return "", "", fmt.Errorf("%w: no video ID in %q", shared.ErrInvalidArgument, raw)
	}
	return videoID, u.Query().Get("list"), nil
}

func splitLines(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
