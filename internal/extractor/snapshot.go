package extractor

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/desertthunder/melon/internal/models"
	"github.com/desertthunder/melon/internal/shared"
)

// Locators tried per source, most specific first. They mirror the watch page markup.
var (
	descriptionLocators = []string{
		"#description-inner ytd-text-inline-expander #attributed-snippet-text",
		"#description-inner ytd-text-inline-expander",
		"#description ytd-text-inline-expander",
		"#description .content",
		"#description",
	}
	pinnedCommentLocators = []string{
		"ytd-comment-thread-renderer:has(#pinned-comment-badge) #content-text",
		"#pinned-comment-badge ~ #content-text",
	}
	chapterLocators = []string{
		"ytd-macro-markers-list-item-renderer",
		"ytd-chapter-renderer",
	}
	playlistLocators = []string{
		"ytd-playlist-panel-video-renderer #video-title",
		"ytd-playlist-video-renderer #video-title",
	}
	titleLocators = []string{
		"h1.ytd-watch-metadata yt-formatted-string",
		"h1.ytd-video-primary-info-renderer",
	}
)

// Snapshot is a captured watch page: the document title, its URL and the text of each region keyed by locator.
//
// Chapter regions hold one "<time>\t<title>" line per chapter; playlist regions one video title per line.
type Snapshot struct {
	PageURL       string            `json:"url"`
	DocumentTitle string            `json:"title"`
	Regions       map[string]string `json:"regions"`
}

// LoadSnapshot decodes a snapshot from r.
func LoadSnapshot(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: snapshot: %v", shared.ErrInvalidInput, err)
	}
	if snap.PageURL == "" {
		return nil, fmt.Errorf("%w: snapshot has no url", shared.ErrInvalidInput)
	}
	return &snap, nil
}

// LoadSnapshotFile reads and decodes the snapshot at path.
func LoadSnapshotFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	return LoadSnapshot(f)
}

// Title returns the heading text, falling back to the document title.
func (s *Snapshot) Title() string {
	for _, loc := range titleLocators {
		if text := strings.TrimSpace(s.Regions[loc]); text != "" {
			return text
		}
	}
	return strings.TrimSpace(s.DocumentTitle)
}

// URL returns the captured page address.
func (s *Snapshot) URL() string {
	return s.PageURL
}

// Lookups returns one lookup per known locator for src.
func (s *Snapshot) Lookups(src models.Source) []Lookup {
	var locators []string
	switch src {
	case models.SourceDescription:
		locators = descriptionLocators
	case models.SourcePinnedComment:
		locators = pinnedCommentLocators
	case models.SourceChapter:
		locators = chapterLocators
	case models.SourcePlaylist:
		locators = playlistLocators
	}

	lookups := make([]Lookup, 0, len(locators))
	for _, loc := range locators {
		lookups = append(lookups, s.region(loc))
	}
	return lookups
}

func (s *Snapshot) region(locator string) Lookup {
	text, ok := s.Regions[locator]
	if !ok {
		return StaticLookup(locator, nil)
	}
	return StaticLookup(locator, strings.Split(text, "\n"))
}
