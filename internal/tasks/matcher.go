package tasks

import (
	"context"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/melon/internal/models"
	"github.com/desertthunder/melon/internal/services"
	"github.com/desertthunder/melon/internal/shared"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

var (
	bracketSpanRegex  = regexp.MustCompile(`\s*[(\[].+?[)\]]\s*`)
	bracketInnerRegex = regexp.MustCompile(`[(\[](.+?)[)\]]`)
)

// MatcherOptions configures a [Matcher].
type MatcherOptions struct {
	// CacheSize bounds the query cache. Zero or less disables it.
	CacheSize int
	// SearchRate is the number of search calls allowed per second. Zero or less disables pacing.
	SearchRate float64
	Logger     *log.Logger
}

// Matcher resolves candidate songs to remote track URIs through a fixed list of fallback queries.
type Matcher struct {
	cache   *lru.Cache[string, string]
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewMatcher creates a [Matcher].
func NewMatcher(opts MatcherOptions) *Matcher {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	m := &Matcher{logger: shared.WithLogger(logger, "component", "matcher")}

	if opts.CacheSize > 0 {
		if cache, err := lru.New[string, string](opts.CacheSize); err == nil {
			m.cache = cache
		}
	}
	if opts.SearchRate > 0 {
		m.limiter = rate.NewLimiter(rate.Limit(opts.SearchRate), 1)
	}
	return m
}

// Match runs the queries for song in order and returns the first hit's URI.
//
// "" means no query produced a result. Failed queries are logged and skipped.
func (m *Matcher) Match(ctx context.Context, searcher services.TrackSearcher, song models.CandidateSong) string {
	for _, q := range Queries(song.Title, song.Artist) {
		if m.cache != nil {
			if uri, ok := m.cache.Get(q); ok {
				m.logger.Debug("cache hit", "query", q)
				return uri
			}
		}

		if m.limiter != nil {
			if err := m.limiter.Wait(ctx); err != nil {
				m.logger.Warn("search skipped", "query", q, "error", err)
				continue
			}
		}

		uri, err := searcher.SearchTrack(ctx, q)
		if err != nil {
			m.logger.Warn("search failed", "query", q, "error", err)
			continue
		}
		if uri == "" {
			continue
		}

		if m.cache != nil {
			m.cache.Add(q, uri)
		}
		return uri
	}

	m.logger.Info("no match found", "title", song.Title, "artist", song.Artist)
	return ""
}

// MatchAll matches every song in order. The result always has one entry per input song.
func (m *Matcher) MatchAll(ctx context.Context, searcher services.TrackSearcher, songs []models.CandidateSong, onSong func(i int, song models.CandidateSong)) []models.MatchedSong {
	matched := make([]models.MatchedSong, 0, len(songs))
	for i, song := range songs {
		if onSong != nil {
			onSong(i, song)
		}

		ms := models.MatchedSong{CandidateSong: song, Confidence: models.ConfidenceUncertain}
		if uri := m.Match(ctx, searcher, song); uri != "" {
			ms.Confidence = models.ConfidenceMatched
			ms.RemoteTrackID = uri
		}
		matched = append(matched, ms)
	}
	return matched
}

// Queries lists the search queries tried for a title and artist, in order, without empty entries.
//
// With an artist: a field-filtered query, then a plain one. Without: the cleaned title, then the
// first bracketed span's content (often a romanised or translated title). The original title is always last.
func Queries(title, artist string) []string {
	title = strings.TrimSpace(title)
	artist = strings.TrimSpace(artist)
	clean := CleanTitle(title)

	var queries []string
	if artist != "" {
		queries = append(queries, "track:"+clean+" artist:"+artist, clean+" "+artist)
	} else {
		queries = append(queries, clean)
		if m := bracketInnerRegex.FindStringSubmatch(title); m != nil {
			queries = append(queries, strings.TrimSpace(m[1]))
		}
	}
	queries = append(queries, title)

	out := queries[:0]
	seen := make(map[string]struct{}, len(queries))
	for _, q := range queries {
		if strings.TrimSpace(q) == "" {
			continue
		}
		// a title without brackets would otherwise be searched twice
		if _, ok := seen[q]; ok {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}
	return out
}

// CleanTitle removes every "(...)" and "[...]" span with its surrounding whitespace.
//
// Falls back to the title itself when nothing else is left.
func CleanTitle(title string) string {
	clean := bracketSpanRegex.ReplaceAllString(title, " ")
	clean = strings.Join(strings.Fields(clean), " ")
	if clean == "" {
		return title
	}
	return clean
}
