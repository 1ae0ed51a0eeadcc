package extractor

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/melon/internal/models"
	"github.com/desertthunder/melon/internal/parser"
	"github.com/desertthunder/melon/internal/shared"
)

// Extractor runs the parser over every source of a [Document].
type Extractor struct {
	logger *log.Logger
}

// New creates an [Extractor]. A nil logger falls back to [shared.NewLogger].
func New(logger *log.Logger) *Extractor {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Extractor{logger: shared.WithLogger(logger, "component", "extractor")}
}

// Extract reads every source in priority order, concatenates the songs and removes duplicates.
//
// Source failures are logged and treated as empty; extraction itself never fails.
func (e *Extractor) Extract(ctx context.Context, doc Document) models.Extraction {
	var songs []models.CandidateSong

	for _, src := range models.Sources() {
		lines, via := e.firstLines(ctx, doc, src)
		if len(lines) == 0 {
			continue
		}

		found := ParseSource(src, lines)
		e.logger.Debug("source read", "source", src, "lookup", via, "lines", len(lines), "songs", len(found))
		songs = append(songs, found...)
	}

	deduped := models.Dedup(songs)
	if dropped := len(songs) - len(deduped); dropped > 0 {
		e.logger.Debug("duplicates dropped", "count", dropped)
	}

	return models.Extraction{
		Songs:      deduped,
		VideoTitle: doc.Title(),
		SourceURL:  doc.URL(),
	}
}

// firstLines returns the lines of the first lookup for src that yields any non-blank line.
func (e *Extractor) firstLines(ctx context.Context, doc Document, src models.Source) ([]string, string) {
	for _, lookup := range doc.Lookups(src) {
		lines, err := lookup.Fetch(ctx)
		if err != nil {
			e.logger.Warn("lookup failed", "source", src, "lookup", lookup.Name, "error", err)
			continue
		}

		for _, line := range lines {
			if strings.TrimSpace(line) != "" {
				return lines, lookup.Name
			}
		}
	}
	return nil, ""
}

// ParseSource parses the lines of one source region. Lines the parser rejects are skipped.
//
// Multi-line text (a description blob) is split on newlines first.
func ParseSource(src models.Source, lines []string) []models.CandidateSong {
	var songs []models.CandidateSong

	for _, blob := range lines {
		for _, line := range strings.Split(blob, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}

			var (
				parsed parser.Line
				ok     bool
			)
			switch src {
			case models.SourceChapter:
				parsed, ok = parseChapter(line)
			case models.SourcePlaylist:
				parsed, ok = parser.ParseTitle(line)
			default:
				parsed, ok = parser.ParseLine(line)
			}

			if ok {
				songs = append(songs, parsed.Candidate(src))
			}
		}
	}
	return songs
}

// parseChapter reads "<time>\t<title>" (or a bare title).
//
// A title that carries its own timestamp takes the timestamped path; otherwise the chapter's time text becomes the label.
func parseChapter(line string) (parser.Line, bool) {
	timeText, title, found := strings.Cut(line, "\t")
	if !found {
		timeText, title = "", line
	}

	if parsed, ok := parser.ParseLine(title); ok {
		return parsed, true
	}

	parsed, ok := parser.ParseTitle(title)
	if !ok {
		return parser.Line{}, false
	}
	parsed.OffsetLabel = parser.Normalize(timeText)
	return parsed, true
}
