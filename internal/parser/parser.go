// package parser turns single lines of video metadata into song references.
//
// Everything here is pure: no I/O, no logging. A line either yields a [Line] or is rejected.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/desertthunder/melon/internal/models"
	"golang.org/x/text/unicode/norm"
)

var (
	// optional "[", optional "H:", "M:SS" or "MM:SS", optional "]" and one dash-family/dot separator
	timestampRegex = regexp.MustCompile(`(?:\[?\s*)?(\d{1,2}:)?(\d{1,2}):(\d{2})\s*\]?\s*[-–—.]?\s*(.+)`)

	ordinalRegex   = regexp.MustCompile(`^\d+\.\s*`)
	parenFeatRegex = regexp.MustCompile(`(?i)\s*[(\[]\s*(?:featuring|feat|ft)\b[^)\]]*[)\]]\s*$`)
	// outside brackets only the unambiguous forms count, so a title word like "Feat" survives
	bareFeatRegex  = regexp.MustCompile(`(?i)\s+(?:featuring|feat\.|ft\.)\s+`)
	clauseSepRegex = regexp.MustCompile(`\s[-–—]\s`)

	spacedSeparatorRegex = regexp.MustCompile(`^(.+?)\s+[-–—]\s+(.+)$`)
	separatorRegex       = regexp.MustCompile(`^(.+?)\s*[-–—]\s*(.+)$`)
)

// dangling separators left at either end of a split
const dashCutset = " \t-–—"

// Line is a parsed song reference.
type Line struct {
	OffsetSeconds int
	OffsetLabel   string
	Artist        string
	Title         string
}

// Candidate stamps the line with the source it came from.
func (l Line) Candidate(src models.Source) models.CandidateSong {
	return models.CandidateSong{
		Title:         l.Title,
		Artist:        l.Artist,
		OffsetSeconds: l.OffsetSeconds,
		OffsetLabel:   l.OffsetLabel,
		Source:        src,
	}
}

// ParseLine parses a line carrying a timestamp, e.g. "1. 00:45 IU - Blueming" or "[1:02:03] Title".
//
// Returns false when the line has no timestamp or the title is empty after cleaning.
func ParseLine(line string) (Line, bool) {
	line = Normalize(line)
	if line == "" {
		return Line{}, false
	}

	m := timestampRegex.FindStringSubmatch(line)
	if m == nil {
		return Line{}, false
	}

	hours, minutes, seconds, rest := strings.TrimSuffix(m[1], ":"), m[2], m[3], m[4]

	artist, title := SplitArtistTitle(rest)
	if title == "" {
		return Line{}, false
	}

	label := minutes + ":" + seconds
	if hours != "" {
		label = hours + ":" + label
	}

	return Line{
		OffsetSeconds: Offset(hours, minutes, seconds),
		OffsetLabel:   label,
		Artist:        artist,
		Title:         title,
	}, true
}

// ParseTitle parses a free-text entry with no timestamp (chapter titles, playlist video titles).
//
// Offset is zero; returns false only when the cleaned title is empty.
func ParseTitle(text string) (Line, bool) {
	artist, title := SplitArtistTitle(Normalize(text))
	if title == "" {
		return Line{}, false
	}
	return Line{Artist: artist, Title: title}, true
}

// SplitArtistTitle cleans raw song text and splits it into artist and title.
//
// A leading ordinal ("1. "), a trailing featuring clause and dangling dashes are removed first. The text is then split on the first
// dash-family separator, preferring one surrounded by spaces so hyphenated names ("Jay-Z") survive.
// Without a separator the whole text is the title and the artist is empty.
func SplitArtistTitle(raw string) (artist, title string) {
	cleaned := strings.TrimSpace(raw)
	cleaned = ordinalRegex.ReplaceAllString(cleaned, "")
	cleaned = strings.Trim(stripFeaturing(cleaned), dashCutset)

	m := spacedSeparatorRegex.FindStringSubmatch(cleaned)
	if m == nil {
		m = separatorRegex.FindStringSubmatch(cleaned)
	}
	if m == nil {
		return "", cleaned
	}

	artist = strings.Trim(stripFeaturing(strings.TrimSpace(m[1])), dashCutset)
	title = strings.Trim(stripFeaturing(strings.TrimSpace(m[2])), dashCutset)
	if title == "" {
		return "", artist
	}
	return artist, title
}

// Offset converts timestamp components to seconds. Hours default to zero.
func Offset(hours, minutes, seconds string) int {
	h, _ := strconv.Atoi(hours)
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)
	return h*3600 + m*60 + s
}

// Normalize applies NFKC so full-width digits and colons read as ASCII, then trims the line.
func Normalize(line string) string {
	return strings.TrimSpace(norm.NFKC.String(line))
}

// stripFeaturing removes a trailing "(feat. X)" or "ft. X" clause.
//
// A bare clause is only cut when it does not span an artist/title separator.
func stripFeaturing(s string) string {
	s = parenFeatRegex.ReplaceAllString(s, "")

	if locs := bareFeatRegex.FindAllStringIndex(s, -1); len(locs) > 0 {
		start := locs[len(locs)-1][0]
		if !clauseSepRegex.MatchString(s[start:]) {
			s = s[:start]
		}
	}
	return strings.TrimSpace(s)
}
