// package formatter renders extracted tracklists to CSV, Markdown, plain text and JSON, and writes them to disk
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/melon/internal/models"
	"github.com/desertthunder/melon/internal/shared"
)

// Format is an export format for an extracted tracklist.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// Formats lists every supported [Format].
func Formats() []Format {
	return []Format{FormatJSON, FormatCSV, FormatMarkdown, FormatText}
}

// ParseFormat accepts a format name or its file extension ("md", "txt").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, s)
	}
}

// Extension returns the file extension, with dot, used for the format.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatText:
		return ".txt"
	default:
		return "." + string(f)
	}
}

// Export renders the extraction in the given format.
func Export(ext *models.Extraction, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return shared.MarshalJSON(ext, true)
	case FormatCSV:
		return ExportToCSV(ext)
	case FormatMarkdown:
		return ExportToMarkdown(ext)
	case FormatText:
		return ExportToText(ext)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
}

// ExportToCSV converts an Extraction to CSV format with columns: Timestamp, Seconds, Artist, Title, Source
func ExportToCSV(ext *models.Extraction) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Timestamp", "Seconds", "Artist", "Title", "Source"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, song := range ext.Songs {
		record := []string{
			song.OffsetLabel,
			strconv.Itoa(song.OffsetSeconds),
			song.Artist,
			song.Title,
			string(song.Source),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts an Extraction to Markdown with a link back to the video
func ExportToMarkdown(ext *models.Extraction) ([]byte, error) {
	var buf bytes.Buffer

	title := ext.VideoTitle
	if title == "" {
		title = "Untitled video"
	}
	fmt.Fprintf(&buf, "# %s\n\n", title)

	if ext.SourceURL != "" {
		fmt.Fprintf(&buf, "**Source**: <%s>\n", ext.SourceURL)
	}
	fmt.Fprintf(&buf, "**Songs**: %d\n\n", len(ext.Songs))

	buf.WriteString("## Tracklist\n\n")
	for i, song := range ext.Songs {
		stamp := ""
		if song.OffsetLabel != "" {
			stamp = fmt.Sprintf("`%s` ", song.OffsetLabel)
		}
		fmt.Fprintf(&buf, "%d. %s%s\n", i+1, stamp, SongLabel(song))
	}

	return buf.Bytes(), nil
}

// ExportToText converts an Extraction to a plain tracklist, one "<time> <artist> - <title>" line per song.
//
// The output can be pasted back into a video description.
func ExportToText(ext *models.Extraction) ([]byte, error) {
	var buf bytes.Buffer

	for _, song := range ext.Songs {
		if song.OffsetLabel != "" {
			buf.WriteString(song.OffsetLabel + " ")
		}
		buf.WriteString(SongLabel(song) + "\n")
	}

	return buf.Bytes(), nil
}

// SongLabel renders "Artist - Title", or just the title when the artist is unknown.
func SongLabel(song models.CandidateSong) string {
	if song.Artist == "" {
		return song.Title
	}
	return song.Artist + " - " + song.Title
}

// WriteExport writes the extraction to path in the given format.
//
// An empty path defaults to "tracklist" plus the format's extension. Parent directories are created.
func WriteExport(ext *models.Extraction, format Format, path string) (string, error) {
	if path == "" {
		path = "tracklist" + format.Extension()
	}

	data, err := Export(ext, format)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}

	return path, nil
}
