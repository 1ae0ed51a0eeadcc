package extractor

import (
	"context"

	"github.com/desertthunder/melon/internal/models"
)

// Lookup is one strategy for reading the lines of a source region.
type Lookup struct {
	Name  string
	Fetch func(ctx context.Context) ([]string, error)
}

// Document is a page the extractor can read.
type Document interface {
	// Title is the display title of the video.
	Title() string
	// URL is the address the page was read from.
	URL() string
	// Lookups lists the fallback strategies for src, most specific first.
	Lookups(src models.Source) []Lookup
}

// StaticLookup wraps lines that are already in memory.
func StaticLookup(name string, lines []string) Lookup {
	return Lookup{
		Name: name,
		Fetch: func(context.Context) ([]string, error) {
			return lines, nil
		},
	}
}
