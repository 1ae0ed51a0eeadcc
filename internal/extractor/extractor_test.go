package extractor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/desertthunder/melon/internal/models"
	"github.com/desertthunder/melon/internal/shared"
)

type fakeDocument struct {
	title   string
	url     string
	lookups map[models.Source][]Lookup
}

func (d *fakeDocument) Title() string { return d.title }
func (d *fakeDocument) URL() string   { return d.url }
func (d *fakeDocument) Lookups(src models.Source) []Lookup {
	return d.lookups[src]
}

func failingLookup(name string) Lookup {
	return Lookup{
		Name: name,
		Fetch: func(context.Context) ([]string, error) {
			return nil, errors.New("boom")
		},
	}
}

func countingLookup(name string, calls *int, lines ...string) Lookup {
	return Lookup{
		Name: name,
		Fetch: func(context.Context) ([]string, error) {
			*calls++
			return lines, nil
		},
	}
}

func TestExtract(t *testing.T) {
	var logs bytes.Buffer
	ex := New(shared.NewLogger(&logs))

	t.Run("priority order and dedup", func(t *testing.T) {
		doc := &fakeDocument{
			title: "K-pop mix",
			url:   "https://www.youtube.com/watch?v=abc",
			lookups: map[models.Source][]Lookup{
				models.SourceDescription: {
					StaticLookup("desc", []string{"Tracklist:\n00:45 IU - Blueming\n01:30 BTS - Dynamite"}),
				},
				models.SourcePinnedComment: {
					StaticLookup("pinned", []string{"0:10 iu - BLUEMING", "2:00 AKMU - Love Lee"}),
				},
				models.SourceChapter: {
					StaticLookup("chapters", []string{"3:15\tDynamite (feat. Someone)"}),
				},
				models.SourcePlaylist: {
					StaticLookup("playlist", []string{"NewJeans - Ditto"}),
				},
			},
		}

		got := ex.Extract(context.Background(), doc)

		if got.VideoTitle != "K-pop mix" || got.SourceURL != "https://www.youtube.com/watch?v=abc" {
			t.Errorf("unexpected title/url: %q %q", got.VideoTitle, got.SourceURL)
		}

		want := []struct {
			title  string
			artist string
			source models.Source
		}{
			{"Blueming", "IU", models.SourceDescription},
			{"Dynamite", "BTS", models.SourceDescription},
			{"Love Lee", "AKMU", models.SourcePinnedComment},
			{"Dynamite", "", models.SourceChapter},
			{"Ditto", "NewJeans", models.SourcePlaylist},
		}
		if len(got.Songs) != len(want) {
			t.Fatalf("expected %d songs, got %d: %+v", len(want), len(got.Songs), got.Songs)
		}
		for i, w := range want {
			s := got.Songs[i]
			if s.Title != w.title || s.Artist != w.artist || s.Source != w.source {
				t.Errorf("song %d = %+v, want %s/%s from %s", i, s, w.artist, w.title, w.source)
			}
		}

		if got.Songs[3].OffsetLabel != "3:15" || got.Songs[3].OffsetSeconds != 0 {
			t.Errorf("chapter song should keep the time text as label, got %+v", got.Songs[3])
		}
	})

	t.Run("fallback lookups", func(t *testing.T) {
		var third, fourth int
		doc := &fakeDocument{
			lookups: map[models.Source][]Lookup{
				models.SourceDescription: {
					failingLookup("broken"),
					StaticLookup("blank", []string{"", "   "}),
					countingLookup("real", &third, "00:45 IU - Blueming"),
					countingLookup("unused", &fourth, "01:00 Someone - Else"),
				},
			},
		}

		got := ex.Extract(context.Background(), doc)

		if len(got.Songs) != 1 || got.Songs[0].Title != "Blueming" {
			t.Fatalf("expected Blueming from the third lookup, got %+v", got.Songs)
		}
		if third != 1 || fourth != 0 {
			t.Errorf("expected lookups to stop at the first non-empty one, calls = %d, %d", third, fourth)
		}
		if !strings.Contains(logs.String(), "lookup failed") {
			t.Error("expected the failing lookup to be logged")
		}
	})

	t.Run("first non-empty lookup wins even without songs", func(t *testing.T) {
		doc := &fakeDocument{
			lookups: map[models.Source][]Lookup{
				models.SourceDescription: {
					StaticLookup("prose", []string{"Thanks for watching!"}),
					StaticLookup("tracklist", []string{"00:45 IU - Blueming"}),
				},
			},
		}

		if got := ex.Extract(context.Background(), doc); len(got.Songs) != 0 {
			t.Errorf("expected no songs, got %+v", got.Songs)
		}
	})

	t.Run("nothing found", func(t *testing.T) {
		doc := &fakeDocument{title: "Vlog", url: "https://youtu.be/x"}

		got := ex.Extract(context.Background(), doc)
		if len(got.Songs) != 0 {
			t.Errorf("expected no songs, got %+v", got.Songs)
		}
		if got.VideoTitle != "Vlog" {
			t.Errorf("expected title to survive, got %q", got.VideoTitle)
		}
	})
}

func TestParseSource(t *testing.T) {
	tc := []struct {
		name       string
		src        models.Source
		lines      []string
		wantTitles []string
	}{
		{
			name:       "description requires timestamps",
			src:        models.SourceDescription,
			lines:      []string{"Intro text", "00:00 Opening", "IU - Blueming"},
			wantTitles: []string{"Opening"},
		},
		{
			name:       "chapter with own timestamp",
			src:        models.SourceChapter,
			lines:      []string{"0:00\t1:05 IU - Blueming"},
			wantTitles: []string{"Blueming"},
		},
		{
			name:       "chapter without time text",
			src:        models.SourceChapter,
			lines:      []string{"Dynamite (feat. Someone)"},
			wantTitles: []string{"Dynamite"},
		},
		{
			name:       "playlist titles",
			src:        models.SourcePlaylist,
			lines:      []string{"1. IU - Blueming", "", "Hype Boy"},
			wantTitles: []string{"Blueming", "Hype Boy"},
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSource(tt.src, tt.lines)
			if len(got) != len(tt.wantTitles) {
				t.Fatalf("expected %d songs, got %+v", len(tt.wantTitles), got)
			}
			for i, title := range tt.wantTitles {
				if got[i].Title != title {
					t.Errorf("song %d title = %q, want %q", i, got[i].Title, title)
				}
				if got[i].Source != tt.src {
					t.Errorf("song %d source = %s, want %s", i, got[i].Source, tt.src)
				}
			}
		})
	}
}
