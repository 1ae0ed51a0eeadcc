package extractor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/melon/internal/models"
	"github.com/desertthunder/melon/internal/shared"
)

const snapshotJSON = `{
  "url": "https://www.youtube.com/watch?v=abc&list=PL1",
  "title": "K-pop mix - YouTube",
  "regions": {
    "#description": "Full tracklist\n00:45 IU - Blueming\n1:02:03 BTS - Dynamite",
    "ytd-chapter-renderer": "0:00\tIntro\n3:15\tAKMU - Love Lee",
    "ytd-playlist-video-renderer #video-title": "NewJeans - Ditto"
  }
}`

func TestSnapshot(t *testing.T) {
	snap, err := LoadSnapshot(strings.NewReader(snapshotJSON))
	if err != nil {
		t.Fatalf("failed to load snapshot: %v", err)
	}

	t.Run("title falls back to document title", func(t *testing.T) {
		if got := snap.Title(); got != "K-pop mix - YouTube" {
			t.Errorf("Title() = %q", got)
		}
	})

	t.Run("heading title wins", func(t *testing.T) {
		withHeading := *snap
		withHeading.Regions = map[string]string{"h1.ytd-watch-metadata yt-formatted-string": " K-pop mix "}
		if got := withHeading.Title(); got != "K-pop mix" {
			t.Errorf("Title() = %q", got)
		}
	})

	t.Run("lookups follow locator order", func(t *testing.T) {
		lookups := snap.Lookups(models.SourceDescription)
		if len(lookups) != len(descriptionLocators) {
			t.Fatalf("expected %d lookups, got %d", len(descriptionLocators), len(lookups))
		}
		if lookups[0].Name != descriptionLocators[0] || lookups[len(lookups)-1].Name != "#description" {
			t.Errorf("unexpected lookup order: %s ... %s", lookups[0].Name, lookups[len(lookups)-1].Name)
		}
	})

	t.Run("extract", func(t *testing.T) {
		got := New(shared.NewLogger(nil)).Extract(context.Background(), snap)

		titles := make([]string, 0, len(got.Songs))
		for _, s := range got.Songs {
			titles = append(titles, s.Title)
		}
		want := "Blueming,Dynamite,Intro,Love Lee,Ditto"
		if strings.Join(titles, ",") != want {
			t.Errorf("titles = %v, want %s", titles, want)
		}
		if got.Songs[1].OffsetSeconds != 3723 {
			t.Errorf("expected 3723s offset, got %d", got.Songs[1].OffsetSeconds)
		}
		if got.SourceURL != "https://www.youtube.com/watch?v=abc&list=PL1" {
			t.Errorf("SourceURL = %q", got.SourceURL)
		}
	})
}

func TestLoadSnapshot(t *testing.T) {
	t.Run("missing url", func(t *testing.T) {
		_, err := LoadSnapshot(strings.NewReader(`{"title": "x"}`))
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := LoadSnapshot(strings.NewReader(`{`))
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "snap.json")
		if err := os.WriteFile(path, []byte(snapshotJSON), 0644); err != nil {
			t.Fatalf("failed to write snapshot: %v", err)
		}

		snap, err := LoadSnapshotFile(path)
		if err != nil {
			t.Fatalf("failed to load snapshot file: %v", err)
		}
		if len(snap.Regions) != 3 {
			t.Errorf("expected 3 regions, got %d", len(snap.Regions))
		}
	})
}
