package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/desertthunder/melon/internal/models"
	"github.com/desertthunder/melon/internal/services"
	"github.com/desertthunder/melon/internal/shared"
	tu "github.com/desertthunder/melon/internal/testing"
)

// mockCredentials hands out tokens in order; an exhausted queue yields "".
type mockCredentials struct {
	tokens  []string
	logouts int
}

func (m *mockCredentials) ValidToken(ctx context.Context) string {
	if len(m.tokens) == 0 {
		return ""
	}
	tok := m.tokens[0]
	m.tokens = m.tokens[1:]
	return tok
}

func (m *mockCredentials) Logout(ctx context.Context) error {
	m.logouts++
	return nil
}

type mockRecorder struct {
	runs []*models.SyncRun
	err  error
}

func (m *mockRecorder) Record(ctx context.Context, run *models.SyncRun) error {
	m.runs = append(m.runs, run)
	return m.err
}

func newTestSynchronizer(t *testing.T, creds Credentials) (*tu.SpotifyFake, *mockRecorder, *Synchronizer) {
	t.Helper()
	logger := shared.NewLogger(io.Discard)
	fake := tu.NewSpotifyFake(t)
	rec := &mockRecorder{}

	s := NewSynchronizer(SynchronizerOptions{
		Credentials: creds,
		Catalogs:    services.NewSpotify(fake.URL(), fake.Server.Client(), logger),
		Matcher:     NewMatcher(MatcherOptions{CacheSize: 16, Logger: logger}),
		Recorder:    rec,
		Logger:      logger,
	})
	return fake, rec, s
}

func fiveSongs() []models.CandidateSong {
	return []models.CandidateSong{
		{Title: "Blueming", Artist: "IU", OffsetSeconds: 0, Source: models.SourceDescription},
		{Title: "Unknown One", Artist: "Nobody", OffsetSeconds: 60, Source: models.SourceDescription},
		{Title: "Ditto", Artist: "NewJeans", OffsetSeconds: 120, Source: models.SourceDescription},
		{Title: "Unknown Two", OffsetSeconds: 180, Source: models.SourceDescription},
		{Title: "뱅뱅뱅 (BANG BANG BANG)", OffsetSeconds: 240, Source: models.SourceDescription},
	}
}

func seedTracks(fake *tu.SpotifyFake) {
	fake.Tracks["track:Blueming artist:IU"] = "spotify:track:blue"
	fake.Tracks["Ditto NewJeans"] = "spotify:track:ditto"
	fake.Tracks["BANG BANG BANG"] = "spotify:track:bang"
}

func drain(progress chan ProgressUpdate) []ProgressUpdate {
	close(progress)
	var out []ProgressUpdate
	for u := range progress {
		out = append(out, u)
	}
	return out
}

func TestSynchronizer(t *testing.T) {
	ctx := context.Background()

	t.Run("five candidates three matches", func(t *testing.T) {
		fake, rec, s := newTestSynchronizer(t, &mockCredentials{tokens: []string{"tok"}})
		seedTracks(fake)
		progress := make(chan ProgressUpdate, 64)

		result := s.Sync(ctx, SyncRequest{Songs: fiveSongs(), VideoTitle: "Kpop Mix", SourceURL: "https://youtu.be/x"}, progress)

		if result.Failed() {
			t.Fatalf("unexpected error: %s", result.Error)
		}
		if result.MatchedCount != 3 {
			t.Errorf("MatchedCount = %d, want 3", result.MatchedCount)
		}
		if len(result.Matched) != 5 {
			t.Fatalf("expected 5 matched songs, got %d", len(result.Matched))
		}
		for i, want := range fiveSongs() {
			if result.Matched[i].Title != want.Title {
				t.Errorf("Matched[%d] = %q, want %q", i, result.Matched[i].Title, want.Title)
			}
		}
		if result.Matched[1].Confidence != models.ConfidenceUncertain {
			t.Errorf("expected Unknown One uncertain, got %+v", result.Matched[1])
		}
		if result.PlaylistURL != "https://open.spotify.com/playlist/pl1" {
			t.Errorf("PlaylistURL = %q", result.PlaylistURL)
		}

		if len(fake.Created) != 1 {
			t.Fatalf("expected one playlist, got %d", len(fake.Created))
		}
		created := fake.Created[0]
		if created.Name != "🍉 Kpop Mix" || created.Description != PlaylistDescription || created.Public {
			t.Errorf("unexpected playlist %+v", created)
		}

		want := []string{"spotify:track:blue", "spotify:track:ditto", "spotify:track:bang"}
		if len(fake.Added) != 1 || strings.Join(fake.Added[0], ",") != strings.Join(want, ",") {
			t.Errorf("added %v, want %v", fake.Added, want)
		}

		if len(rec.runs) != 1 || rec.runs[0].CandidateCount != 5 || rec.runs[0].MatchedCount != 3 {
			t.Errorf("unexpected recorded runs %+v", rec.runs)
		}

		updates := drain(progress)
		if len(updates) == 0 || updates[len(updates)-1].State != Done {
			t.Errorf("expected final Done update, got %+v", updates)
		}
		states := map[State]bool{}
		for _, u := range updates {
			states[u.State] = true
		}
		for _, st := range []State{Authenticating, Matching, CreatingPlaylist, AddingTracks, Done} {
			if !states[st] {
				t.Errorf("missing %s update", st)
			}
		}
	})

	t.Run("not authenticated", func(t *testing.T) {
		fake, rec, s := newTestSynchronizer(t, &mockCredentials{})
		seedTracks(fake)

		result := s.Sync(ctx, SyncRequest{Songs: fiveSongs(), VideoTitle: "Mix"}, nil)

		if result.Error != shared.ErrNotAuthenticated.Error() {
			t.Errorf("Error = %q", result.Error)
		}
		if len(fake.SearchedQueries()) != 0 {
			t.Error("no search may happen without a token")
		}
		if len(rec.runs) != 1 || rec.runs[0].Error == "" {
			t.Errorf("expected failed run to be recorded, got %+v", rec.runs)
		}
	})

	t.Run("dry run stops after matching", func(t *testing.T) {
		fake, rec, s := newTestSynchronizer(t, &mockCredentials{tokens: []string{"tok"}})
		seedTracks(fake)
		progress := make(chan ProgressUpdate, 64)

		result := s.Sync(ctx, SyncRequest{Songs: fiveSongs(), VideoTitle: "Mix", DryRun: true}, progress)

		if result.Failed() || result.MatchedCount != 3 || result.PlaylistURL != "" {
			t.Errorf("unexpected result %+v", result)
		}
		if len(fake.Created) != 0 {
			t.Errorf("expected no playlist, got %+v", fake.Created)
		}
		if len(rec.runs) != 0 {
			t.Errorf("dry runs are not recorded, got %+v", rec.runs)
		}
		for _, u := range drain(progress) {
			if u.State == CreatingPlaylist || u.State == AddingTracks {
				t.Errorf("unexpected %s update", u.State)
			}
		}
	})

	t.Run("empty candidate list", func(t *testing.T) {
		creds := &mockCredentials{tokens: []string{"tok"}}
		fake, _, s := newTestSynchronizer(t, creds)

		result := s.Sync(ctx, SyncRequest{VideoTitle: "Mix"}, nil)

		if result.Failed() || result.MatchedCount != 0 || result.PlaylistURL != "" {
			t.Errorf("unexpected result %+v", result)
		}
		if len(creds.tokens) != 1 || len(fake.Created) != 0 {
			t.Error("empty sync must not touch the credential or the catalog")
		}
	})

	t.Run("zero matches is a success without playlist", func(t *testing.T) {
		fake, _, s := newTestSynchronizer(t, &mockCredentials{tokens: []string{"tok"}})

		result := s.Sync(ctx, SyncRequest{Songs: fiveSongs()[:2], VideoTitle: "Mix"}, nil)

		if result.Failed() || result.MatchedCount != 0 || result.PlaylistURL != "" {
			t.Errorf("unexpected result %+v", result)
		}
		if len(result.Matched) != 2 {
			t.Errorf("expected matching data for both songs, got %+v", result.Matched)
		}
		if len(fake.Created) != 0 {
			t.Error("no playlist may be created without matches")
		}
	})

	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(fmt.Sprintf("create retried once after %d", status), func(t *testing.T) {
			creds := &mockCredentials{tokens: []string{"stale", "fresh"}}
			fake, _, s := newTestSynchronizer(t, creds)
			seedTracks(fake)
			fake.CreateStatuses = []int{status}

			result := s.Sync(ctx, SyncRequest{Songs: fiveSongs(), VideoTitle: "Mix"}, nil)

			if result.Failed() {
				t.Fatalf("unexpected error: %s", result.Error)
			}
			if creds.logouts != 1 {
				t.Errorf("expected credential to be cleared once, got %d", creds.logouts)
			}
			if got := strings.Join(fake.CreateTokens, ","); got != "stale,fresh" {
				t.Errorf("create tokens = %q", got)
			}
			if len(fake.Added) != 1 {
				t.Errorf("expected tracks added with the fresh token, got %v", fake.Added)
			}
		})
	}

	t.Run("retry succeeds with the fresh token", func(t *testing.T) {
		creds := &mockCredentials{tokens: []string{"stale", "fresh"}}
		fake, rec, s := newTestSynchronizer(t, creds)
		seedTracks(fake)
		fake.CreateStatuses = []int{http.StatusForbidden}
		fake.ErrorBody = tu.ErrorBodyPlain

		result := s.Sync(ctx, SyncRequest{Songs: fiveSongs(), VideoTitle: "Mix"}, nil)

		if result.Error != "" {
			t.Fatalf("unexpected error: %s", result.Error)
		}
		if result.PlaylistURL != "https://open.spotify.com/playlist/pl1" {
			t.Errorf("PlaylistURL = %q", result.PlaylistURL)
		}
		if creds.logouts != 1 {
			t.Errorf("expected credential to be cleared once, got %d", creds.logouts)
		}
		if got := strings.Join(fake.CreateTokens, ","); got != "stale,fresh" {
			t.Errorf("create tokens = %q", got)
		}
		if got := strings.Join(fake.AddTokens, ","); got != "fresh" {
			t.Errorf("add tokens = %q, want the fresh token only", got)
		}
		want := "spotify:track:blue,spotify:track:ditto,spotify:track:bang"
		if len(fake.Added) != 1 || strings.Join(fake.Added[0], ",") != want {
			t.Errorf("added %v, want %s", fake.Added, want)
		}
		if len(rec.runs) != 1 || rec.runs[0].PlaylistURL != result.PlaylistURL {
			t.Errorf("unexpected recorded runs %+v", rec.runs)
		}
	})

	t.Run("empty body 401 still triggers the retry", func(t *testing.T) {
		creds := &mockCredentials{tokens: []string{"stale", "fresh"}}
		fake, _, s := newTestSynchronizer(t, creds)
		seedTracks(fake)
		fake.CreateStatuses = []int{http.StatusUnauthorized}
		fake.ErrorBody = tu.ErrorBodyEmpty

		result := s.Sync(ctx, SyncRequest{Songs: fiveSongs(), VideoTitle: "Mix"}, nil)

		if result.Failed() || creds.logouts != 1 || len(fake.CreateTokens) != 2 {
			t.Errorf("expected one retry, got error=%q logouts=%d creates=%v", result.Error, creds.logouts, fake.CreateTokens)
		}
	})

	t.Run("retry without fresh token", func(t *testing.T) {
		creds := &mockCredentials{tokens: []string{"stale"}}
		fake, _, s := newTestSynchronizer(t, creds)
		seedTracks(fake)
		fake.CreateStatuses = []int{http.StatusUnauthorized}

		result := s.Sync(ctx, SyncRequest{Songs: fiveSongs(), VideoTitle: "Mix"}, nil)

		if !strings.HasPrefix(result.Error, shared.ErrFailedToCreatePlaylist.Error()) {
			t.Errorf("Error = %q", result.Error)
		}
		if result.MatchedCount != 3 || len(result.Matched) != 5 {
			t.Errorf("matching data must survive the failure, got %+v", result)
		}
		if len(fake.CreateTokens) != 1 {
			t.Errorf("expected a single create attempt, got %v", fake.CreateTokens)
		}
	})

	t.Run("at most one retry", func(t *testing.T) {
		creds := &mockCredentials{tokens: []string{"a", "b", "c"}}
		fake, _, s := newTestSynchronizer(t, creds)
		seedTracks(fake)
		fake.CreateStatuses = []int{http.StatusUnauthorized, http.StatusUnauthorized}

		result := s.Sync(ctx, SyncRequest{Songs: fiveSongs(), VideoTitle: "Mix"}, nil)

		if !strings.HasPrefix(result.Error, shared.ErrFailedToCreatePlaylist.Error()) {
			t.Errorf("Error = %q", result.Error)
		}
		if len(fake.CreateTokens) != 2 {
			t.Errorf("expected two create attempts, got %v", fake.CreateTokens)
		}
	})

	t.Run("non auth create failure is not retried", func(t *testing.T) {
		creds := &mockCredentials{tokens: []string{"tok", "other"}}
		fake, _, s := newTestSynchronizer(t, creds)
		seedTracks(fake)
		fake.CreateStatuses = []int{http.StatusInternalServerError}

		result := s.Sync(ctx, SyncRequest{Songs: fiveSongs(), VideoTitle: "Mix"}, nil)

		if !strings.HasPrefix(result.Error, shared.ErrFailedToCreatePlaylist.Error()) {
			t.Errorf("Error = %q", result.Error)
		}
		if creds.logouts != 0 || len(fake.CreateTokens) != 1 {
			t.Errorf("expected no retry, logouts=%d creates=%v", creds.logouts, fake.CreateTokens)
		}
	})

	t.Run("add failure keeps playlist url", func(t *testing.T) {
		fake, _, s := newTestSynchronizer(t, &mockCredentials{tokens: []string{"tok"}})
		seedTracks(fake)
		fake.AddStatus = http.StatusInternalServerError
		progress := make(chan ProgressUpdate, 64)

		result := s.Sync(ctx, SyncRequest{Songs: fiveSongs(), VideoTitle: "Mix"}, progress)

		if !strings.HasPrefix(result.Error, shared.ErrFailedToAddTracks.Error()) {
			t.Errorf("Error = %q", result.Error)
		}
		if result.PlaylistURL == "" || result.MatchedCount != 3 {
			t.Errorf("unexpected result %+v", result)
		}

		updates := drain(progress)
		if last := updates[len(updates)-1]; last.State != Failed {
			t.Errorf("expected final Failed update, got %+v", last)
		}
	})

	t.Run("batches of one hundred", func(t *testing.T) {
		fake, _, s := newTestSynchronizer(t, &mockCredentials{tokens: []string{"tok"}})
		songs := make([]models.CandidateSong, 0, 150)
		for i := range 150 {
			title := fmt.Sprintf("Song %03d", i)
			fake.Tracks[title] = fmt.Sprintf("spotify:track:t%03d", i)
			songs = append(songs, models.CandidateSong{Title: title})
		}

		result := s.Sync(ctx, SyncRequest{Songs: songs, VideoTitle: "Long Mix"}, nil)

		if result.Failed() || result.MatchedCount != 150 {
			t.Fatalf("unexpected result %+v", result.Error)
		}
		if len(fake.Added) != 2 || len(fake.Added[0]) != 100 || len(fake.Added[1]) != 50 {
			t.Errorf("unexpected batches: %d", len(fake.Added))
		}
	})

	t.Run("recorder failure does not change the result", func(t *testing.T) {
		fake, rec, s := newTestSynchronizer(t, &mockCredentials{tokens: []string{"tok"}})
		seedTracks(fake)
		rec.err = errors.New("disk full")

		result := s.Sync(ctx, SyncRequest{Songs: fiveSongs(), VideoTitle: "Mix"}, nil)
		if result.Failed() {
			t.Errorf("unexpected error %q", result.Error)
		}
	})
}

func TestStateString(t *testing.T) {
	for st, want := range map[State]string{
		Idle:             "idle",
		Authenticating:   "authenticating",
		Matching:         "matching",
		CreatingPlaylist: "creating_playlist",
		AddingTracks:     "adding_tracks",
		Done:             "done",
		Failed:           "failed",
	} {
		if got := st.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", st, got, want)
		}
	}
	if !Done.Terminal() || !Failed.Terminal() || Matching.Terminal() {
		t.Error("only Done and Failed are terminal")
	}
}
