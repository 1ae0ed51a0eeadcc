package testing

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// YouTubeVideo is one video known to [YouTubeFake].
type YouTubeVideo struct {
	Title       string
	Description string
	ChannelID   string
	// Comments are (author channel, text) pairs in relevance order.
	Comments [][2]string
}

// YouTubeFake serves videos, commentThreads and playlistItems of the Data API.
type YouTubeFake struct {
	Server *httptest.Server

	mu        sync.Mutex
	Videos    map[string]YouTubeVideo
	Playlists map[string][]string
	PageSize  int
	// CommentStatus, when set, fails commentThreads calls (comments disabled returns 403).
	CommentStatus int
	Keys          []string
}

// NewYouTubeFake starts a fake and stops it when the test ends.
func NewYouTubeFake(t *testing.T) *YouTubeFake {
	t.Helper()

	f := &YouTubeFake{Videos: map[string]YouTubeVideo{}, Playlists: map[string][]string{}, PageSize: 2}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the endpoint to pass to option.WithEndpoint.
func (f *YouTubeFake) URL() string {
	return f.Server.URL + "/"
}

func (f *YouTubeFake) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.Keys = append(f.Keys, r.URL.Query().Get("key"))
	f.mu.Unlock()

	switch {
	case strings.HasSuffix(r.URL.Path, "/videos"):
		f.videos(w, r)
	case strings.HasSuffix(r.URL.Path, "/commentThreads"):
		f.commentThreads(w, r)
	case strings.HasSuffix(r.URL.Path, "/playlistItems"):
		f.playlistItems(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (f *YouTubeFake) videos(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	v, ok := f.Videos[r.URL.Query().Get("id")]
	f.mu.Unlock()

	items := []any{}
	if ok {
		items = append(items, map[string]any{
			"id": r.URL.Query().Get("id"),
			"snippet": map[string]any{
				"title":       v.Title,
				"description": v.Description,
				"channelId":   v.ChannelID,
			},
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (f *YouTubeFake) commentThreads(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	status := f.CommentStatus
	v := f.Videos[r.URL.Query().Get("videoId")]
	f.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, map[string]any{"error": map[string]any{"code": status, "message": "commentsDisabled"}})
		return
	}

	comments := v.Comments
	if r.URL.Query().Get("order") == "time" {
		comments = make([][2]string, 0, len(v.Comments))
		for i := len(v.Comments) - 1; i >= 0; i-- {
			comments = append(comments, v.Comments[i])
		}
	}

	items := []any{}
	for _, c := range comments {
		items = append(items, map[string]any{
			"snippet": map[string]any{
				"topLevelComment": map[string]any{
					"snippet": map[string]any{
						"authorChannelId": map[string]string{"value": c[0]},
						"textDisplay":     c[1],
						"textOriginal":    c[1],
					},
				},
			},
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (f *YouTubeFake) playlistItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f.mu.Lock()
	titles, ok := f.Playlists[q.Get("playlistId")]
	size := f.PageSize
	f.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"code": 404, "message": "playlistNotFound"}})
		return
	}

	start := 0
	if tok := q.Get("pageToken"); tok != "" {
		for i := range titles {
			if tok == pageToken(i) {
				start = i
			}
		}
	}
	end := min(start+size, len(titles))

	items := []any{}
	for _, title := range titles[start:end] {
		items = append(items, map[string]any{"snippet": map[string]any{"title": title}})
	}

	resp := map[string]any{"items": items}
	if end < len(titles) {
		resp["nextPageToken"] = pageToken(end)
	}
	writeJSON(w, http.StatusOK, resp)
}

func pageToken(i int) string {
	return "page-" + strings.Repeat("x", i)
}
