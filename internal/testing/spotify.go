package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// SpotifyFake serves the handful of Web API endpoints melon calls: search, me, playlist create and add tracks.
//
// Search answers from Tracks (query -> URI); every other query returns no items.
type SpotifyFake struct {
	Server *httptest.Server

	mu           sync.Mutex
	Tracks       map[string]string
	SearchStatus int
	// CreateStatuses is consumed one entry per create call; once empty, creates succeed.
	CreateStatuses []int
	AddStatus      int
	// ErrorBody selects how failures are written; the zero value is the Web API JSON shape.
	ErrorBody ErrorBody

	Queries      []string
	CreateTokens []string
	Created      []CreatedPlaylist
	Added        [][]string
	AddTokens    []string
}

// ErrorBody is the body style of a failed fake response.
type ErrorBody int

const (
	ErrorBodyJSON ErrorBody = iota
	// ErrorBodyNoStatus is JSON without the error.status field.
	ErrorBodyNoStatus
	ErrorBodyPlain
	ErrorBodyEmpty
)

// CreatedPlaylist is the decoded body of a create-playlist call.
type CreatedPlaylist struct {
	UserID      string
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}

// NewSpotifyFake starts a fake and stops it when the test ends.
func NewSpotifyFake(t *testing.T) *SpotifyFake {
	t.Helper()

	f := &SpotifyFake{Tracks: map[string]string{}}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/search", f.search)
	mux.HandleFunc("GET /v1/me", f.me)
	mux.HandleFunc("POST /v1/users/{user}/playlists", f.createPlaylist)
	mux.HandleFunc("POST /v1/playlists/{id}/tracks", f.addTracks)

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the Web API base URL, with trailing slash.
func (f *SpotifyFake) URL() string {
	return f.Server.URL + "/v1/"
}

// SearchedQueries returns a copy of every search query received, in order.
func (f *SpotifyFake) SearchedQueries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Queries...)
}

func (f *SpotifyFake) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f.mu.Lock()
	f.Queries = append(f.Queries, q.Get("q"))
	status := f.SearchStatus
	uri, ok := f.Tracks[q.Get("q")]
	f.mu.Unlock()

	if status != 0 && status != http.StatusOK {
		f.writeError(w, status)
		return
	}
	if q.Get("type") != "track" || q.Get("limit") != "1" {
		f.writeError(w, http.StatusBadRequest)
		return
	}

	items := []map[string]any{}
	if ok {
		id := strings.TrimPrefix(uri, "spotify:track:")
		items = append(items, map[string]any{"id": id, "uri": uri, "name": q.Get("q")})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tracks": map[string]any{"items": items, "total": len(items), "limit": 1},
	})
}

func (f *SpotifyFake) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"id": "melon-user", "display_name": "Melon User"})
}

func (f *SpotifyFake) createPlaylist(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.CreateTokens = append(f.CreateTokens, strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	status := http.StatusCreated
	if len(f.CreateStatuses) > 0 {
		status, f.CreateStatuses = f.CreateStatuses[0], f.CreateStatuses[1:]
	}
	f.mu.Unlock()

	if status != http.StatusCreated && status != http.StatusOK {
		f.writeError(w, status)
		return
	}

	var body CreatedPlaylist
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		f.writeError(w, http.StatusBadRequest)
		return
	}
	body.UserID = r.PathValue("user")

	f.mu.Lock()
	f.Created = append(f.Created, body)
	id := fmt.Sprintf("pl%d", len(f.Created))
	f.mu.Unlock()

	writeJSON(w, status, map[string]any{
		"id":            id,
		"name":          body.Name,
		"external_urls": map[string]string{"spotify": "https://open.spotify.com/playlist/" + id},
	})
}

func (f *SpotifyFake) addTracks(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.AddTokens = append(f.AddTokens, strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	status := f.AddStatus
	f.mu.Unlock()

	if status != 0 && status != http.StatusCreated {
		f.writeError(w, status)
		return
	}

	var body struct {
		URIs []string `json:"uris"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.URIs) > 100 {
		f.writeError(w, http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.Added = append(f.Added, body.URIs)
	f.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]string{"snapshot_id": "snap"})
}

func (f *SpotifyFake) writeError(w http.ResponseWriter, status int) {
	f.mu.Lock()
	style := f.ErrorBody
	f.mu.Unlock()

	switch style {
	case ErrorBodyNoStatus:
		writeJSON(w, status, map[string]any{"error": map[string]any{"message": http.StatusText(status)}})
	case ErrorBodyPlain:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprint(w, "Check settings on developer.spotify.com/dashboard, the user may not be registered.")
	case ErrorBodyEmpty:
		w.WriteHeader(status)
	default:
		writeJSON(w, status, map[string]any{
			"error": map[string]any{"status": status, "message": http.StatusText(status)},
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
