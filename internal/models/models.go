// package models defines the data model for the melon extraction and sync pipelines
package models

import (
	"strings"
	"time"
)

// Source identifies the metadata region a candidate song was extracted from.
//
// Sources are listed in extraction priority order.
type Source string

const (
	SourceDescription   Source = "description"
	SourcePinnedComment Source = "pinned_comment"
	SourceChapter       Source = "chapter"
	SourcePlaylist      Source = "playlist"
)

// Sources returns every [Source] in extraction priority order.
func Sources() []Source {
	return []Source{SourceDescription, SourcePinnedComment, SourceChapter, SourcePlaylist}
}

// Timestamped reports whether lines from this source must carry a timestamp to be accepted.
func (s Source) Timestamped() bool {
	return s == SourceDescription || s == SourcePinnedComment
}

// Confidence describes whether a remote track was found for a candidate.
type Confidence string

const (
	ConfidenceMatched   Confidence = "matched"
	ConfidenceUncertain Confidence = "uncertain"
)

// CandidateSong is a song reference extracted from text before remote verification.
type CandidateSong struct {
	Title         string `json:"title"`
	Artist        string `json:"artist"`
	OffsetSeconds int    `json:"timestamp"`
	OffsetLabel   string `json:"timestampStr"`
	Source        Source `json:"source"`
}

// Key returns the deduplication identity of the song: lowercased title and artist.
func (c CandidateSong) Key() string {
	return strings.ToLower(c.Title) + "|" + strings.ToLower(c.Artist)
}

// MatchedSong is a [CandidateSong] after the search step.
//
// RemoteTrackID is empty when Confidence is [ConfidenceUncertain].
type MatchedSong struct {
	CandidateSong
	Confidence    Confidence `json:"confidence"`
	RemoteTrackID string     `json:"spotifyUri,omitempty"`
}

// Matched reports whether a remote track was found.
func (m MatchedSong) Matched() bool {
	return m.Confidence == ConfidenceMatched && m.RemoteTrackID != ""
}

// Extraction is the response of one extraction run.
type Extraction struct {
	Songs      []CandidateSong `json:"songs"`
	VideoTitle string          `json:"videoTitle"`
	SourceURL  string          `json:"sourceUrl"`
}

// SyncResult is produced once per sync invocation.
//
// An empty PlaylistURL or Error stands for "none".
type SyncResult struct {
	Matched      []MatchedSong `json:"matched"`
	MatchedCount int           `json:"matchedCount"`
	PlaylistURL  string        `json:"playlistUrl,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// Failed reports whether the run ended with an error.
func (r SyncResult) Failed() bool {
	return r.Error != ""
}

// SyncRun is one recorded sync invocation.
type SyncRun struct {
	ID             string        `json:"id"`
	Seq            int           `json:"seq"`
	VideoTitle     string        `json:"videoTitle"`
	SourceURL      string        `json:"sourceUrl"`
	CandidateCount int           `json:"candidateCount"`
	MatchedCount   int           `json:"matchedCount"`
	PlaylistURL    string        `json:"playlistUrl,omitempty"`
	Error          string        `json:"error,omitempty"`
	Matched        []MatchedSong `json:"matched"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// Credential is the persisted token pair.
//
// ExpiresAt is in epoch milliseconds and already includes the refresh safety margin.
type Credential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    int64  `json:"expires_at"`
}

// Expired reports whether the access token may no longer be used at the given instant.
func (c Credential) Expired(now time.Time) bool {
	return c.ExpiresAt <= now.UnixMilli()
}

// Usable reports whether the access token is present and unexpired.
func (c Credential) Usable(now time.Time) bool {
	return c.AccessToken != "" && !c.Expired(now)
}

// Dedup drops every song whose [CandidateSong.Key] was already seen, keeping the first occurrence.
func Dedup(songs []CandidateSong) []CandidateSong {
	seen := make(map[string]struct{}, len(songs))
	out := make([]CandidateSong, 0, len(songs))
	for _, s := range songs {
		key := s.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
