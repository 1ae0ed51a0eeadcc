package services

import (
	"context"
)

// TrackSearcher looks up a single track URI for a free-text query.
type TrackSearcher interface {
	// SearchTrack returns the URI of the best hit, or "" when the query has no results.
	SearchTrack(ctx context.Context, query string) (string, error)
}

// PlaylistWriter creates playlists and fills them.
type PlaylistWriter interface {
	// CreatePlaylist creates a private playlist owned by the current user.
	CreatePlaylist(ctx context.Context, name, description string) (*Playlist, error)
	// AddTracks appends track URIs in order.
	AddTracks(ctx context.Context, playlistID string, uris []string) error
}

// Catalog is a remote music catalog bound to one access token.
type Catalog interface {
	TrackSearcher
	PlaylistWriter
}

// CatalogProvider hands out a [Catalog] for an access token.
type CatalogProvider interface {
	ForToken(token string) Catalog
}

// Playlist is a created remote playlist.
type Playlist struct {
	ID  string
	URL string
}
