// Package services wraps the two remote APIs melon talks to.
//
// # Spotify
//
// [Spotify] is built once per process; [Spotify.ForToken] binds it to an access token and returns a [Catalog]
// backed by github.com/zmb3/spotify/v2. A catalog searches tracks, creates private playlists and adds tracks in
// batches of [MaxTracksPerRequest].
//
// Responses with status 401 or 403 are wrapped with [shared.ErrUnauthorized] so callers can tell a rejected
// credential apart from any other failure ([shared.ErrAPIRequest]).
//
// # YouTube
//
// [YouTube] reads video metadata through the YouTube Data API v3 and exposes it as a [YouTubeDocument], which
// satisfies extractor.Document. The Data API has no chapter list; chapter lookups are always empty.
package services
