// Package extractor turns a video page into an ordered, deduplicated list of candidate songs.
//
// # Sources
//
// Four text regions are read in fixed priority: description, pinned comment, chapter list and playlist listing.
// Each region is reached through an ordered list of [Lookup] strategies; the first one that yields a non-empty line
// wins and the rest are not consulted.
//
// Description and pinned-comment lines must carry a timestamp. Chapter entries are "<time>\t<title>" lines and
// fall back to the title-only parse. Playlist entries are always title-only.
//
// # Documents
//
// The extractor never touches a concrete page. A [Document] supplies the title, URL and lookups;
// [Snapshot] reads a JSON page capture and services.YouTubeDocument reads the YouTube Data API.
package extractor
