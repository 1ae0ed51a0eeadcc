// Package models defines the domain entities shared by the extraction and sync pipelines.
//
// The package contains three groups of types:
//
// 1. Extraction output
//   - [CandidateSong] : a song reference pulled from video metadata, before remote verification
//   - [Source] : where a candidate was found (description, pinned comment, chapter, playlist)
//   - [Extraction] : the merged, deduplicated candidate list plus the video title and URL
//
// 2. Sync output
//   - [MatchedSong] : a candidate annotated with its [Confidence] and remote track URI
//   - [SyncResult] : the per-run outcome returned to the caller
//
// 3. Authentication state
//   - [Credential] : the persisted access/refresh token pair and its expiry
//
// Candidates are immutable once created; [Dedup] keys them by lowercased title and artist.
package models
