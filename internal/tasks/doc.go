// Package tasks runs the sync pipeline: candidate songs in, a filled remote playlist out.
//
// # Matching
//
// [Matcher] resolves one [models.CandidateSong] at a time through [Queries]:
//
//  1. artist known: "track:<clean> artist:<artist>", then "<clean> <artist>"
//  2. artist unknown: "<clean>", then the first bracketed span's content
//  3. always last: the original title
//
// The first query with a hit wins. Hits are memoised in an LRU cache and calls are paced by a rate limiter.
//
// # Synchronizing
//
// [Synchronizer.Sync] walks Idle → Authenticating → Matching → CreatingPlaylist → AddingTracks → Done | Failed.
// A 401/403 on playlist creation clears the credential and retries once with whatever token
// [Credentials.ValidToken] produces next.
//
// # Progress Reporting
//
// The [ProgressUpdate] struct carries the state, step counters and a message.
// Updates use select with default to prevent blocking.
package tasks
