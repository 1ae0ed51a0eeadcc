// Package repositories implements SQLite persistence for melon.
//
// Key Implementations:
//   - [CredentialRepository] : the Spotify credential under fixed keys of the kv_store table; satisfies auth.Store
//   - [SyncRunRepository] : one row per finished sync; satisfies tasks.Recorder
//
// Sync runs carry a UUID primary key plus a sequence number for stable, human-readable ordering (sync #42).
// [NextSequence] derives it inside the inserting transaction.
package repositories
