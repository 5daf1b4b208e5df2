// Package repositories implements SQLite persistence for the playlist builder.
//
// Key Implementations:
//   - [KVRepository] : The durable key-value store behind [models.Store]
//   - [RunRepository] : Build history with status tracking and soft deletes
//
// Sequence numbers provide stable, human-readable ordering (e.g., run #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
