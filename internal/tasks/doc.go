// Package tasks builds a playlist from a working set of artists with real-time progress reporting.
//
// # Pipeline
//
// [Builder.Build] runs strictly sequentially:
//
//  1. For each artist, drain the album listing. An artist with no albums aborts the run ([ErrNoAlbums]).
//  2. For each album, drain the track listing, dropping any track whose key was already seen in the run.
//     The key is the track name unless [DedupeByID] is configured.
//  3. Abort when nothing was collected ([ErrNoTracks]).
//  4. Create one private playlist ([ErrCreatePlaylist]) described by the artist names.
//  5. Write the URIs in chunks of [ChunkSize]. A failed chunk stops the run ([ErrAddTracks]);
//     chunks already written stay in the playlist.
//
// # Pagination
//
// [Drain] follows cursor pagination for any item type. Only a failure on the first page is an error;
// later failures are logged and the partial result is kept.
//
// # Progress Reporting
//
// Progress is sent on a caller-owned channel without blocking: updates are dropped when the channel is full.
// The fetch phase fills 0 to [FetchCeiling] percent and the chunk writes fill the rest.
//
// # Build History
//
// When a [RunRecorder] is configured every build is recorded with its status and counters.
// Recorder failures are logged and never abort a build.
package tasks
