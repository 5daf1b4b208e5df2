// Package models defines domain entities and persistence interfaces for the playlist builder.
//
// The package contains two categories of types:
//
// 1. Value types: plain structs describing provider data and build inputs
//   - [Session] : The persisted OAuth2 token pair with absolute expiry
//   - [Profile] : The cached profile of the authenticated user
//   - [Artist] : A working set entry
//   - [Track] : A track collected while building a playlist
//   - [PlaylistRequest] : Name, description and ordered track URIs of a build
//
// 2. Persistent entities: database-backed models with full lifecycle management
//   - [BuildRun] : A playlist build with status and counters
//
// Persistent entities implement the [Model] interface and are accessed through [Repository].
// Everything else that must survive a restart goes through the [Store] key-value port.
package models
