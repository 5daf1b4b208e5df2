// Package library holds the working set: the ordered list of artists a playlist is built from.
//
// The set is stored as one JSON array under the "artists-array" key of a [models.Store] and rewritten
// on every mutation. Artists are unique by name. [WorkingSet.AddFromInput] accepts artist IDs, share
// links (https://open.spotify.com/artist/...) and URIs, resolves them in a single lookup, and remembers
// the cleaned input so an interface can offer it again.
package library
