package library

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sptool/internal/models"
	"github.com/desertthunder/sptool/internal/shared"
	"github.com/zmb3/spotify/v2"
)

const (
	keyArtists   = "artists-array"
	keyLastInput = "last-artist-input"

	artistURLPrefix = "https://open.spotify.com/artist/"
	artistURIPrefix = "spotify:artist:"
	maxLookup       = 50
)

// ArtistLookup resolves artist IDs in one batch. [services.SpotifyClient] implements it.
type ArtistLookup interface {
	GetArtistsByIDs(ctx context.Context, ids []string) ([]*spotify.FullArtist, error)
}

// WorkingSet is the ordered, de-duplicated list of artists a playlist is built from.
//
// Every mutation rewrites the whole list to the store.
type WorkingSet struct {
	mu      sync.Mutex
	store   models.Store
	logger  *log.Logger
	artists []models.Artist
}

// Load reads the working set from store. A corrupt entry is logged and replaced by an empty set.
func Load(store models.Store, logger *log.Logger) (*WorkingSet, error) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	ws := &WorkingSet{store: store, logger: logger}
	if err := ws.Reload(); err != nil {
		return nil, err
	}
	return ws, nil
}

// Reload replaces the in-memory list with what the store holds, e.g. after a logout cleared it.
func (ws *WorkingSet) Reload() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	ws.artists = []models.Artist{}
	raw, ok, err := ws.store.Get(keyArtists)
	if err != nil {
		return fmt.Errorf("failed to read working set: %w", err)
	}
	if !ok || raw == "" {
		return nil
	}

	if err := json.Unmarshal([]byte(raw), &ws.artists); err != nil {
		ws.logger.Warn("discarding unreadable working set", "error", err)
		ws.artists = []models.Artist{}
	}
	return nil
}

func (ws *WorkingSet) save() error {
	data, err := json.Marshal(ws.artists)
	if err != nil {
		return fmt.Errorf("failed to encode working set: %w", err)
	}
	if err := ws.store.Set(keyArtists, string(data)); err != nil {
		return fmt.Errorf("failed to save working set: %w", err)
	}
	return nil
}

// List returns a copy of the artists in insertion order
func (ws *WorkingSet) List() []models.Artist {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return append([]models.Artist(nil), ws.artists...)
}

func (ws *WorkingSet) Len() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return len(ws.artists)
}

// Find returns the artist with the given ID
func (ws *WorkingSet) Find(id string) (models.Artist, bool) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for _, a := range ws.artists {
		if a.ID == id {
			return a, true
		}
	}
	return models.Artist{}, false
}

// Add appends a unless an artist with the same name is already present.
// It reports whether the set changed.
func (ws *WorkingSet) Add(a models.Artist) (bool, error) {
	if a.ID == "" || a.Name == "" {
		return false, fmt.Errorf("%w: artist needs an ID and a name", shared.ErrInvalidInput)
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()

	for _, existing := range ws.artists {
		if existing.Name == a.Name {
			return false, nil
		}
	}

	ws.artists = append(ws.artists, a)
	if err := ws.save(); err != nil {
		ws.artists = ws.artists[:len(ws.artists)-1]
		return false, err
	}
	return true, nil
}

// Remove deletes the artist with the given ID and returns it
func (ws *WorkingSet) Remove(id string) (models.Artist, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	for i, a := range ws.artists {
		if a.ID != id {
			continue
		}

		prev := ws.artists
		ws.artists = append(append([]models.Artist{}, prev[:i]...), prev[i+1:]...)
		if err := ws.save(); err != nil {
			ws.artists = prev
			return models.Artist{}, err
		}
		return a, nil
	}

	ws.logger.Error("artist ID not found in working set", "id", id)
	return models.Artist{}, fmt.Errorf("%w: %s", shared.ErrArtistNotFound, id)
}

// Clear empties the working set
func (ws *WorkingSet) Clear() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	prev := ws.artists
	ws.artists = []models.Artist{}
	if err := ws.save(); err != nil {
		ws.artists = prev
		return err
	}
	return nil
}

// LastInput returns the text most recently passed to [WorkingSet.AddFromInput]
func (ws *WorkingSet) LastInput() (string, error) {
	v, _, err := ws.store.Get(keyLastInput)
	if err != nil {
		return "", fmt.Errorf("failed to read last input: %w", err)
	}
	return v, nil
}

// AddFromInput resolves the artist IDs or links in input with one batch lookup and adds each artist found.
//
// The cleaned input is remembered for [WorkingSet.LastInput]. Unknown IDs are logged and skipped.
// The returned slice holds only the artists that were newly added.
func (ws *WorkingSet) AddFromInput(ctx context.Context, lookup ArtistLookup, input string) ([]models.Artist, error) {
	ids := ParseArtistInput(input)
	if err := ws.store.Set(keyLastInput, strings.Join(ids, ",")); err != nil {
		ws.logger.Warn("could not remember artist input", "error", err)
	}

	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no artist IDs in %q", shared.ErrInvalidInput, input)
	}
	if len(ids) > maxLookup {
		return nil, fmt.Errorf("%w: at most %d artists per lookup", shared.ErrInvalidInput, maxLookup)
	}

	found, err := lookup.GetArtistsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	added := make([]models.Artist, 0, len(found))
	for i, fa := range found {
		if fa == nil {
			id := ""
			if i < len(ids) {
				id = ids[i]
			}
			ws.logger.Warn("artist not found", "id", id)
			continue
		}

		a := FromFull(fa)
		ok, err := ws.Add(a)
		if err != nil {
			return added, err
		}
		if ok {
			added = append(added, a)
		}
	}

	if !anyKnown(found) {
		return nil, fmt.Errorf("%w: %s", shared.ErrArtistNotFound, strings.Join(ids, ","))
	}
	return added, nil
}

func anyKnown(found []*spotify.FullArtist) bool {
	for _, fa := range found {
		if fa != nil {
			return true
		}
	}
	return false
}

// ParseArtistInput extracts artist IDs from a comma or whitespace separated list of IDs, artist links or artist URIs.
//
// Duplicates are dropped and order is kept.
func ParseArtistInput(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t' || r == '\r'
	})

	seen := make(map[string]bool, len(fields))
	ids := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimPrefix(f, artistURLPrefix)
		f = strings.TrimPrefix(f, artistURIPrefix)
		if i := strings.IndexAny(f, "?#/"); i >= 0 {
			f = f[:i]
		}
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		ids = append(ids, f)
	}
	return ids
}

// FromFull converts an API artist into a working set entry
func FromFull(fa *spotify.FullArtist) models.Artist {
	return models.Artist{
		ID:         fa.ID.String(),
		Name:       fa.Name,
		URI:        string(fa.URI),
		Genres:     fa.Genres,
		Popularity: int(fa.Popularity),
		Followers:  int(fa.Followers.Count),
	}
}
