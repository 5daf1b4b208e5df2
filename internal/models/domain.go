package models

import (
	"time"
)

// Session is the persisted OAuth2 token pair.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64     // Lifetime in seconds as reported at issue time
	ExpiresAt    time.Time // Absolute expiry: issue time + ExpiresIn
}

// Expired reports whether the session is past its absolute expiry at now.
//
// A zero ExpiresAt never expires.
func (s Session) Expired(now time.Time) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return now.After(s.ExpiresAt)
}

// Profile is the cached profile of the authenticated user.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Country     string `json:"country"`
	Product     string `json:"product"`
}

// Artist is an entry of the working set.
type Artist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	URI        string   `json:"uri"`
	Genres     []string `json:"genres,omitempty"`
	Popularity int      `json:"popularity,omitempty"`
	Followers  int      `json:"followers,omitempty"`
}

// Track is a track collected during a playlist build.
type Track struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	URI     string `json:"uri"`
	Artists string `json:"artists"`
	Album   string `json:"album"`
	AlbumID string `json:"album_id"`
}

// PlaylistRequest describes the playlist a build writes.
type PlaylistRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	TrackURIs   []string `json:"track_uris"`
}

// PlaylistExport is a built playlist together with the tracks written to it.
type PlaylistExport struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Tracks      []Track `json:"tracks"`
}
