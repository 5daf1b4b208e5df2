// Spotify Web API client
//
// Response types come from github.com/zmb3/spotify/v2, see https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sptool/internal/shared"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.spotify.com/v1"

	// MaxTracksPerRequest is the provider's cap on URIs per add-tracks call
	MaxTracksPerRequest = 100
	// MaxArtistsPerRequest is the provider's cap on IDs per several-artists call
	MaxArtistsPerRequest = 50
	pageLimit            = 50
)

// SpotifyOpts configures a [SpotifyClient]
type SpotifyOpts struct {
	BaseURL           string
	Session           SessionSource
	HTTPClient        *http.Client
	RequestsPerSecond float64 // Zero or less disables pacing
	Logger            *log.Logger
}

// SpotifyClient is a thin client over the Spotify Web API.
//
// Every call reads the bearer token from its [SessionSource] at call time.
type SpotifyClient struct {
	client
}

// NewSpotifyClient creates a [SpotifyClient]
func NewSpotifyClient(opts SpotifyOpts) (*SpotifyClient, error) {
	if opts.Session == nil {
		return nil, fmt.Errorf("%w: session source is required", shared.ErrInvalidArgument)
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &SpotifyClient{client{
		baseURL:    baseURL,
		httpClient: httpClient,
		session:    opts.Session,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
	}}, nil
}

// GetProfile retrieves the current user's profile.
func (s *SpotifyClient) GetProfile(ctx context.Context) (*spotify.PrivateUser, error) {
	var user spotify.PrivateUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetArtist retrieves a single artist by ID.
func (s *SpotifyClient) GetArtist(ctx context.Context, id string) (*spotify.FullArtist, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: artist ID", shared.ErrMissingArgument)
	}

	var artist spotify.FullArtist
	if err := s.doRequest(ctx, http.MethodGet, "/artists/"+url.PathEscape(id), nil, &artist); err != nil {
		return nil, err
	}
	return &artist, nil
}

// GetArtistsByIDs retrieves up to 50 artists in one call.
//
// Unknown IDs come back as nil entries in the position of the ID.
func (s *SpotifyClient) GetArtistsByIDs(ctx context.Context, ids []string) ([]*spotify.FullArtist, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no artist IDs provided", shared.ErrMissingArgument)
	}
	if len(ids) > MaxArtistsPerRequest {
		return nil, fmt.Errorf("%w: maximum %d artist IDs allowed", shared.ErrInvalidArgument, MaxArtistsPerRequest)
	}

	endpoint := "/artists?ids=" + url.QueryEscape(strings.Join(ids, ","))

	var response struct {
		Artists []*spotify.FullArtist `json:"artists"`
	}
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}
	return response.Artists, nil
}

// ListArtistAlbums returns one page of an artist's albums and singles.
//
// An empty cursor requests the first page; otherwise the cursor is the previous page's next URL.
func (s *SpotifyClient) ListArtistAlbums(ctx context.Context, artistID, cursor string) (*spotify.SimpleAlbumPage, error) {
	target := cursor
	if target == "" {
		q := url.Values{}
		q.Set("include_groups", "single,album")
		q.Set("limit", fmt.Sprint(pageLimit))
		target = "/artists/" + url.PathEscape(artistID) + "/albums?" + q.Encode()
	}

	var page spotify.SimpleAlbumPage
	if err := s.doRequest(ctx, http.MethodGet, target, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ListAlbumTracks returns one page of an album's tracks.
func (s *SpotifyClient) ListAlbumTracks(ctx context.Context, albumID, cursor string) (*spotify.SimpleTrackPage, error) {
	target := cursor
	if target == "" {
		target = fmt.Sprintf("/albums/%s/tracks?limit=%d", url.PathEscape(albumID), pageLimit)
	}

	var page spotify.SimpleTrackPage
	if err := s.doRequest(ctx, http.MethodGet, target, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreatePlaylist creates a private playlist owned by userID.
func (s *SpotifyClient) CreatePlaylist(ctx context.Context, userID, name, description string) (*spotify.FullPlaylist, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user ID", shared.ErrMissingArgument)
	}

	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      false,
	}

	var playlist spotify.FullPlaylist
	endpoint := "/users/" + url.PathEscape(userID) + "/playlists"
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// AddTracksToPlaylist appends up to 100 track URIs to a playlist and returns the new snapshot ID.
func (s *SpotifyClient) AddTracksToPlaylist(ctx context.Context, playlistID string, uris []string) (string, error) {
	if len(uris) == 0 {
		return "", fmt.Errorf("%w: no track URIs provided", shared.ErrMissingArgument)
	}
	if len(uris) > MaxTracksPerRequest {
		return "", fmt.Errorf("%w: maximum %d track URIs allowed, got %d", shared.ErrInvalidArgument, MaxTracksPerRequest, len(uris))
	}

	body := map[string]any{"uris": uris}

	var response struct {
		SnapshotID string `json:"snapshot_id"`
	}
	endpoint := "/playlists/" + url.PathEscape(playlistID) + "/tracks"
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &response); err != nil {
		return "", err
	}
	return response.SnapshotID, nil
}
