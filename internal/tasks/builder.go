package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sptool/internal/models"
	"github.com/desertthunder/sptool/internal/shared"
	"github.com/zmb3/spotify/v2"
)

const (
	// ChunkSize is the number of URIs written per add-tracks call
	ChunkSize = 100
	// FetchCeiling is the share of overall progress given to the fetch phase
	FetchCeiling = 75.0

	DefaultPlaylistName = "Spotify Tool"
	DefaultDescription  = "Playlist generated through Spotify Tool."
)

var (
	ErrNoArtists      = errors.New("working set is empty")
	ErrNoAlbums       = errors.New("artist has no albums")
	ErrNoTracks       = errors.New("no tracks collected")
	ErrCreatePlaylist = errors.New("failed to create playlist")
	ErrAddTracks      = errors.New("failed to add tracks to playlist")
)

// DedupeMode selects the key used to drop repeated tracks
type DedupeMode string

const (
	DedupeByName DedupeMode = "name"
	DedupeByID   DedupeMode = "id"
)

// Catalog is the part of the Web API the builder drives.
type Catalog interface {
	ListArtistAlbums(ctx context.Context, artistID, cursor string) (*spotify.SimpleAlbumPage, error)
	ListAlbumTracks(ctx context.Context, albumID, cursor string) (*spotify.SimpleTrackPage, error)
	CreatePlaylist(ctx context.Context, userID, name, description string) (*spotify.FullPlaylist, error)
	AddTracksToPlaylist(ctx context.Context, playlistID string, uris []string) (string, error)
}

// RunRecorder persists build history. [repositories.RunRepository] implements it.
type RunRecorder interface {
	Create(run *models.BuildRun) error
	Update(run *models.BuildRun) error
}

// BuilderOpts configures a [Builder]
type BuilderOpts struct {
	Catalog     Catalog
	Recorder    RunRecorder // Optional
	Logger      *log.Logger
	Name        string     // Playlist name; defaults to [DefaultPlaylistName]
	Description string     // Description prefix; the artist names follow in parentheses
	Dedupe      DedupeMode // Defaults to [DedupeByName]
	Now         func() time.Time
}

// BuildResult describes a finished (or partially finished) build.
type BuildResult struct {
	RunID         string
	PlaylistID    string
	PlaylistName  string
	Description   string
	Tracks        []models.Track
	URIs          []string
	ArtistsTotal  int
	AlbumsTotal   int
	ChunksWritten int
}

// Request returns the playlist request the build produced
func (r *BuildResult) Request() models.PlaylistRequest {
	return models.PlaylistRequest{Name: r.PlaylistName, Description: r.Description, TrackURIs: r.URIs}
}

// Export returns the playlist and its collected tracks for the formatter
func (r *BuildResult) Export() *models.PlaylistExport {
	return &models.PlaylistExport{
		ID:          r.PlaylistID,
		Name:        r.PlaylistName,
		Description: r.Description,
		Tracks:      r.Tracks,
	}
}

// Builder orchestrates a playlist build. Only one build runs at a time.
type Builder struct {
	catalog     Catalog
	recorder    RunRecorder
	logger      *log.Logger
	name        string
	description string
	dedupe      DedupeMode
	now         func() time.Time
	busy        atomic.Bool
}

// NewBuilder creates a [Builder]
func NewBuilder(opts BuilderOpts) (*Builder, error) {
	if opts.Catalog == nil {
		return nil, fmt.Errorf("%w: catalog is required", shared.ErrServiceUnavailable)
	}

	b := &Builder{
		catalog:     opts.Catalog,
		recorder:    opts.Recorder,
		logger:      opts.Logger,
		name:        opts.Name,
		description: opts.Description,
		dedupe:      opts.Dedupe,
		now:         opts.Now,
	}

	if b.logger == nil {
		b.logger = shared.NewLogger(nil)
	}
	if b.name == "" {
		b.name = DefaultPlaylistName
	}
	if b.description == "" {
		b.description = DefaultDescription
	}
	switch b.dedupe {
	case "":
		b.dedupe = DedupeByName
	case DedupeByName, DedupeByID:
	default:
		return nil, fmt.Errorf("%w: unknown dedupe mode %q", shared.ErrInvalidArgument, b.dedupe)
	}
	if b.now == nil {
		b.now = time.Now
	}

	return b, nil
}

// Busy reports whether a build is in flight
func (b *Builder) Busy() bool { return b.busy.Load() }

// sendProgress sends a progress update through the channel without blocking.
func (b *Builder) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Describe builds the playlist description: the prefix followed by the artist names, comma-separated, in parentheses.
func Describe(prefix string, artists []models.Artist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	if len(names) == 0 {
		return prefix
	}
	if prefix == "" {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s (%s)", prefix, strings.Join(names, ", "))
}

// TrackURI maps a track ID onto its URI
func TrackURI(id string) string {
	return "spotify:track:" + id
}

// Chunk splits uris into consecutive slices of at most size elements
func Chunk(uris []string, size int) [][]string {
	if size <= 0 || len(uris) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(uris)+size-1)/size)
	for start := 0; start < len(uris); start += size {
		chunks = append(chunks, uris[start:min(start+size, len(uris))])
	}
	return chunks
}

// Build collects every track of every album of every artist, de-duplicates them and writes one private playlist owned by userID.
//
// Artists are processed in order and first-seen tracks win, so the working set order is the playlist order.
// Every abort is logged and returned as an error wrapping one of the package sentinels; the result
// is returned alongside the error whenever a playlist was created.
func (b *Builder) Build(ctx context.Context, artists []models.Artist, userID string, progress chan<- ProgressUpdate) (*BuildResult, error) {
	if !b.busy.CompareAndSwap(false, true) {
		return nil, shared.ErrBusy
	}
	defer b.busy.Store(false)

	if len(artists) == 0 {
		b.logger.Error("cannot build a playlist from an empty working set")
		return nil, ErrNoArtists
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user ID", shared.ErrMissingArgument)
	}

	result := &BuildResult{
		PlaylistName: b.name,
		Description:  Describe(b.description, artists),
		ArtistsTotal: len(artists),
		Tracks:       make([]models.Track, 0),
	}

	run := b.startRun(userID, result)
	if run != nil {
		result.RunID = run.ID()
	}

	percent, err := b.build(ctx, artists, userID, result, progress)
	if err != nil {
		b.sendProgress(progress, abortedUpdate(percent, err))
		b.finishRun(run, result, err)
		if result.PlaylistID == "" {
			return nil, err
		}
		return result, err
	}

	b.finishRun(run, result, nil)
	b.sendProgress(progress, completeUpdate(result))
	b.logger.Info("playlist built", "playlist", result.PlaylistID, "tracks", len(result.URIs), "chunks", result.ChunksWritten)
	return result, nil
}

// build runs the pipeline and reports the last progress value reached
func (b *Builder) build(ctx context.Context, artists []models.Artist, userID string, result *BuildResult, progress chan<- ProgressUpdate) (float64, error) {
	var percent float64
	seen := make(map[string]struct{})
	total := len(artists)

	for i, artist := range artists {
		logger := b.logger.With("artist", artist.Name)
		b.sendProgress(progress, fetchAlbumsUpdate(i+1, total, percent, artist.Name))

		albums, err := Drain(ctx, logger, b.albumPages(artist.ID), nil)
		if err := ctx.Err(); err != nil {
			return percent, err
		}
		if err != nil || len(albums) == 0 {
			abort := fmt.Errorf("%w: %s", ErrNoAlbums, artist.Name)
			if err != nil {
				abort = fmt.Errorf("%w: %s: %w", ErrNoAlbums, artist.Name, err)
			}
			logger.Error("no albums found, aborting build", "error", err)
			return percent, abort
		}
		result.AlbumsTotal += len(albums)

		for j, album := range albums {
			tracks, err := Drain(ctx, logger, b.trackPages(album.ID.String()), b.keepFirst(seen))
			if err := ctx.Err(); err != nil {
				return percent, err
			}
			if err != nil {
				logger.Warn("could not list album tracks, skipping", "album", album.Name, "error", err)
			}

			for _, t := range tracks {
				result.Tracks = append(result.Tracks, toTrack(t, album))
			}

			percent = (float64(i) + float64(j+1)/float64(len(albums))) / float64(total) * FetchCeiling
			b.sendProgress(progress, fetchTracksUpdate(j+1, len(albums), percent, album.Name, len(result.Tracks)))
		}
	}

	if len(result.Tracks) == 0 {
		b.logger.Error("no tracks collected, aborting build")
		return percent, ErrNoTracks
	}

	result.URIs = make([]string, 0, len(result.Tracks))
	for _, t := range result.Tracks {
		result.URIs = append(result.URIs, t.URI)
	}

	b.sendProgress(progress, createPlaylistUpdate(percent, result.PlaylistName, len(result.URIs)))
	playlist, err := b.catalog.CreatePlaylist(ctx, userID, result.PlaylistName, result.Description)
	if err != nil || playlist == nil {
		b.logger.Error("playlist creation failed, aborting build", "error", err)
		if err == nil {
			return percent, ErrCreatePlaylist
		}
		return percent, fmt.Errorf("%w: %w", ErrCreatePlaylist, err)
	}
	result.PlaylistID = playlist.ID.String()

	chunks := Chunk(result.URIs, ChunkSize)
	written := 0
	for k, chunk := range chunks {
		if _, err := b.catalog.AddTracksToPlaylist(ctx, result.PlaylistID, chunk); err != nil {
			b.logger.Error("track write failed, playlist left partially populated",
				"playlist", result.PlaylistID, "chunk", k+1, "chunks", len(chunks), "error", err)
			return percent, fmt.Errorf("%w: chunk %d/%d: %w", ErrAddTracks, k+1, len(chunks), err)
		}
		written += len(chunk)
		result.ChunksWritten++

		percent = FetchCeiling + float64(k+1)/float64(len(chunks))*(100-FetchCeiling)
		b.sendProgress(progress, addTracksUpdate(k+1, len(chunks), percent, written))
	}

	return percent, nil
}

func (b *Builder) albumPages(artistID string) PageFunc[spotify.SimpleAlbum] {
	return func(ctx context.Context, cursor string) (*Page[spotify.SimpleAlbum], error) {
		page, err := b.catalog.ListArtistAlbums(ctx, artistID, cursor)
		if err != nil {
			return nil, err
		}
		if page == nil {
			return nil, nil
		}
		return &Page[spotify.SimpleAlbum]{Items: page.Albums, Next: page.Next}, nil
	}
}

func (b *Builder) trackPages(albumID string) PageFunc[spotify.SimpleTrack] {
	return func(ctx context.Context, cursor string) (*Page[spotify.SimpleTrack], error) {
		page, err := b.catalog.ListAlbumTracks(ctx, albumID, cursor)
		if err != nil {
			return nil, err
		}
		if page == nil {
			return nil, nil
		}
		return &Page[spotify.SimpleTrack]{Items: page.Tracks, Next: page.Next}, nil
	}
}

// keepFirst returns a predicate that accepts a track the first time its key is seen across the whole run
func (b *Builder) keepFirst(seen map[string]struct{}) func(spotify.SimpleTrack) bool {
	return func(t spotify.SimpleTrack) bool {
		key := t.Name
		if b.dedupe == DedupeByID {
			key = t.ID.String()
		}
		if _, ok := seen[key]; ok {
			return false
		}
		seen[key] = struct{}{}
		return true
	}
}

func toTrack(t spotify.SimpleTrack, album spotify.SimpleAlbum) models.Track {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return models.Track{
		ID:      t.ID.String(),
		Name:    t.Name,
		URI:     TrackURI(t.ID.String()),
		Artists: strings.Join(names, ", "),
		Album:   album.Name,
		AlbumID: album.ID.String(),
	}
}

func (b *Builder) startRun(userID string, result *BuildResult) *models.BuildRun {
	if b.recorder == nil {
		return nil
	}

	run := models.NewBuildRun(0, userID, result.PlaylistName)
	run.Start(b.now())
	run.SetArtistsTotal(result.ArtistsTotal)
	if err := b.recorder.Create(run); err != nil {
		b.logger.Warn("could not record build run", "error", err)
		return nil
	}
	return run
}

func (b *Builder) finishRun(run *models.BuildRun, result *BuildResult, err error) {
	if run == nil {
		return
	}

	run.SetPlaylistID(result.PlaylistID)
	run.SetAlbumsTotal(result.AlbumsTotal)
	run.SetTracksTotal(len(result.Tracks))
	run.SetChunksWritten(result.ChunksWritten)
	if err != nil {
		run.Fail(b.now(), err)
	} else {
		run.Complete(b.now())
	}

	if uerr := b.recorder.Update(run); uerr != nil {
		b.logger.Warn("could not update build run", "run_id", run.ID(), "error", uerr)
	}
}
