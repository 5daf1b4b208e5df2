package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a playlist build.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase   // Operation phase
	Step    int     // Current step number within phase
	Total   int     // Total steps in this phase
	Percent float64 // Overall build progress, 0 to 100
	Message string  // Human-readable message for display
	Data    any     // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchAlbums Phase = iota
	FetchTracks
	CreatePlaylist
	AddTracks
	Complete
	Aborted
)

func (p Phase) String() string {
	switch p {
	case FetchAlbums:
		return "fetch_albums"
	case FetchTracks:
		return "fetch_tracks"
	case CreatePlaylist:
		return "create_playlist"
	case AddTracks:
		return "add_tracks"
	case Complete:
		return "complete"
	case Aborted:
		return "aborted"
	default:
		return ""
	}
}

func fetchAlbumsUpdate(step, total int, percent float64, artist string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchAlbums,
		Step:    step,
		Total:   total,
		Percent: percent,
		Message: fmt.Sprintf("[%d/%d] Fetching albums for %s...", step, total, artist),
	}
}

func fetchTracksUpdate(step, total int, percent float64, album string, tracks int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    step,
		Total:   total,
		Percent: percent,
		Message: fmt.Sprintf("[%d/%d] %s (%d tracks so far)", step, total, album, tracks),
	}
}

func createPlaylistUpdate(percent float64, name string, tracks int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Percent: percent,
		Message: fmt.Sprintf("Creating playlist %q with %d tracks...", name, tracks),
	}
}

func addTracksUpdate(step, total int, percent float64, written int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    step,
		Total:   total,
		Percent: percent,
		Message: fmt.Sprintf("[%d/%d] Added %d tracks", step, total, written),
	}
}

func completeUpdate(result *BuildResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    1,
		Total:   1,
		Percent: 100,
		Message: fmt.Sprintf("Playlist %q ready (%d tracks)", result.PlaylistName, len(result.URIs)),
		Data:    result,
	}
}

func abortedUpdate(percent float64, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Aborted,
		Percent: percent,
		Message: fmt.Sprintf("Build aborted: %v", err),
		Data:    err,
	}
}
