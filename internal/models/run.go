package models

import (
	"fmt"
	"time"
)

// Build run statuses
const (
	RunPending   = "pending"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// BuildRun records a single playlist build: who ran it, what it produced and how far it got.
type BuildRun struct {
	id            string
	sequence      int
	userID        string
	playlistName  string
	playlistID    string
	status        string
	artistsTotal  int
	albumsTotal   int
	tracksTotal   int
	chunksWritten int
	errorMessage  string
	startedAt     *time.Time
	completedAt   *time.Time
	createdAt     time.Time
	updatedAt     time.Time
	deletedAt     *time.Time
}

// NewBuildRun creates a pending [BuildRun] for userID targeting a playlist named playlistName
func NewBuildRun(sequence int, userID, playlistName string) *BuildRun {
	now := time.Now()
	return &BuildRun{
		sequence:     sequence,
		userID:       userID,
		playlistName: playlistName,
		status:       RunPending,
		createdAt:    now,
		updatedAt:    now,
	}
}

func (r *BuildRun) ID() string { return r.id }
func (r *BuildRun) Sequence() int { return r.sequence }
func (r *BuildRun) UserID() string { return r.userID }
func (r *BuildRun) PlaylistName() string { return r.playlistName }
func (r *BuildRun) PlaylistID() string { return r.playlistID }
func (r *BuildRun) Status() string { return r.status }
func (r *BuildRun) ArtistsTotal() int { return r.artistsTotal }
func (r *BuildRun) AlbumsTotal() int { return r.albumsTotal }
func (r *BuildRun) TracksTotal() int { return r.tracksTotal }
func (r *BuildRun) ChunksWritten() int { return r.chunksWritten }
func (r *BuildRun) ErrorMessage() string { return r.errorMessage }
func (r *BuildRun) StartedAt() *time.Time { return r.startedAt }
func (r *BuildRun) CompletedAt() *time.Time { return r.completedAt }
func (r *BuildRun) CreatedAt() time.Time { return r.createdAt }
func (r *BuildRun) UpdatedAt() time.Time { return r.updatedAt }
func (r *BuildRun) DeletedAt() *time.Time { return r.deletedAt }

func (r *BuildRun) SetID(id string) { r.id = id }
func (r *BuildRun) SetSequence(sequence int) { r.sequence = sequence }
func (r *BuildRun) SetPlaylistID(id string) { r.playlistID = id }
func (r *BuildRun) SetStatus(status string) { r.status = status }
func (r *BuildRun) SetArtistsTotal(n int) { r.artistsTotal = n }
func (r *BuildRun) SetAlbumsTotal(n int) { r.albumsTotal = n }
func (r *BuildRun) SetTracksTotal(n int) { r.tracksTotal = n }
func (r *BuildRun) SetChunksWritten(n int) { r.chunksWritten = n }
func (r *BuildRun) SetErrorMessage(msg string) { r.errorMessage = msg }
func (r *BuildRun) SetStartedAt(t *time.Time) { r.startedAt = t }
func (r *BuildRun) SetCompletedAt(t *time.Time) { r.completedAt = t }
func (r *BuildRun) SetCreatedAt(t time.Time) { r.createdAt = t }
func (r *BuildRun) SetUpdatedAt(t time.Time) { r.updatedAt = t }
func (r *BuildRun) SetDeletedAt(t *time.Time) { r.deletedAt = t }

// Start marks the run as running
func (r *BuildRun) Start(at time.Time) {
	r.status = RunRunning
	r.startedAt = &at
}

// Complete marks the run as completed
func (r *BuildRun) Complete(at time.Time) {
	r.status = RunCompleted
	r.completedAt = &at
}

// Fail marks the run as failed with the given error
func (r *BuildRun) Fail(at time.Time, err error) {
	r.status = RunFailed
	r.completedAt = &at
	if err != nil {
		r.errorMessage = err.Error()
	}
}

// Validate checks that the run has the fields required for persistence
func (r *BuildRun) Validate() error {
	if r.id == "" {
		return fmt.Errorf("run ID is required")
	}
	if r.userID == "" {
		return fmt.Errorf("user ID is required")
	}
	if r.playlistName == "" {
		return fmt.Errorf("playlist name is required")
	}
	switch r.status {
	case RunPending, RunRunning, RunCompleted, RunFailed:
	default:
		return fmt.Errorf("invalid run status: %q", r.status)
	}
	if r.artistsTotal < 0 || r.albumsTotal < 0 || r.tracksTotal < 0 || r.chunksWritten < 0 {
		return fmt.Errorf("run counters cannot be negative")
	}
	return nil
}
