package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"
)

type runView struct {
	ID            string     `json:"id"`
	Sequence      int        `json:"sequence"`
	PlaylistName  string     `json:"playlist_name"`
	PlaylistID    string     `json:"playlist_id,omitempty"`
	Status        string     `json:"status"`
	Artists       int        `json:"artists"`
	Albums        int        `json:"albums"`
	Tracks        int        `json:"tracks"`
	ChunksWritten int        `json:"chunks_written"`
	Error         string     `json:"error,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// History lists recorded playlist builds, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	runs, err := r.runs.List(map[string]any{
		"status": cmd.String("status"),
		"limit":  int(cmd.Int("limit")),
	})
	if err != nil {
		return err
	}

	views := make([]runView, len(runs))
	for i, run := range runs {
		views[i] = runView{
			ID:            run.ID(),
			Sequence:      run.Sequence(),
			PlaylistName:  run.PlaylistName(),
			PlaylistID:    run.PlaylistID(),
			Status:        run.Status(),
			Artists:       run.ArtistsTotal(),
			Albums:        run.AlbumsTotal(),
			Tracks:        run.TracksTotal(),
			ChunksWritten: run.ChunksWritten(),
			Error:         run.ErrorMessage(),
			StartedAt:     run.StartedAt(),
			CompletedAt:   run.CompletedAt(),
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(views, cmd.Bool("pretty"))
	}

	if len(views) == 0 {
		return r.writePlain("No builds recorded yet\n")
	}

	for _, v := range views {
		r.writePlain("#%d %s [%s]\n", v.Sequence, v.PlaylistName, v.Status)
		r.writePlain("   Artists: %d  Albums: %d  Tracks: %d  Chunks: %d\n", v.Artists, v.Albums, v.Tracks, v.ChunksWritten)
		if v.PlaylistID != "" {
			r.writePlain("   Playlist: https://open.spotify.com/playlist/%s\n", v.PlaylistID)
		}
		if v.StartedAt != nil {
			r.writePlain("   Started: %s\n", v.StartedAt.Local().Format(time.DateTime))
		}
		if v.Error != "" {
			r.writePlain("   Error: %s\n", v.Error)
		}
	}
	return nil
}
