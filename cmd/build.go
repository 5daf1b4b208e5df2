package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/sptool/internal/formatter"
	"github.com/desertthunder/sptool/internal/tasks"
	"github.com/urfave/cli/v3"
)

// PlaylistBuild builds one private playlist from every album track of every artist in the working set.
func (r *Runner) PlaylistBuild(ctx context.Context, cmd *cli.Command) error {
	exportPath := cmd.String("export")
	var format formatter.Format
	if exportPath != "" || cmd.IsSet("format") {
		f, err := formatter.ParseFormat(cmd.String("format"))
		if err != nil {
			return err
		}
		format = f
	}

	if err := r.requireSession(ctx); err != nil {
		return err
	}

	p, err := r.profile(ctx)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	artists := r.artists.List()
	if len(artists) == 0 {
		return fmt.Errorf("%w: add artists with 'sptool artists add' first", tasks.ErrNoArtists)
	}

	r.writePlainHeader(fmt.Sprintf("Building playlist from %d artists", len(artists)))

	quiet := cmd.Bool("quiet")
	progress := make(chan tasks.ProgressUpdate, 64)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for update := range progress {
			if quiet && update.Phase != tasks.Complete && update.Phase != tasks.Aborted {
				continue
			}
			r.writePlain("[%5.1f%%] %s\n", update.Percent, update.Message)
		}
	}()

	result, buildErr := r.builder.Build(ctx, artists, p.ID, progress)
	close(progress)
	<-printed

	if result != nil && format != "" {
		path, err := formatter.WriteExport(result.Export(), format, exportPath)
		if err != nil {
			r.logger.Error("export failed", "error", err)
		} else {
			r.writePlain("✓ Tracks exported to %s\n", path)
		}
	}

	if buildErr != nil {
		if result != nil {
			r.writePlain("⚠ Playlist %s was created but only %d chunks were written\n", result.PlaylistID, result.ChunksWritten)
		}
		return buildErr
	}

	if cmd.Bool("json") {
		return r.writeJSON(result.Request(), true)
	}

	r.writePlainln("✓ Playlist ready")
	r.writePlain("  Name: %s\n", result.PlaylistName)
	r.writePlain("  Description: %s\n", result.Description)
	r.writePlain("  Albums: %d\n", result.AlbumsTotal)
	r.writePlain("  Tracks: %d\n", len(result.URIs))
	return r.writePlain("  Link: https://open.spotify.com/playlist/%s\n", result.PlaylistID)
}
