package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/sptool/internal/shared"
	"github.com/urfave/cli/v3"
)

// ArtistsAdd resolves artist IDs, links or URIs and adds them to the working set.
func (r *Runner) ArtistsAdd(ctx context.Context, cmd *cli.Command) error {
	input := strings.Join(cmd.Args().Slice(), ",")
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("%w: at least one artist ID or link", shared.ErrMissingArgument)
	}

	if err := r.requireSession(ctx); err != nil {
		return err
	}

	r.logger.Info("looking up artists", "input", input)

	added, err := r.artists.AddFromInput(ctx, r.spotify, input)
	if err != nil {
		return err
	}

	if len(added) == 0 {
		return r.writePlain("No new artists added; the working set already has them\n")
	}
	for _, a := range added {
		r.writePlain("✓ Added %s (%s)\n", a.Name, a.ID)
	}
	return r.writePlain("\nWorking set: %d artists\n", r.artists.Len())
}

// ArtistsRemove removes one artist by ID after confirmation.
func (r *Runner) ArtistsRemove(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: artist ID", shared.ErrMissingArgument)
	}

	if err := r.open(); err != nil {
		return err
	}

	artist, ok := r.artists.Find(id)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrArtistNotFound, id)
	}

	if !cmd.Bool("yes") {
		confirmed, err := r.confirm(fmt.Sprintf("Remove %s from the working set?", artist.Name))
		if err != nil {
			return err
		}
		if !confirmed {
			return r.writePlain("Cancelled\n")
		}
	}

	if _, err := r.artists.Remove(id); err != nil {
		return err
	}
	return r.writePlain("✓ Removed %s\n", artist.Name)
}

// ArtistsClear empties the working set after confirmation.
func (r *Runner) ArtistsClear(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	count := r.artists.Len()
	if count == 0 {
		return r.writePlain("Working set is already empty\n")
	}

	if !cmd.Bool("yes") {
		confirmed, err := r.confirm(fmt.Sprintf("Remove all %d artists from the working set?", count))
		if err != nil {
			return err
		}
		if !confirmed {
			return r.writePlain("Cancelled\n")
		}
	}

	if err := r.artists.Clear(); err != nil {
		return err
	}
	return r.writePlain("✓ Cleared %d artists\n", count)
}

// ArtistsList prints the working set.
func (r *Runner) ArtistsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	artists := r.artists.List()
	if cmd.Bool("json") {
		return r.writeJSON(artists, cmd.Bool("pretty"))
	}

	if len(artists) == 0 {
		return r.writePlain("Working set is empty. Add artists with: sptool artists add <id or link>\n")
	}

	r.writePlain("Working set (%d artists):\n\n", len(artists))
	for i, a := range artists {
		r.writePlain("%d. %s\n", i+1, a.Name)
		r.writePlain("   ID: %s\n", a.ID)
		if len(a.Genres) > 0 {
			r.writePlain("   Genres: %s\n", strings.Join(a.Genres, ", "))
		}
	}
	return nil
}
