// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/sptool/internal/formatter"
	"github.com/urfave/cli/v3"
)

// setupCommand handles setup operations.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create a config template if needed, initialize the database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles the Spotify session
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the Spotify session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with Spotify through the browser (Authorization Code + PKCE)",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser callback",
						Value: loginTimeout,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "logout",
				Usage: "Clear the session, cached profile and working set",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Skip the confirmation prompt",
					},
				},
				Action: r.AuthLogout,
			},
			{
				Name:   "refresh",
				Usage:  "Exchange the refresh token for a new access token",
				Action: r.AuthRefresh,
			},
			{
				Name:  "status",
				Usage: "Show the saved session state",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

// artistsCommand manages the working set
func artistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "artists",
		Aliases: []string{"artist", "a"},
		Usage:   "Manage the artists a playlist is built from",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add artists by ID, open.spotify.com link or spotify:artist: URI",
				ArgsUsage: "<id or link>[,<id or link>...]",
				Action:    r.ArtistsAdd,
			},
			{
				Name:    "remove",
				Aliases: []string{"rm"},
				Usage:   "Remove one artist by ID",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Skip the confirmation prompt",
					},
				},
				Action: r.ArtistsRemove,
			},
			{
				Name:  "clear",
				Usage: "Remove every artist",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Skip the confirmation prompt",
					},
				},
				Action: r.ArtistsClear,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List the working set",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.ArtistsList,
			},
		},
	}
}

// playlistCommand handles playlist builds
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlist",
		Usage: "Playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "build",
				Usage: "Build a private playlist from every album track of the working set",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "export",
						Aliases: []string{"o"},
						Usage:   "Also write the collected tracks to this file",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (json, csv, md, txt)",
						Value:   string(formatter.FormatJSON),
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the resulting playlist as JSON",
					},
					&cli.BoolFlag{
						Name:    "quiet",
						Aliases: []string{"q"},
						Usage:   "Only print the final progress line",
					},
				},
				Action: r.PlaylistBuild,
			},
		},
	}
}

// historyCommand lists recorded builds
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recorded playlist builds",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of builds to show",
				Value: 20,
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only show builds with this status (pending, running, completed, failed)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.History,
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive TUI",
		Action:  r.TUI,
	}
}
