package main

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/sptool/internal/shared"
	"github.com/desertthunder/sptool/internal/ui"
	"github.com/urfave/cli/v3"
)

const tuiLogPath = "./tmp/sptool-tui.log"

// TUI launches the interactive terminal UI.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(tuiLogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)
	r.output = io.Discard

	if err := r.open(); err != nil {
		return err
	}

	if _, err := r.flow.Resume(ctx); err != nil {
		r.logger.Warn("saved session could not be restored", "error", err)
	}

	model := ui.NewModel(ctx, ui.ModelOpts{
		Session: r.flow,
		Artists: r.artists,
		Lookup:  r.spotify,
		Builder: r.builder,
		Login: func(ctx context.Context) error {
			return r.login(ctx, loginTimeout)
		},
		Profile: r.profile,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
