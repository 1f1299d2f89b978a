package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/monthlify/internal/shared"
	"github.com/desertthunder/monthlify/internal/tasks"
	"github.com/desertthunder/monthlify/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal client over the local playlist engine.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Logs go to a file so they don't tear the terminal rendering.
	fileLogger, err := shared.NewFileLogger("./tmp/monthlify-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.config.Log.Level)
	r.SetLogger(fileLogger)

	recorder, closeDB := r.recorder()
	defer closeDB()

	progress := make(chan tasks.ProgressUpdate, 64)
	backend, err := r.localBackend(ctx, recorder, progress)
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, backend, progress)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
