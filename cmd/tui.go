package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pathum-vimukthi/bookvault/internal/form"
	"github.com/pathum-vimukthi/bookvault/internal/library"
	"github.com/pathum-vimukthi/bookvault/internal/shared"
	"github.com/pathum-vimukthi/bookvault/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive dashboard.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	view, err := library.ParseView(r.config.Display.DefaultView)
	if err != nil {
		return err
	}
	sortKey, err := library.ParseSort(r.config.Display.DefaultSort)
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, logFile, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer logFile.Close()
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	if err := r.authenticated(ctx); err != nil {
		return err
	}

	model := ui.NewModel(ctx, ui.Config{
		Books:   r.api,
		Form:    form.New(r.api, fileLogger),
		Library: r.library,
		Guard:   r.session.Guard,
		Filter:  library.Filter{View: view, Sort: sortKey},
		Logger:  fileLogger,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	if m, ok := final.(*ui.Model); ok && m.Err() != nil {
		return m.Err()
	}
	return nil
}
