package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/spotigest/internal/models"
	"github.com/desertthunder/spotigest/internal/tasks"
	"github.com/desertthunder/spotigest/internal/ui"
)

// runMonitor shows the live monitor until the user quits or ctx is cancelled.
func (r *Runner) runMonitor(ctx context.Context, controller ui.Controller, updates <-chan tasks.StatusUpdate, history []*models.DispatchRecord) error {
	model := ui.NewModel(ctx, controller, updates, history)
	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) || isCancelled(err) {
			return nil
		}
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
