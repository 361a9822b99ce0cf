package tui

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/xvierd/kage-cli/internal/config"
	"github.com/xvierd/kage-cli/internal/domain"
	"github.com/xvierd/kage-cli/internal/services"
)

// RunTimeline shows the timeline view until the user quits or ctx ends.
func RunTimeline(ctx context.Context, svc *services.TimelineService, toasts *ToastBuffer, theme *config.ThemeConfig, date string) error {
	return run(ctx, NewTimelineModel(ctx, svc, toasts, theme, date))
}

// RunTodos shows the todo view until the user quits or ctx ends.
func RunTodos(ctx context.Context, svc *services.TodoService, toasts *ToastBuffer, theme *config.ThemeConfig, tab domain.Tab) error {
	return run(ctx, NewTodosModel(ctx, svc, toasts, theme, tab))
}

func run(ctx context.Context, model tea.Model) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(model, tea.WithAltScreen())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		program.Quit()
	}()

	_, err := program.Run()
	cancel()
	wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}
