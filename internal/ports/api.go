package ports

import (
	"context"

	"github.com/xvierd/kage-cli/internal/domain"
)

// TodoPage is one response of the todo listing.
type TodoPage struct {
	Items []domain.Todo
	Stats domain.TodoStats
}

// LifeAPI is the remote life-log service.
// This is a driven port (implemented by the HTTP adapter).
type LifeAPI interface {
	// ListEvents returns the events of a YYYY-MM-DD date.
	ListEvents(ctx context.Context, date string) ([]domain.Event, error)

	// ListEventTypes returns the quick-add presets.
	ListEventTypes(ctx context.Context) ([]domain.EventType, error)

	// CreateEvent records an event for today and returns the server payload.
	CreateEvent(ctx context.Context, title, startTime string) (map[string]any, error)

	// UpdateEvent applies a partial update and returns the server payload.
	UpdateEvent(ctx context.Context, id string, patch domain.EventPatch) (map[string]any, error)

	// DeleteEvent removes an event. A missing event is not an error.
	DeleteEvent(ctx context.Context, id string) error

	// ListTodos returns the todos of a tab along with server-side stats.
	ListTodos(ctx context.Context, tab domain.Tab) (*TodoPage, error)

	// SetTodoStatus marks a todo done (true) or open (false).
	SetTodoStatus(ctx context.Context, id string, done bool) (domain.Todo, error)

	// DeleteTodo removes a todo.
	DeleteTodo(ctx context.Context, id string) error

	// CreateTodo creates a todo and returns the stored item.
	CreateTodo(ctx context.Context, title, deadlineDate string, priority int) (domain.Todo, error)
}
