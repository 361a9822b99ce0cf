package ports

import (
	"context"

	"github.com/xvierd/kage-cli/internal/domain"
)

// MCPHandler defines the interface for MCP server operations.
// This is a driving port (called by the application layer).
type MCPHandler interface {
	// Start begins serving MCP requests.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the server.
	Stop() error

	// IsRunning returns true if the server is active.
	IsRunning() bool
}

// MCPStateProvider exposes timeline and todo operations to the MCP server.
// This is a driven port (implemented by the services layer).
type MCPStateProvider interface {
	ListEvents(ctx context.Context, date string) ([]domain.Section, error)
	AddEvent(ctx context.Context, title, clock string) (domain.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	ListEventTypes(ctx context.Context) ([]string, error)
	ListTodos(ctx context.Context, tab domain.Tab) ([]domain.Todo, domain.TodoStats, error)
	CreateTodo(ctx context.Context, title, deadlineDate string, priority int) (domain.Todo, error)
	SetTodoDone(ctx context.Context, id string, done bool) (domain.Todo, error)
	DeleteTodo(ctx context.Context, id string) error
}
