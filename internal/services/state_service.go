package services

import (
	"context"
	"errors"

	"github.com/xvierd/kage-cli/internal/domain"
	"github.com/xvierd/kage-cli/internal/ports"
)

// ErrServiceUnavailable is returned when a required service was not wired.
var ErrServiceUnavailable = errors.New("service not configured")

// StateService implements the MCPStateProvider interface on top of the
// timeline and todo services.
type StateService struct {
	timeline *TimelineService
	todos    *TodoService
}

// NewStateService creates a new state service.
func NewStateService() *StateService {
	return &StateService{}
}

// SetTimelineService sets the service used for event operations.
func (s *StateService) SetTimelineService(timeline *TimelineService) {
	s.timeline = timeline
}

// SetTodoService sets the service used for todo operations.
func (s *StateService) SetTodoService(todos *TodoService) {
	s.todos = todos
}

// ListEvents implements ports.MCPStateProvider.
func (s *StateService) ListEvents(ctx context.Context, date string) ([]domain.Section, error) {
	if s.timeline == nil {
		return nil, ErrServiceUnavailable
	}
	if date == "" {
		date = s.timeline.opts.today()
	}
	events, err := s.timeline.Lookup(ctx, date, false)
	if err != nil {
		return nil, err
	}
	return domain.BucketEvents(events), nil
}

// AddEvent implements ports.MCPStateProvider.
func (s *StateService) AddEvent(ctx context.Context, title, clock string) (domain.Event, error) {
	if s.timeline == nil {
		return domain.Event{}, ErrServiceUnavailable
	}
	return s.timeline.Add(ctx, title, clock)
}

// DeleteEvent implements ports.MCPStateProvider.
func (s *StateService) DeleteEvent(ctx context.Context, id string) error {
	if s.timeline == nil {
		return ErrServiceUnavailable
	}
	return s.timeline.Delete(ctx, id)
}

// ListEventTypes implements ports.MCPStateProvider.
func (s *StateService) ListEventTypes(ctx context.Context) ([]string, error) {
	if s.timeline == nil {
		return nil, ErrServiceUnavailable
	}
	if err := s.timeline.LoadEventTypes(ctx, false); err != nil {
		return nil, err
	}
	return s.timeline.Presets(), nil
}

// ListTodos implements ports.MCPStateProvider.
func (s *StateService) ListTodos(ctx context.Context, tab domain.Tab) ([]domain.Todo, domain.TodoStats, error) {
	if s.todos == nil {
		return nil, domain.TodoStats{}, ErrServiceUnavailable
	}
	if err := s.todos.Open(ctx, tab, false); err != nil {
		return nil, domain.TodoStats{}, err
	}
	return s.todos.Items(), s.todos.Stats(), nil
}

// CreateTodo implements ports.MCPStateProvider.
func (s *StateService) CreateTodo(ctx context.Context, title, deadlineDate string, priority int) (domain.Todo, error) {
	if s.todos == nil {
		return domain.Todo{}, ErrServiceUnavailable
	}
	return s.todos.Create(ctx, title, deadlineDate, priority)
}

// SetTodoDone implements ports.MCPStateProvider.
func (s *StateService) SetTodoDone(ctx context.Context, id string, done bool) (domain.Todo, error) {
	todo, err := s.findTodo(ctx, id)
	if err != nil {
		return domain.Todo{}, err
	}
	return s.todos.SetDone(ctx, todo.ID, done)
}

// DeleteTodo implements ports.MCPStateProvider.
func (s *StateService) DeleteTodo(ctx context.Context, id string) error {
	todo, err := s.findTodo(ctx, id)
	if err != nil {
		return err
	}
	return s.todos.Delete(ctx, todo.ID)
}

// findTodo resolves id against the full list, loading it when needed.
func (s *StateService) findTodo(ctx context.Context, id string) (domain.Todo, error) {
	if s.todos == nil {
		return domain.Todo{}, ErrServiceUnavailable
	}
	if todo, err := s.todos.Resolve(id); err == nil {
		return todo, nil
	}
	if err := s.todos.Open(ctx, domain.TabAll, false); err != nil {
		return domain.Todo{}, err
	}
	return s.todos.Resolve(id)
}

// Ensure StateService implements MCPStateProvider.
var _ ports.MCPStateProvider = (*StateService)(nil)
