package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"

	"github.com/xvierd/kage-cli/internal/domain"
	"github.com/xvierd/kage-cli/internal/ports"
)

// TodoService keeps the todo list of the todo view. In client mode it
// holds the full list and filters by tab locally; in server-filter mode it
// holds whatever the server returned for the current tab.
type TodoService struct {
	api      ports.LifeAPI
	todos    *Loader[domain.Todo]
	opts     Options
	notifier ports.Notifier
	logger   *zap.Logger

	mu      sync.Mutex
	tab     domain.Tab
	items   []domain.Todo
	stats   domain.TodoStats
	loading bool
	errMsg  string
}

// NewTodoService creates a todo service on the "all" tab.
func NewTodoService(api ports.LifeAPI, cache ports.CacheStore, opts Options) *TodoService {
	opts = opts.withDefaults()
	return &TodoService{
		api:      api,
		todos:    NewLoader[domain.Todo](cache, opts.TTL, opts.Now, opts.Logger),
		opts:     opts,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		tab:      domain.TabAll,
		items:    []domain.Todo{},
	}
}

// Tab returns the selected tab.
func (s *TodoService) Tab() domain.Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tab
}

// Loading reports whether a fetch is in flight.
func (s *TodoService) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// ErrorMessage returns the inline error of the last load, if any.
func (s *TodoService) ErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// Items returns the todos of the selected tab in display order.
func (s *TodoService) Items() []domain.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visibleLocked()
}

// Stats returns the counters shown above the list.
func (s *TodoService) Stats() domain.TodoStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opts.ServerFilter {
		return s.stats
	}
	return domain.ComputeStats(s.visibleLocked())
}

// StatText returns the summary line of the selected tab.
func (s *TodoService) StatText() string {
	return domain.StatText(s.Tab(), s.Stats())
}

// Open selects tab and loads its todos through the cache.
func (s *TodoService) Open(ctx context.Context, tab domain.Tab, force bool) error {
	s.mu.Lock()
	s.tab = tab
	s.errMsg = ""
	s.mu.Unlock()

	if s.opts.ServerFilter && tab != domain.TabAll {
		return s.openServerTab(ctx, tab)
	}

	var stats *domain.TodoStats
	res := s.todos.Load(ctx, domain.TodoCacheKey, force, func(ctx context.Context) ([]domain.Todo, error) {
		s.setLoading(true)
		page, err := s.api.ListTodos(ctx, domain.TabAll)
		if err != nil {
			return nil, err
		}
		stats = &page.Stats
		return page.Items, nil
	}, func(cached []domain.Todo) {
		s.mu.Lock()
		s.items = cached
		if s.opts.ServerFilter {
			s.stats = domain.ComputeStats(cached)
		}
		s.mu.Unlock()
	})
	s.setLoading(false)

	if res.Err != nil {
		return s.loadFailed(res.Err)
	}
	if res.Fetched {
		s.mu.Lock()
		s.items = res.Items
		if stats != nil {
			s.stats = *stats
		}
		s.mu.Unlock()
	}
	return nil
}

func (s *TodoService) openServerTab(ctx context.Context, tab domain.Tab) error {
	s.setLoading(true)
	page, err := s.api.ListTodos(ctx, tab)
	s.setLoading(false)
	if err != nil {
		return s.loadFailed(err)
	}

	s.mu.Lock()
	// Last response wins, but only for the tab it was requested for.
	if s.tab == tab {
		s.items = page.Items
		s.stats = page.Stats
	}
	s.mu.Unlock()
	return nil
}

func (s *TodoService) loadFailed(err error) error {
	s.logger.Error("load todos failed", zap.Error(err))
	msg := failureText(err, msgLoadFailed)
	s.mu.Lock()
	s.errMsg = msg
	s.mu.Unlock()
	s.notifier.Toast(ports.LevelError, msg)
	return fmt.Errorf("failed to load todos: %w", err)
}

// SetDone marks a todo done or open. The list changes first; a failed
// request puts the previous item back.
func (s *TodoService) SetDone(ctx context.Context, id string, done bool) (domain.Todo, error) {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return domain.Todo{}, fmt.Errorf("%w: %s", domain.ErrTodoNotFound, id)
	}
	prev := s.items[idx]
	if prev.IsPending() {
		s.mu.Unlock()
		return domain.Todo{}, domain.ErrPending
	}
	next := prev
	if done {
		next.MarkDone(s.opts.Now())
	} else {
		next.Undo()
	}
	s.items[idx] = next
	s.mu.Unlock()
	s.mirror(ctx, next, false)

	saved, err := s.api.SetTodoStatus(ctx, id, done)
	if err != nil {
		s.replace(id, prev)
		s.mirror(ctx, prev, false)
		s.logger.Error("set todo status failed", zap.String("id", id), zap.Bool("done", done), zap.Error(err))
		s.notifier.Toast(ports.LevelError, failureText(err, msgActionFailed))
		return domain.Todo{}, fmt.Errorf("failed to update todo: %w", err)
	}

	saved.Normalize()
	s.replace(id, saved)
	s.mirror(ctx, saved, false)
	return saved, nil
}

// Delete removes a todo. A failed request reinserts it where it was.
func (s *TodoService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrTodoNotFound, id)
	}
	removed := s.items[idx]
	if removed.IsPending() {
		s.mu.Unlock()
		return domain.ErrPending
	}
	s.items = slices.Delete(slices.Clone(s.items), idx, idx+1)
	s.mu.Unlock()
	s.mirror(ctx, removed, true)

	if err := s.api.DeleteTodo(ctx, id); err != nil {
		s.mu.Lock()
		at := min(idx, len(s.items))
		s.items = slices.Insert(slices.Clone(s.items), at, removed)
		s.mu.Unlock()
		s.mirror(ctx, removed, false)
		s.logger.Error("delete todo failed", zap.String("id", id), zap.Error(err))
		s.notifier.Toast(ports.LevelError, failureText(err, msgDeleteFailed))
		return fmt.Errorf("failed to delete todo: %w", err)
	}

	s.notifier.Toast(ports.LevelSuccess, msgDeleted)
	return nil
}

// Create adds a placeholder todo, then replaces it with the stored item or
// removes it when the request fails.
func (s *TodoService) Create(ctx context.Context, title, deadlineDate string, priority int) (domain.Todo, error) {
	pending, err := domain.NewPendingTodo(title, deadlineDate, priority)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyTitle) {
			s.notifier.Toast(ports.LevelError, msgEmptyTitle)
		}
		return domain.Todo{}, err
	}

	s.mu.Lock()
	s.items = append(s.items, pending)
	s.mu.Unlock()

	saved, err := s.api.CreateTodo(ctx, pending.Title, pending.DeadlineDate, pending.Priority)
	if err != nil {
		s.mu.Lock()
		if idx := s.indexLocked(pending.ID); idx >= 0 {
			s.items = slices.Delete(slices.Clone(s.items), idx, idx+1)
		}
		s.mu.Unlock()
		s.logger.Error("create todo failed", zap.String("title", pending.Title), zap.Error(err))
		s.notifier.Toast(ports.LevelError, failureText(err, msgSaveFailed))
		return domain.Todo{}, fmt.Errorf("failed to create todo: %w", err)
	}

	saved.Normalize()
	s.replace(pending.ID, saved)
	s.mirror(ctx, saved, false)
	s.notifier.Toast(ports.LevelSuccess, msgSaved)
	return saved, nil
}

// Resolve finds a todo by id, falling back to a fuzzy title match over the
// loaded list. Refs that look like ids never fall back, and a title must
// have a single best match.
func (s *TodoService) Resolve(ref string) (domain.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.indexLocked(ref); idx >= 0 {
		return s.items[idx], nil
	}
	if looksLikeID(ref) {
		return domain.Todo{}, fmt.Errorf("%w: no todo with id %s", domain.ErrTodoNotFound, ref)
	}

	titles := make([]string, len(s.items))
	for i, t := range s.items {
		titles[i] = t.Title
	}
	matches := fuzzy.Find(ref, titles)
	if len(matches) == 0 {
		return domain.Todo{}, fmt.Errorf("%w: %q", domain.ErrTodoNotFound, ref)
	}
	if len(matches) > 1 && matches[1].Score == matches[0].Score {
		return domain.Todo{}, fmt.Errorf("%w: %q matches %q and %q",
			domain.ErrAmbiguousTodo, ref, matches[0].Str, matches[1].Str)
	}
	return s.items[matches[0].Index], nil
}

func looksLikeID(ref string) bool {
	if domain.IsTempID(ref) {
		return true
	}
	_, err := strconv.Atoi(ref)
	return err == nil
}

func (s *TodoService) visibleLocked() []domain.Todo {
	items := s.items
	if !s.opts.ServerFilter {
		items = domain.FilterTodos(items, s.tab, s.opts.today())
	}
	return domain.SortTodos(items)
}

func (s *TodoService) indexLocked(id string) int {
	return slices.IndexFunc(s.items, func(t domain.Todo) bool { return t.ID == id })
}

func (s *TodoService) replace(id string, todo domain.Todo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexLocked(id); idx >= 0 {
		s.items[idx] = todo
	}
}

// mirror brings the cached full list in line with a local change. When
// the in-memory list is the full list it is written as is; otherwise the
// single item is patched into the cached copy.
func (s *TodoService) mirror(ctx context.Context, todo domain.Todo, removed bool) {
	s.mu.Lock()
	full := !s.opts.ServerFilter || s.tab == domain.TabAll
	items := slices.Clone(s.items)
	s.mu.Unlock()

	if full {
		s.todos.Save(ctx, domain.TodoCacheKey, confirmedOnly(items))
		return
	}

	cached, _, ok := s.todos.Cached(ctx, domain.TodoCacheKey)
	if !ok {
		return
	}
	idx := slices.IndexFunc(cached, func(t domain.Todo) bool { return t.ID == todo.ID })
	switch {
	case removed && idx >= 0:
		cached = slices.Delete(cached, idx, idx+1)
	case removed:
		return
	case idx >= 0:
		cached[idx] = todo
	default:
		cached = append(cached, todo)
	}
	s.todos.Save(ctx, domain.TodoCacheKey, cached)
}

// confirmedOnly drops placeholders so the cache never holds temporary ids.
func confirmedOnly(todos []domain.Todo) []domain.Todo {
	return slices.DeleteFunc(todos, func(t domain.Todo) bool { return t.IsPending() })
}

func (s *TodoService) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}
