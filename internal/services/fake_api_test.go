package services

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xvierd/kage-cli/internal/adapters/storage"
	"github.com/xvierd/kage-cli/internal/domain"
	"github.com/xvierd/kage-cli/internal/ports"
)

var errBoom = errors.New("boom")

// fakeAPI is an in-memory LifeAPI that counts calls and can be told to fail.
type fakeAPI struct {
	mu sync.Mutex

	events     map[string][]domain.Event
	eventTypes []domain.EventType
	todos      []domain.Todo
	nextID     int

	failEvents     bool
	failEventTypes bool
	failCreate     bool
	failUpdate     bool
	failDelete     bool
	failTodos      bool
	failStatus     bool
	failTodoDelete bool

	calls map[string]int
	tabs  []domain.Tab
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		events: map[string][]domain.Event{},
		nextID: 100,
		calls:  map[string]int{},
	}
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeAPI) ListEvents(_ context.Context, date string) ([]domain.Event, error) {
	f.hit("ListEvents")
	if f.failEvents {
		return nil, errBoom
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Event(nil), f.events[date]...), nil
}

func (f *fakeAPI) ListEventTypes(context.Context) ([]domain.EventType, error) {
	f.hit("ListEventTypes")
	if f.failEventTypes {
		return nil, errBoom
	}
	return f.eventTypes, nil
}

func (f *fakeAPI) CreateEvent(_ context.Context, title, startTime string) (map[string]any, error) {
	f.hit("CreateEvent")
	if f.failCreate {
		return nil, errBoom
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return map[string]any{"id": f.nextID, "title": title, "start_time": startTime}, nil
}

func (f *fakeAPI) UpdateEvent(_ context.Context, id string, patch domain.EventPatch) (map[string]any, error) {
	f.hit("UpdateEvent")
	if f.failUpdate {
		return nil, errBoom
	}
	payload := map[string]any{"id": id}
	for k, v := range patch.Fields() {
		payload[k] = v
	}
	return payload, nil
}

func (f *fakeAPI) DeleteEvent(context.Context, string) error {
	f.hit("DeleteEvent")
	if f.failDelete {
		return errBoom
	}
	return nil
}

func (f *fakeAPI) ListTodos(_ context.Context, tab domain.Tab) (*ports.TodoPage, error) {
	f.hit("ListTodos")
	f.mu.Lock()
	f.tabs = append(f.tabs, tab)
	f.mu.Unlock()
	if f.failTodos {
		return nil, errBoom
	}
	items := append([]domain.Todo(nil), f.todos...)
	if tab != domain.TabAll {
		items = domain.FilterTodos(items, tab, "2024-05-10")
	}
	return &ports.TodoPage{Items: items, Stats: domain.ComputeStats(items)}, nil
}

func (f *fakeAPI) SetTodoStatus(_ context.Context, id string, done bool) (domain.Todo, error) {
	f.hit("SetTodoStatus")
	if f.failStatus {
		return domain.Todo{}, errBoom
	}
	for _, t := range f.todos {
		if t.ID == id {
			if done {
				t.MarkDone(time.Date(2024, 5, 10, 9, 0, 0, 0, time.Local))
			} else {
				t.Undo()
			}
			return t, nil
		}
	}
	return domain.Todo{}, domain.ErrTodoNotFound
}

func (f *fakeAPI) DeleteTodo(context.Context, string) error {
	f.hit("DeleteTodo")
	if f.failTodoDelete {
		return errBoom
	}
	return nil
}

func (f *fakeAPI) CreateTodo(_ context.Context, title, deadlineDate string, priority int) (domain.Todo, error) {
	f.hit("CreateTodo")
	if f.failCreate {
		return domain.Todo{}, errBoom
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return domain.Todo{
		ID:           strconv.Itoa(f.nextID),
		Title:        title,
		DeadlineDate: deadlineDate,
		Priority:     priority,
	}, nil
}

// recordingNotifier keeps every toast it was asked to show.
type recordingNotifier struct {
	mu     sync.Mutex
	toasts []string
}

func (n *recordingNotifier) Toast(_ ports.Level, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toasts = append(n.toasts, msg)
}

func (n *recordingNotifier) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.toasts) == 0 {
		return ""
	}
	return n.toasts[len(n.toasts)-1]
}

// testClock is a settable clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 5, 10, 9, 0, 0, 0, time.Local)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setupTestStorage(t *testing.T) ports.CacheStore {
	t.Helper()
	store, err := storage.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testOptions(clock *testClock, notifier ports.Notifier) Options {
	return Options{Now: clock.Now, Notifier: notifier}
}
