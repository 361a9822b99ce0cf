package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xvierd/kage-cli/internal/adapters/api"
	"github.com/xvierd/kage-cli/internal/adapters/storage"
	"github.com/xvierd/kage-cli/internal/domain"
	"github.com/xvierd/kage-cli/internal/ports"
	"github.com/xvierd/kage-cli/internal/services"
)

const testDate = "2024-05-10"

// lifeServer serves a fixed day and todo list until it is taken offline.
type lifeServer struct {
	offline    atomic.Bool
	failWrites atomic.Bool
	eventHits  atomic.Int32
	mu         sync.Mutex
	todos      []map[string]any
}

func newLifeServer(t *testing.T) (*lifeServer, *api.Client) {
	t.Helper()
	ls := &lifeServer{todos: []map[string]any{
		{"id": 1, "title": "Renew passport", "is_done": 0, "priority": 3, "deadline_date": testDate},
		{"id": 2, "title": "Buy milk", "is_done": 0, "priority": 2},
	}}
	srv := httptest.NewServer(ls)
	t.Cleanup(srv.Close)
	return ls, api.NewClient(srv.URL, 2*time.Second, nil)
}

func (ls *lifeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if ls.offline.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	if r.Method == http.MethodPost && ls.failWrites.Load() {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	var body any
	status := http.StatusOK
	switch {
	case r.URL.Path == "/events/":
		ls.eventHits.Add(1)
		body = map[string]any{"events": []any{
			map[string]any{"id": 10, "title": "Coffee", "start_time": "08:15"},
			map[string]any{"id": 11, "title": "Dinner", "start_time": "19:00"},
		}}
	case r.URL.Path == "/event_types/":
		body = map[string]any{"event_types": []any{
			map[string]any{"id": 1, "type_name": "coffee", "description": "Coffee"},
		}}
	case r.URL.Path == "/todos/":
		ls.mu.Lock()
		body = map[string]any{"items": ls.todos, "stats": map[string]any{"total": len(ls.todos)}}
		ls.mu.Unlock()
	case r.URL.Path == "/todos/create/":
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		req["id"] = 3
		req["is_done"] = 0
		body, status = map[string]any{"item": req}, http.StatusCreated
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// setupTestStorage creates a temporary database for integration tests
func setupTestStorage(t *testing.T, dbPath string) ports.CacheStore {
	t.Helper()

	store, err := storage.New(dbPath)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	if err := store.Migrate(); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return store
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 5, 10, 9, 0, 0, 0, time.Local)}
}

// TestCacheSurvivesRestart reopens the database with the server down and
// expects the last fetched day to be shown.
func TestCacheSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "kage.db")
	server, client := newLifeServer(t)
	clk := newClock()
	opts := services.Options{TTL: time.Minute, Now: clk.Now}

	store := setupTestStorage(t, dbPath)
	timeline := services.NewTimelineService(client, store, opts)
	if err := timeline.Open(ctx, testDate, false); err != nil {
		t.Fatalf("failed to open day: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close storage: %v", err)
	}

	server.offline.Store(true)
	store = setupTestStorage(t, dbPath)
	defer store.Close()

	timeline = services.NewTimelineService(client, store, opts)
	if !timeline.ShowCached(ctx, testDate) {
		t.Fatal("expected a cache entry after restart")
	}
	if got := len(timeline.Events()); got != 2 {
		t.Fatalf("expected 2 cached events, got %d", got)
	}

	// A forced refresh fails but keeps what is shown.
	if err := timeline.Open(ctx, testDate, true); err == nil {
		t.Fatal("expected refresh to fail while offline")
	}
	if got := len(timeline.Events()); got != 2 {
		t.Errorf("expected cached events to stay, got %d", got)
	}
	if timeline.ErrorMessage() == "" {
		t.Error("expected an inline error message")
	}
}

// TestFetchSkippedWithinTTL checks that a fresh cache entry saves a
// round trip and a stale one triggers it.
func TestFetchSkippedWithinTTL(t *testing.T) {
	ctx := context.Background()
	server, client := newLifeServer(t)
	clk := newClock()
	store := setupTestStorage(t, filepath.Join(t.TempDir(), "kage.db"))
	defer store.Close()

	timeline := services.NewTimelineService(client, store, services.Options{TTL: time.Minute, Now: clk.Now})

	for i := 0; i < 3; i++ {
		if err := timeline.Open(ctx, testDate, false); err != nil {
			t.Fatalf("open %d failed: %v", i, err)
		}
	}
	if got := server.eventHits.Load(); got != 1 {
		t.Fatalf("expected 1 fetch within TTL, got %d", got)
	}

	clk.Advance(2 * time.Minute)
	if err := timeline.Open(ctx, testDate, false); err != nil {
		t.Fatalf("open after TTL failed: %v", err)
	}
	if got := server.eventHits.Load(); got != 2 {
		t.Errorf("expected a refetch after TTL, got %d fetches", got)
	}
}

// TestFailedCreateLeavesNoPlaceholder covers the rollback of an
// optimistic todo create in memory and on disk.
func TestFailedCreateLeavesNoPlaceholder(t *testing.T) {
	ctx := context.Background()
	server, client := newLifeServer(t)
	store := setupTestStorage(t, filepath.Join(t.TempDir(), "kage.db"))
	defer store.Close()

	todos := services.NewTodoService(client, store, services.Options{Now: newClock().Now})
	if err := todos.Open(ctx, domain.TabAll, false); err != nil {
		t.Fatalf("failed to open todos: %v", err)
	}

	server.failWrites.Store(true)
	if _, err := todos.Create(ctx, "Water plants", "", 0); err == nil {
		t.Fatal("expected create to fail")
	}
	for _, todo := range todos.Items() {
		if todo.IsPending() || todo.Title == "Water plants" {
			t.Fatalf("placeholder left in list: %+v", todo)
		}
	}

	server.failWrites.Store(false)
	saved, err := todos.Create(ctx, "Water plants", testDate, domain.PriorityHigh)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if saved.ID != "3" {
		t.Errorf("expected server id 3, got %q", saved.ID)
	}

	// The cache mirrors the saved item only.
	reloaded := services.NewTodoService(client, store, services.Options{TTL: time.Hour, Now: newClock().Now})
	server.offline.Store(true)
	if err := reloaded.Open(ctx, domain.TabAll, false); err != nil {
		t.Fatalf("failed to open cached todos: %v", err)
	}
	count := 0
	for _, todo := range reloaded.Items() {
		if todo.IsPending() {
			t.Errorf("cached placeholder: %+v", todo)
		}
		if todo.Title == "Water plants" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected the saved todo cached once, got %d", count)
	}
}

// TestFailedToggleRollsBack keeps the todo open when the server rejects it.
func TestFailedToggleRollsBack(t *testing.T) {
	ctx := context.Background()
	server, client := newLifeServer(t)
	store := setupTestStorage(t, filepath.Join(t.TempDir(), "kage.db"))
	defer store.Close()

	todos := services.NewTodoService(client, store, services.Options{Now: newClock().Now})
	if err := todos.Open(ctx, domain.TabAll, false); err != nil {
		t.Fatalf("failed to open todos: %v", err)
	}

	server.failWrites.Store(true)
	if _, err := todos.SetDone(ctx, "2", true); err == nil {
		t.Fatal("expected toggle to fail")
	}
	todo, err := todos.Resolve("2")
	if err != nil {
		t.Fatalf("todo 2 missing: %v", err)
	}
	if todo.Done() {
		t.Error("expected todo 2 to be open again")
	}
}

// TestSyncThenOffline fills the cache in one sync and reads every view
// from it with the server gone.
func TestSyncThenOffline(t *testing.T) {
	ctx := context.Background()
	server, client := newLifeServer(t)
	store := setupTestStorage(t, filepath.Join(t.TempDir(), "kage.db"))
	defer store.Close()

	opts := services.Options{TTL: time.Hour, Now: newClock().Now}
	report, err := services.NewSyncService(client, store, opts).Sync(ctx, testDate)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if report.Events != 2 || report.EventTypes != 1 || report.Todos != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}

	server.offline.Store(true)

	timeline := services.NewTimelineService(client, store, opts)
	if err := timeline.Open(ctx, testDate, false); err != nil {
		t.Fatalf("open day offline failed: %v", err)
	}
	if err := timeline.LoadEventTypes(ctx, false); err != nil {
		t.Fatalf("load event types offline failed: %v", err)
	}
	if got := timeline.Presets(); len(got) != 1 || got[0] != "Coffee" {
		t.Errorf("unexpected presets: %v", got)
	}

	todos := services.NewTodoService(client, store, opts)
	if err := todos.Open(ctx, domain.TabToday, false); err != nil {
		t.Fatalf("open todos offline failed: %v", err)
	}
	items := todos.Items()
	if len(items) != 1 || items[0].Title != "Renew passport" {
		t.Errorf("unexpected today tab: %+v", items)
	}
}
