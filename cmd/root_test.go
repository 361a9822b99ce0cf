package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xvierd/kage-cli/internal/domain"
)

const testDate = "2024-05-10"

// executeCmd is a helper to execute a cobra command in tests
func executeCmd(cmd *cobra.Command, args ...string) (stdout string, stderr string, err error) {
	bufOut := new(bytes.Buffer)
	bufErr := new(bytes.Buffer)

	cmd.SetOut(bufOut)
	cmd.SetErr(bufErr)
	cmd.SetArgs(args)

	err = cmd.Execute()
	return bufOut.String(), bufErr.String(), err
}

// resetFlags puts every flag of c and its children back to its default,
// since cobra keeps flag state in package globals between runs.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// fakeServer is an in-memory life-log API.
type fakeServer struct {
	mu       sync.Mutex
	statuses map[string]int
	created  map[string]any
	deleted  []string
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	mux.HandleFunc("GET /events/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"events": []any{
			map[string]any{"id": 1, "title": "Coffee", "start_time": "08:15:00"},
			map[string]any{"id": 2, "title": "Lunch", "start_time": "12:30"},
		}})
	})
	mux.HandleFunc("GET /event_types/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"event_types": []any{
			map[string]any{"id": 1, "type_name": "coffee", "description": "Coffee"},
			map[string]any{"id": 2, "type_name": "nap", "description": ""},
		}})
	})
	mux.HandleFunc("GET /events/create/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{
			"id":         3,
			"title":      r.URL.Query().Get("title"),
			"start_time": r.URL.Query().Get("start_time"),
		})
	})
	mux.HandleFunc("POST /events/{id}/update/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		payload := map[string]any{"id": r.PathValue("id"), "title": "Lunch", "start_time": "12:30"}
		for k, v := range body {
			payload[k] = v
		}
		writeJSON(w, http.StatusOK, payload)
	})
	mux.HandleFunc("POST /events/{id}/delete/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.deleted = append(f.deleted, "event:"+r.PathValue("id"))
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	mux.HandleFunc("GET /todos/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"items": []any{
				map[string]any{"id": 1, "title": "Renew passport", "is_done": 0, "priority": 3, "deadline_date": "2024-05-12"},
				map[string]any{"id": 2, "title": "Buy milk", "is_done": 1, "priority": 2, "done_at": "2024-05-10 08:00:00"},
			},
			"stats": map[string]any{"total": 2, "done": 1, "todo": 1},
		})
	})
	mux.HandleFunc("POST /todos/{id}/status/", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			IsDone int `json:"is_done"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.statuses[r.PathValue("id")] = body.IsDone
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"item": map[string]any{
			"id": r.PathValue("id"), "title": "Renew passport", "is_done": body.IsDone, "priority": 3,
		}})
	})
	mux.HandleFunc("POST /todos/{id}/delete/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.deleted = append(f.deleted, "todo:"+r.PathValue("id"))
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	mux.HandleFunc("POST /todos/create/{$}", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.created = body
		f.mu.Unlock()
		item := map[string]any{"id": 9, "is_done": 0}
		for k, v := range body {
			item[k] = v
		}
		writeJSON(w, http.StatusCreated, map[string]any{"item": item})
	})
	return mux
}

// kage runs the root command against a fresh fake server, config file and
// cache database.
type kage struct {
	t      *testing.T
	server *fakeServer
	flags  []string
}

func newKage(t *testing.T) *kage {
	t.Helper()
	fake := &fakeServer{statuses: map[string]int{}}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	prev := isTerminal
	isTerminal = func() bool { return false }
	t.Cleanup(func() {
		isTerminal = prev
		resetFlags(rootCmd)
	})

	return &kage{
		t:      t,
		server: fake,
		flags: []string{
			"--config", filepath.Join(dir, "config.toml"),
			"--db", filepath.Join(dir, "kage.db"),
			"--base-url", srv.URL,
		},
	}
}

func (k *kage) run(args ...string) (string, string, error) {
	k.t.Helper()
	resetFlags(rootCmd)
	return executeCmd(rootCmd, append(args, k.flags...)...)
}

func TestRootCmd_Use(t *testing.T) {
	require.NotNil(t, rootCmd)
	assert.Equal(t, "kage", rootCmd.Use)
}

func TestRootCmd_Help(t *testing.T) {
	t.Cleanup(func() { resetFlags(rootCmd) })
	stdout, _, err := executeCmd(rootCmd, "--help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "kage")
}

func TestRootCmd_Flags(t *testing.T) {
	for _, name := range []string{"db", "json", "config", "base-url", "log-level"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "--%s should be registered", name)
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"events", "todos", "types", "sync", "export", "cache", "config", "mcp"} {
		assert.True(t, names[want], "missing %s command", want)
	}
}

func TestGetDir(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/home/user/.kage/kage.db", "/home/user/.kage"},
		{"kage.db", "."},
		{"data/kage.db", "data"},
		{`C:\data\kage.db`, `C:\data`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, getDir(tt.path))
		})
	}
}

func TestRoot_PrintsDayWithoutTerminal(t *testing.T) {
	k := newKage(t)
	stdout, _, err := k.run("--date", testDate)
	require.NoError(t, err)
	assert.Contains(t, stdout, testDate)
	assert.Contains(t, stdout, "Morning")
	assert.Contains(t, stdout, "08:15  Coffee  (1)")
	assert.Contains(t, stdout, "Noon")
	assert.Contains(t, stdout, "12:30  Lunch  (2)")
}

func TestRoot_RejectsBadDate(t *testing.T) {
	k := newKage(t)
	_, _, err := k.run("--date", "10/05/2024")
	assert.Error(t, err)
}

func TestEventsList_JSON(t *testing.T) {
	k := newKage(t)
	stdout, _, err := k.run("events", "list", "--date", testDate, "--json")
	require.NoError(t, err)

	var got struct {
		Date     string `json:"date"`
		Sections []struct {
			Key    string            `json:"key"`
			Events []json.RawMessage `json:"events"`
		} `json:"sections"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, testDate, got.Date)
	require.Len(t, got.Sections, 4)
	assert.Equal(t, "morning", got.Sections[0].Key)
	assert.Len(t, got.Sections[0].Events, 1)
	assert.Len(t, got.Sections[1].Events, 1)
	assert.Empty(t, got.Sections[3].Events)
}

func TestEventsAdd(t *testing.T) {
	k := newKage(t)
	stdout, stderr, err := k.run("events", "add", "--time", "18:45", "Gym")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Gym")
	assert.Contains(t, stdout, "(3)")
	assert.Contains(t, stderr, "Saved")
}

func TestEventsAdd_EmptyTitle(t *testing.T) {
	k := newKage(t)
	_, _, err := k.run("events", "add")
	assert.Error(t, err)
}

func TestEventsEdit(t *testing.T) {
	k := newKage(t)
	stdout, _, err := k.run("events", "edit", "2", "--title", "Brunch", "--date", testDate)
	require.NoError(t, err)
	assert.Contains(t, stdout, "12:30  Brunch  (2)")
}

func TestEventsEdit_NothingToChange(t *testing.T) {
	k := newKage(t)
	_, _, err := k.run("events", "edit", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to change")
}

func TestEventsDelete(t *testing.T) {
	k := newKage(t)
	stdout, _, err := k.run("events", "delete", "1", "--date", testDate)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Deleted event 1")
	assert.Contains(t, k.server.deleted, "event:1")
}

func TestEventsQuick(t *testing.T) {
	k := newKage(t)
	stdout, _, err := k.run("events", "quick", "2")
	require.NoError(t, err)
	assert.Contains(t, stdout, "nap")
}

func TestEventsQuick_ListsPresets(t *testing.T) {
	k := newKage(t)
	stdout, _, err := k.run("events", "quick")
	require.NoError(t, err)
	assert.Contains(t, stdout, "1  Coffee")
	assert.Contains(t, stdout, "2  nap")
}

func TestTypes(t *testing.T) {
	k := newKage(t)
	stdout, _, err := k.run("types", "--json")
	require.NoError(t, err)

	var presets []string
	require.NoError(t, json.Unmarshal([]byte(stdout), &presets))
	assert.Equal(t, []string{"Coffee", "nap"}, presets)
}

func TestTodos_PrintsWithoutTerminal(t *testing.T) {
	k := newKage(t)
	stdout, _, err := k.run("todos")
	require.NoError(t, err)
	assert.Contains(t, stdout, "All: 1 to do · 1 done")
	assert.Contains(t, stdout, "[ ] Renew passport")
	assert.Contains(t, stdout, "[x] Buy milk")
}

func TestTodosList_JSON(t *testing.T) {
	k := newKage(t)
	stdout, _, err := k.run("todos", "list", "--tab", "important", "--json")
	require.NoError(t, err)

	var got struct {
		Tab   string `json:"tab"`
		Items []struct {
			Title string `json:"title"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "important", got.Tab)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Renew passport", got.Items[0].Title)
}

func TestTodos_InvalidTab(t *testing.T) {
	k := newKage(t)
	_, _, err := k.run("todos", "list", "--tab", "someday")
	assert.Error(t, err)
}

func TestTodosAdd(t *testing.T) {
	k := newKage(t)
	stdout, _, err := k.run("todos", "add", "Call", "mom", "!1", "--deadline", "2024-06-01", "--json")
	require.NoError(t, err)

	k.server.mu.Lock()
	created := k.server.created
	k.server.mu.Unlock()
	assert.Equal(t, "Call mom", created["title"])
	assert.Equal(t, "2024-06-01", created["deadline_date"])
	assert.EqualValues(t, 1, created["priority"])

	var todo struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &todo))
	assert.Equal(t, "9", todo.ID)
	assert.Equal(t, "Call mom", todo.Title)
}

func TestTodosDone_ByFuzzyTitle(t *testing.T) {
	k := newKage(t)
	stdout, _, err := k.run("todos", "done", "passport")
	require.NoError(t, err)
	assert.Contains(t, stdout, "[x] Renew passport")
	assert.Equal(t, 1, k.server.statuses["1"])
}

func TestTodosUndo_ByID(t *testing.T) {
	k := newKage(t)
	_, _, err := k.run("todos", "undo", "2")
	require.NoError(t, err)
	status, ok := k.server.statuses["2"]
	require.True(t, ok, "status endpoint not called")
	assert.Equal(t, 0, status)
}

func TestTodosDelete(t *testing.T) {
	k := newKage(t)
	stdout, _, err := k.run("todos", "delete", "milk")
	require.NoError(t, err)
	assert.Contains(t, stdout, `Deleted "Buy milk"`)
	assert.Contains(t, k.server.deleted, "todo:2")
}

func TestTodosDone_NotFound(t *testing.T) {
	k := newKage(t)
	_, _, err := k.run("todos", "done", "zzzz")
	assert.Error(t, err)
}

func TestTodosDelete_UnknownIDDeletesNothing(t *testing.T) {
	k := newKage(t)
	_, _, err := k.run("todos", "delete", "42")
	assert.ErrorIs(t, err, domain.ErrTodoNotFound)
	assert.Empty(t, k.server.deleted)
}

func TestSync(t *testing.T) {
	k := newKage(t)
	stdout, _, err := k.run("sync", "--date", testDate)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Synced 2024-05-10: 2 events, 2 event types, 2 todos")

	stdout, _, err = k.run("cache", "ls")
	require.NoError(t, err)
	assert.Contains(t, stdout, "cached_events_2024-05-10")
	assert.Contains(t, stdout, "cached_todos")
	assert.Contains(t, stdout, "cached_event_types")
}

func TestSync_InvalidSchedule(t *testing.T) {
	k := newKage(t)
	_, _, err := k.run("sync", "--watch", "--schedule", "every now and then")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schedule")
}

func TestCacheClear(t *testing.T) {
	k := newKage(t)
	_, _, err := k.run("events", "--date", testDate)
	require.NoError(t, err)

	stdout, _, err := k.run("cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Cleared 1 cache entries")

	stdout, _, err = k.run("cache", "ls")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Cache is empty")
}

func TestExport(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"csv", "Coffee"},
		{"md", "Lunch"},
		{"ics", "BEGIN:VCALENDAR"},
		{"yaml", "Coffee"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			k := newKage(t)
			stdout, _, err := k.run("export", "--format", tt.format, "--date", testDate)
			require.NoError(t, err)
			assert.Contains(t, stdout, tt.want)
		})
	}
}

func TestExport_ToFile(t *testing.T) {
	k := newKage(t)
	path := filepath.Join(t.TempDir(), "week.csv")
	stdout, stderr, err := k.run("export", "--format", "csv", "--date", testDate, "--days", "3", "--out", path)
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, fmt.Sprintf("Exported 3 day(s) to %s", path))
	assert.FileExists(t, path)
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, zapcore.WarnLevel)
	logger.Debug("cache read failed")
	logger.Warn("slow response", zap.String("op", "list events"))
	require.NoError(t, logger.Sync())

	assert.NotContains(t, buf.String(), "cache read failed")
	assert.Contains(t, buf.String(), "slow response")
	assert.Contains(t, buf.String(), "list events")
}

func TestLogLevelFlag(t *testing.T) {
	k := newKage(t)
	_, stderr, err := k.run("types", "--log-level", "debug")
	require.NoError(t, err)
	assert.Contains(t, stderr, "services initialized")
	assert.Contains(t, stderr, "api request")

	_, stderr, err = k.run("types")
	require.NoError(t, err)
	assert.NotContains(t, stderr, "services initialized")
}

// failingCloser accepts writes and fails on Close.
type failingCloser struct {
	bytes.Buffer
	closed bool
}

func (f *failingCloser) Close() error {
	f.closed = true
	return errors.New("disk full")
}

func TestWriteAndClose(t *testing.T) {
	wc := &failingCloser{}
	err := writeAndClose(wc, func(w io.Writer) error {
		_, err := io.WriteString(w, "date,time,title\n")
		return err
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.True(t, wc.closed)

	wc = &failingCloser{}
	err = writeAndClose(wc, func(io.Writer) error { return errors.New("bad format") })
	assert.EqualError(t, err, "bad format")
	assert.True(t, wc.closed)
}

func TestExport_BadFormat(t *testing.T) {
	k := newKage(t)
	_, _, err := k.run("export", "--format", "pdf")
	assert.Error(t, err)
}

func TestConfigSetAndShow(t *testing.T) {
	k := newKage(t)
	_, _, err := k.run("config", "set", "cache.ttl", "5m")
	require.NoError(t, err)

	stdout, _, err := k.run("config", "show", "--json")
	require.NoError(t, err)

	var values map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &values))
	assert.Equal(t, "5m0s", values["cache.ttl"])
	assert.Equal(t, "*/15 * * * *", values["sync.schedule"])
}

func TestConfigSet_UnknownKey(t *testing.T) {
	k := newKage(t)
	_, _, err := k.run("config", "set", "api.retries", "3")
	assert.Error(t, err)
}

func TestConfigPath(t *testing.T) {
	k := newKage(t)
	stdout, _, err := k.run("config", "path")
	require.NoError(t, err)
	assert.Contains(t, stdout, "config.toml")
	assert.Contains(t, stdout, "kage.db")
}
