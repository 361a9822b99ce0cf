package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xvierd/kage-cli/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 2*time.Second, nil)
}

func TestClient_ListEvents(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/events/", r.URL.Path)
		assert.Equal(t, "2025-11-30", r.URL.Query().Get("date"))
		_, _ = w.Write([]byte(`{"events":[
			{"id":7,"date":"2025-11-30","start_time":"08:15","title":"Run","event_type":"sport","value_number":5.5},
			{"id":8,"start_time":null,"title":"Nap"}
		]}`))
	})

	events, err := client.ListEvents(context.Background(), "2025-11-30")
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "7", events[0].ID)
	assert.Equal(t, "08:15", events[0].Time)
	assert.Equal(t, "sport", events[0].EventType())
	assert.Equal(t, "5.5", events[0].ValueNumber())

	assert.Equal(t, "", events[1].Time)
	assert.Equal(t, "2025-11-30", events[1].Date)
}

func TestClient_ListEvents_Malformed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	})

	_, err := client.ListEvents(context.Background(), "2025-11-30")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMalformed))

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "list events", apiErr.Op)
}

func TestClient_ListEventTypes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/event_types/", r.URL.Path)
		_, _ = w.Write([]byte(`{"event_types":[
			{"id":1,"type_name":"coffee","description":"Coffee"},
			{"id":2,"type_name":"walk","description":null}
		]}`))
	})

	types, err := client.ListEventTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "Coffee", types[0].Label())
	assert.Equal(t, "walk", types[1].Label())
}

func TestClient_CreateEvent(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/events/create/", r.URL.Path)
			assert.Equal(t, "Tea", r.URL.Query().Get("title"))
			assert.Equal(t, "09:05", r.URL.Query().Get("start_time"))
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":42,"title":"Tea","start_time":"09:05"}`))
		})

		payload, err := client.CreateEvent(context.Background(), "Tea", "09:05")
		require.NoError(t, err)
		id, err := domain.IDString(payload["id"])
		require.NoError(t, err)
		assert.Equal(t, "42", id)
	})

	t.Run("200 is not a create", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":42}`))
		})

		_, err := client.CreateEvent(context.Background(), "Tea", "09:05")
		var apiErr *Error
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusOK, apiErr.Status)
	})

	t.Run("missing id", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"title":"Tea"}`))
		})

		_, err := client.CreateEvent(context.Background(), "Tea", "09:05")
		assert.True(t, errors.Is(err, domain.ErrMalformed))
	})
}

func TestClient_UpdateEvent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/events/7/update/", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"title": "Long run"}, body)
		_, _ = w.Write([]byte(`{"id":7,"title":"Long run","start_time":"08:15"}`))
	})

	title := "Long run"
	payload, err := client.UpdateEvent(context.Background(), "7", domain.EventPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Long run", payload["title"])
}

func TestClient_DeleteEvent(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", http.StatusOK, false},
		{"already gone", http.StatusNotFound, false},
		{"server error", http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/events/7/delete/", r.URL.Path)
				w.WriteHeader(tt.status)
				if tt.status == http.StatusNotFound {
					_, _ = w.Write([]byte("<html>not found</html>"))
				}
			})

			err := client.DeleteEvent(context.Background(), "7")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClient_ListTodos(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/todos/", r.URL.Path)
		assert.Equal(t, "today", r.URL.Query().Get("tab"))
		_, _ = w.Write([]byte(`{
			"items":[{"id":3,"title":"Pay rent","is_done":"1","priority":"3","deadline_date":"2025-12-01","deadline_time":"09:00:00","done_at":"2025-12-01 08:00:00","event_id":7}],
			"stats":{"total":4,"done":1,"todo":3}
		}`))
	})

	page, err := client.ListTodos(context.Background(), domain.TabToday)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	item := page.Items[0]
	assert.Equal(t, "3", item.ID)
	assert.Equal(t, 1, item.IsDone)
	assert.Equal(t, domain.PriorityHigh, item.Priority)
	assert.Equal(t, "09:00", item.DeadlineTime)
	require.NotNil(t, item.EventID)
	assert.Equal(t, "7", *item.EventID)
	assert.Equal(t, domain.TodoStats{Total: 4, Done: 1, Todo: 3}, page.Stats)
}

func TestClient_SetTodoStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/todos/3/status/", r.URL.Path)
		var body map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 1, body["is_done"])
		_, _ = w.Write([]byte(`{"item":{"id":3,"title":"Pay rent","is_done":1,"priority":2}}`))
	})

	todo, err := client.SetTodoStatus(context.Background(), "3", true)
	require.NoError(t, err)
	assert.True(t, todo.Done())
}

func TestClient_SetTodoStatus_MissingItem(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	_, err := client.SetTodoStatus(context.Background(), "3", false)
	assert.True(t, errors.Is(err, domain.ErrMalformed))
}

func TestClient_CreateTodo(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/todos/create/", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Buy milk", body["title"])
		assert.Equal(t, "2025-12-01", body["deadline_date"])
		assert.Equal(t, float64(3), body["priority"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"item":{"id":11,"title":"Buy milk","is_done":0,"priority":3,"deadline_date":"2025-12-01"}}`))
	})

	todo, err := client.CreateTodo(context.Background(), "Buy milk", "2025-12-01", 3)
	require.NoError(t, err)
	assert.Equal(t, "11", todo.ID)
	assert.Equal(t, 3, todo.Priority)
}

func TestClient_DeleteTodo(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	err := client.DeleteTodo(context.Background(), "3")
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestClient_TransportError(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", 500*time.Millisecond, nil)

	_, err := client.ListTodos(context.Background(), domain.TabAll)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Zero(t, apiErr.Status)
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient("", 0, nil)
	assert.Equal(t, DefaultBaseURL, client.BaseURL())
}
