// Package api provides the HTTP adapter for the remote life-log service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xvierd/kage-cli/internal/domain"
	"github.com/xvierd/kage-cli/internal/ports"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://k4ge.bar/api"

// Error describes a failed API call: a transport error, a non-accepted
// status code or an unusable payload.
type Error struct {
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: unexpected status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// errStatus is wrapped by Error when the server answered with a status the
// operation does not accept.
var errStatus = errors.New("request rejected")

// Client talks to the REST API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// Ensure Client implements ports.LifeAPI.
var _ ports.LifeAPI = (*Client)(nil)

// NewClient creates a client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListEvents implements ports.LifeAPI.
func (c *Client) ListEvents(ctx context.Context, date string) ([]domain.Event, error) {
	const op = "list events"
	body, _, err := c.do(ctx, op, http.MethodGet, "/events/", url.Values{"date": {date}}, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}

	raw, ok := body["events"].([]any)
	if !ok {
		return nil, &Error{Op: op, Err: fmt.Errorf("%w: missing events", domain.ErrMalformed)}
	}

	events := make([]domain.Event, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, &Error{Op: op, Err: fmt.Errorf("%w: event is not an object", domain.ErrMalformed)}
		}
		e, err := domain.EventFromPayload(obj)
		if err != nil {
			return nil, &Error{Op: op, Err: err}
		}
		if e.Date == "" {
			e.Date = date
		}
		events = append(events, e)
	}
	return events, nil
}

// ListEventTypes implements ports.LifeAPI.
func (c *Client) ListEventTypes(ctx context.Context) ([]domain.EventType, error) {
	const op = "list event types"
	body, _, err := c.do(ctx, op, http.MethodGet, "/event_types/", nil, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}

	raw, ok := body["event_types"].([]any)
	if !ok {
		return nil, &Error{Op: op, Err: fmt.Errorf("%w: missing event_types", domain.ErrMalformed)}
	}

	types := make([]domain.EventType, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		et := domain.EventType{
			TypeName:    asString(obj["type_name"]),
			Description: asString(obj["description"]),
		}
		if id, err := domain.IDString(obj["id"]); err == nil {
			et.ID = id
		}
		types = append(types, et)
	}
	return types, nil
}

// CreateEvent implements ports.LifeAPI. The server only accepts GET here.
func (c *Client) CreateEvent(ctx context.Context, title, startTime string) (map[string]any, error) {
	const op = "create event"
	query := url.Values{"title": {title}}
	if startTime != "" {
		query.Set("start_time", startTime)
	}
	body, _, err := c.do(ctx, op, http.MethodGet, "/events/create/", query, nil, http.StatusCreated)
	if err != nil {
		return nil, err
	}
	if _, err := domain.IDString(body["id"]); err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	return body, nil
}

// UpdateEvent implements ports.LifeAPI.
func (c *Client) UpdateEvent(ctx context.Context, id string, patch domain.EventPatch) (map[string]any, error) {
	const op = "update event"
	body, _, err := c.do(ctx, op, http.MethodPost, "/events/"+url.PathEscape(id)+"/update/", nil, patch.Fields(), http.StatusOK)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, &Error{Op: op, Err: fmt.Errorf("%w: empty body", domain.ErrMalformed)}
	}
	return body, nil
}

// DeleteEvent implements ports.LifeAPI. 404 means it is already gone.
func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	_, _, err := c.do(ctx, "delete event", http.MethodPost, "/events/"+url.PathEscape(id)+"/delete/", nil, nil, http.StatusOK, http.StatusNotFound)
	return err
}

// ListTodos implements ports.LifeAPI.
func (c *Client) ListTodos(ctx context.Context, tab domain.Tab) (*ports.TodoPage, error) {
	const op = "list todos"
	body, _, err := c.do(ctx, op, http.MethodGet, "/todos/", url.Values{"tab": {string(tab)}}, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}

	raw, ok := body["items"].([]any)
	if !ok {
		return nil, &Error{Op: op, Err: fmt.Errorf("%w: missing items", domain.ErrMalformed)}
	}

	page := &ports.TodoPage{Items: make([]domain.Todo, 0, len(raw))}
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, &Error{Op: op, Err: fmt.Errorf("%w: todo is not an object", domain.ErrMalformed)}
		}
		t, err := domain.TodoFromPayload(obj)
		if err != nil {
			return nil, &Error{Op: op, Err: err}
		}
		page.Items = append(page.Items, t)
	}

	if stats, ok := body["stats"].(map[string]any); ok {
		page.Stats = domain.TodoStats{
			Total: asInt(stats["total"]),
			Done:  asInt(stats["done"]),
			Todo:  asInt(stats["todo"]),
		}
	}
	return page, nil
}

// SetTodoStatus implements ports.LifeAPI.
func (c *Client) SetTodoStatus(ctx context.Context, id string, done bool) (domain.Todo, error) {
	isDone := 0
	if done {
		isDone = 1
	}
	return c.todoItem(ctx, "set todo status", "/todos/"+url.PathEscape(id)+"/status/", map[string]any{"is_done": isDone}, http.StatusOK)
}

// DeleteTodo implements ports.LifeAPI.
func (c *Client) DeleteTodo(ctx context.Context, id string) error {
	_, _, err := c.do(ctx, "delete todo", http.MethodPost, "/todos/"+url.PathEscape(id)+"/delete/", nil, nil, http.StatusOK)
	return err
}

// CreateTodo implements ports.LifeAPI.
func (c *Client) CreateTodo(ctx context.Context, title, deadlineDate string, priority int) (domain.Todo, error) {
	payload := map[string]any{
		"title":         title,
		"deadline_date": deadlineDate,
		"priority":      priority,
	}
	return c.todoItem(ctx, "create todo", "/todos/create/", payload, http.StatusCreated)
}

func (c *Client) todoItem(ctx context.Context, op, path string, payload any, want int) (domain.Todo, error) {
	body, _, err := c.do(ctx, op, http.MethodPost, path, nil, payload, want)
	if err != nil {
		return domain.Todo{}, err
	}
	item, ok := body["item"].(map[string]any)
	if !ok {
		return domain.Todo{}, &Error{Op: op, Err: fmt.Errorf("%w: missing item", domain.ErrMalformed)}
	}
	t, err := domain.TodoFromPayload(item)
	if err != nil {
		return domain.Todo{}, &Error{Op: op, Err: err}
	}
	return t, nil
}

// do performs one request and decodes a JSON object body. Statuses not in
// accept produce an *Error.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, payload any, accept ...int) (map[string]any, int, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, &Error{Op: op, Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, 0, &Error{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("api request failed", zap.String("op", op), zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, 0, &Error{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("api request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if !slices.Contains(accept, resp.StatusCode) {
		return nil, resp.StatusCode, &Error{Op: op, Status: resp.StatusCode, Err: errStatus}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &Error{Op: op, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, resp.StatusCode, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		// 404 on delete carries an HTML page; the status alone is enough.
		if resp.StatusCode == http.StatusNotFound {
			return nil, resp.StatusCode, nil
		}
		return nil, resp.StatusCode, &Error{Op: op, Err: fmt.Errorf("%w: %v", domain.ErrMalformed, err)}
	}
	return body, resp.StatusCode, nil
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asInt(v any) int {
	switch n := v.(type) {
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	case float64:
		return int(n)
	}
	return 0
}
