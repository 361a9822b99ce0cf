package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Priority levels as stored by the server.
const (
	PriorityLow    = 1
	PriorityNormal = 2
	PriorityHigh   = 3
)

// doneAtLayout is the timestamp format used for locally stamped done_at values.
const doneAtLayout = "2006-01-02 15:04:05"

// Todo is one item of the todo list.
type Todo struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	IsDone       int     `json:"is_done"`
	Priority     int     `json:"priority"`
	DeadlineDate string  `json:"deadline_date,omitempty"`
	DeadlineTime string  `json:"deadline_time,omitempty"`
	Note         string  `json:"note,omitempty"`
	DoneAt       *string `json:"done_at"`
	EventID      *string `json:"event_id"`
}

// TodoStats summarises a todo listing.
type TodoStats struct {
	Total int `json:"total"`
	Done  int `json:"done"`
	Todo  int `json:"todo"`
}

// NewPendingTodo creates a placeholder todo with a temporary id. An empty
// deadline stays unset; priority 0 means normal.
func NewPendingTodo(title, deadlineDate string, priority int) (Todo, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Todo{}, ErrEmptyTitle
	}
	if deadlineDate != "" {
		if err := ValidateDate(deadlineDate); err != nil {
			return Todo{}, err
		}
	}
	if priority == 0 {
		priority = PriorityNormal
	}
	if priority < PriorityLow || priority > PriorityHigh {
		return Todo{}, ErrInvalidPriority
	}
	return Todo{
		ID:           NewTempID(),
		Title:        title,
		Priority:     priority,
		DeadlineDate: deadlineDate,
	}, nil
}

// Done reports whether the todo is completed.
func (t Todo) Done() bool {
	return t.IsDone == 1
}

// IsPending reports whether the todo still waits for server confirmation.
func (t Todo) IsPending() bool {
	return IsTempID(t.ID)
}

// MarkDone completes the todo locally.
func (t *Todo) MarkDone(now time.Time) {
	stamp := now.Format(doneAtLayout)
	t.IsDone = 1
	t.DoneAt = &stamp
}

// Undo reopens the todo locally.
func (t *Todo) Undo() {
	t.IsDone = 0
	t.DoneAt = nil
}

// UnlinkEvent reopens a todo whose completing event was deleted.
func (t *Todo) UnlinkEvent() {
	t.Undo()
	t.EventID = nil
}

// Normalize coerces the numeric fields into their canonical ranges.
func (t *Todo) Normalize() {
	if t.IsDone != 0 {
		t.IsDone = 1
	}
	if t.Priority < PriorityLow || t.Priority > PriorityHigh {
		t.Priority = PriorityNormal
	}
}

// TodoFromPayload converts a server object, accepting numbers, numeric
// strings and booleans for is_done and priority.
func TodoFromPayload(payload map[string]any) (Todo, error) {
	id, err := IDString(payload["id"])
	if err != nil {
		return Todo{}, err
	}
	t := Todo{
		ID:           id,
		Title:        stringField(payload, "title"),
		IsDone:       coerceInt(payload["is_done"]),
		Priority:     coerceInt(payload["priority"]),
		DeadlineDate: stringField(payload, "deadline_date"),
		DeadlineTime: trimSeconds(stringField(payload, "deadline_time")),
		Note:         stringField(payload, "note"),
	}
	if doneAt := stringField(payload, "done_at"); doneAt != "" {
		t.DoneAt = &doneAt
	}
	if v, ok := payload["event_id"]; ok && v != nil {
		if eventID, err := IDString(v); err == nil {
			t.EventID = &eventID
		}
	}
	t.Normalize()
	return t, nil
}

func coerceInt(v any) int {
	switch n := v.(type) {
	case bool:
		if n {
			return 1
		}
		return 0
	case float64:
		return int(n)
	case int:
		return n
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

// trimSeconds turns "HH:MM:SS" into "HH:MM".
func trimSeconds(clock string) string {
	if len(clock) == len("15:04:05") && strings.Count(clock, ":") == 2 {
		return clock[:5]
	}
	return clock
}
