package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Event is one entry on the daily timeline.
type Event struct {
	ID    string         `json:"id"`
	Time  string         `json:"time"`
	Title string         `json:"title"`
	Date  string         `json:"date,omitempty"`
	Raw   map[string]any `json:"raw,omitempty"`
}

// NewPendingEvent creates a placeholder event with a temporary id.
func NewPendingEvent(title, clock, date string) (Event, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Event{}, ErrEmptyTitle
	}
	if err := ValidateClock(clock); err != nil {
		return Event{}, err
	}
	return Event{
		ID:    NewTempID(),
		Time:  clock,
		Title: title,
		Date:  date,
		Raw:   map[string]any{"pending": true},
	}, nil
}

// IsPending reports whether the event still waits for server confirmation.
func (e Event) IsPending() bool {
	return IsTempID(e.ID)
}

// EventType returns the server-side type name, if known.
func (e Event) EventType() string {
	return stringField(e.Raw, "event_type")
}

// ValueNumber returns the numeric value attached to the event as text.
func (e Event) ValueNumber() string {
	return stringField(e.Raw, "value_number")
}

// Confirm swaps the temporary id for the server id and keeps the server
// payload as the raw record.
func (e *Event) Confirm(payload map[string]any) error {
	id, err := IDString(payload["id"])
	if err != nil {
		return err
	}
	e.ID = id
	e.Raw = payload
	return nil
}

// Merge applies an update response. A missing start_time keeps the old
// time and a missing title keeps the old title.
func (e *Event) Merge(payload map[string]any) {
	t := trimSeconds(stringField(payload, "start_time"))
	if t == "" {
		t = e.Time
	}
	raw := make(map[string]any, len(e.Raw)+len(payload)+1)
	for k, v := range e.Raw {
		raw[k] = v
	}
	for k, v := range payload {
		raw[k] = v
	}
	raw["start_time"] = t
	if title, ok := payload["title"].(string); ok {
		e.Title = title
	}
	e.Time = t
	e.Raw = raw
}

// EventFromPayload converts one object of the events listing.
func EventFromPayload(payload map[string]any) (Event, error) {
	id, err := IDString(payload["id"])
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:    id,
		Time:  trimSeconds(stringField(payload, "start_time")),
		Title: stringField(payload, "title"),
		Date:  stringField(payload, "date"),
		Raw:   payload,
	}, nil
}

// EventPatch carries the fields of a partial event update. Nil fields are
// left untouched on the server.
type EventPatch struct {
	Title       *string
	StartTime   *string
	EventType   *string
	ValueNumber *string
}

// IsEmpty reports whether the patch changes nothing.
func (p EventPatch) IsEmpty() bool {
	return p.Title == nil && p.StartTime == nil && p.EventType == nil && p.ValueNumber == nil
}

// Validate checks the fields that have a fixed format.
func (p EventPatch) Validate() error {
	if p.StartTime != nil && *p.StartTime != "" {
		if err := ValidateClock(*p.StartTime); err != nil {
			return err
		}
	}
	return nil
}

// Fields returns the patch as form fields.
func (p EventPatch) Fields() map[string]string {
	fields := map[string]string{}
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.StartTime != nil {
		fields["start_time"] = *p.StartTime
	}
	if p.EventType != nil {
		fields["event_type"] = *p.EventType
	}
	if p.ValueNumber != nil {
		fields["value_number"] = *p.ValueNumber
	}
	return fields
}

// EventType is a server-defined kind of event, used for quick-add presets.
type EventType struct {
	ID          string `json:"id"`
	TypeName    string `json:"type_name"`
	Description string `json:"description"`
}

// Label is the text shown for a preset: the description, else the type name.
func (t EventType) Label() string {
	if t.Description != "" {
		return t.Description
	}
	return t.TypeName
}

// IDString normalises a JSON id (number or string) to its decimal text.
func IDString(v any) (string, error) {
	switch id := v.(type) {
	case string:
		if id == "" {
			return "", fmt.Errorf("%w: empty id", ErrMalformed)
		}
		return id, nil
	case float64:
		return strconv.FormatInt(int64(id), 10), nil
	case int:
		return strconv.Itoa(id), nil
	case int64:
		return strconv.FormatInt(id, 10), nil
	case json.Number:
		return id.String(), nil
	default:
		return "", fmt.Errorf("%w: id %v", ErrMalformed, v)
	}
}

func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case json.Number:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}
