package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/xvierd/kage-cli/internal/domain"
	"github.com/xvierd/kage-cli/internal/ports"
)

// TimelineService holds the events of the selected date and applies
// cache-then-fetch reads and optimistic writes to them.
type TimelineService struct {
	api      ports.LifeAPI
	events   *Loader[domain.Event]
	types    *Loader[string]
	todos    *Loader[domain.Todo]
	opts     Options
	notifier ports.Notifier
	logger   *zap.Logger

	mu      sync.Mutex
	date    string
	items   []domain.Event
	presets []string
	loading bool
	errMsg  string
}

// NewTimelineService creates a timeline service showing today.
func NewTimelineService(api ports.LifeAPI, cache ports.CacheStore, opts Options) *TimelineService {
	opts = opts.withDefaults()
	return &TimelineService{
		api:      api,
		events:   NewLoader[domain.Event](cache, opts.TTL, opts.Now, opts.Logger),
		types:    NewLoader[string](cache, opts.EventTypeTTL, opts.Now, opts.Logger),
		todos:    NewLoader[domain.Todo](cache, opts.TTL, opts.Now, opts.Logger),
		opts:     opts,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		date:     opts.today(),
		items:    []domain.Event{},
	}
}

// Date returns the selected date.
func (s *TimelineService) Date() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.date
}

// Events returns a copy of the in-memory list.
func (s *TimelineService) Events() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Event(nil), s.items...)
}

// Sections returns the events bucketed into day parts.
func (s *TimelineService) Sections() []domain.Section {
	return domain.BucketEvents(s.Events())
}

// Presets returns the quick-add labels.
func (s *TimelineService) Presets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.presets...)
}

// Loading reports whether a fetch for the selected date is in flight.
func (s *TimelineService) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// ErrorMessage returns the inline error of the last load, if any.
func (s *TimelineService) ErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// ShowCached selects date and replaces the list with its cached events.
// It reports whether a cache entry existed.
func (s *TimelineService) ShowCached(ctx context.Context, date string) bool {
	items, _, ok := s.events.Cached(ctx, domain.EventCacheKey(date))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.date = date
	if ok {
		s.items = items
		s.loading = false
	}
	return ok
}

// Open selects date, shows its cached events and fetches when the cache
// is missing, older than the TTL, or force is set. A failed fetch keeps
// what is already shown.
func (s *TimelineService) Open(ctx context.Context, date string, force bool) error {
	if err := domain.ValidateDate(date); err != nil {
		return err
	}

	key := domain.EventCacheKey(date)

	s.mu.Lock()
	s.date = date
	s.errMsg = ""
	s.mu.Unlock()

	res := s.events.Load(ctx, key, force, func(ctx context.Context) ([]domain.Event, error) {
		s.setLoading(true)
		return s.api.ListEvents(ctx, date)
	}, func(cached []domain.Event) {
		s.mu.Lock()
		if s.date == date {
			s.items = cached
		}
		s.mu.Unlock()
	})
	s.setLoading(false)

	if res.Err != nil {
		s.mu.Lock()
		if s.date == date {
			s.errMsg = failureText(res.Err, msgBadResponse)
		}
		s.mu.Unlock()
		s.logger.Error("load events failed", zap.String("date", date), zap.Error(res.Err))
		return fmt.Errorf("failed to load events: %w", res.Err)
	}

	if res.Fetched {
		s.mu.Lock()
		// A slower response for a date no longer shown only refreshes the cache.
		if s.date == date {
			s.items = res.Items
		}
		s.mu.Unlock()
	}
	return nil
}

// Lookup returns the events of date through the cache without touching
// the selected date or the in-memory list.
func (s *TimelineService) Lookup(ctx context.Context, date string, force bool) ([]domain.Event, error) {
	if err := domain.ValidateDate(date); err != nil {
		return nil, err
	}
	res := s.events.Load(ctx, domain.EventCacheKey(date), force, func(ctx context.Context) ([]domain.Event, error) {
		return s.api.ListEvents(ctx, date)
	}, nil)
	if res.Err != nil && !res.FromCache {
		return nil, fmt.Errorf("failed to load events: %w", res.Err)
	}
	return res.Items, nil
}

// LoadEventTypes fills the quick-add presets, from cache while it is
// younger than the event-type TTL.
func (s *TimelineService) LoadEventTypes(ctx context.Context, force bool) error {
	if cached, ts, ok := s.types.Cached(ctx, domain.EventTypeCacheKey); ok && !s.types.Stale(ts, ok, force) {
		s.setPresets(cached)
		return nil
	}

	labels, _, err := s.types.Refresh(ctx, domain.EventTypeCacheKey, func(ctx context.Context) ([]string, error) {
		types, err := s.api.ListEventTypes(ctx)
		if err != nil {
			return nil, err
		}
		labels := make([]string, 0, len(types))
		for _, t := range types {
			labels = append(labels, t.Label())
		}
		return labels, nil
	})
	if err != nil {
		s.logger.Error("load event types failed", zap.Error(err))
		s.notifier.Toast(ports.LevelError, msgTypesLoadError)
		return fmt.Errorf("failed to load event types: %w", err)
	}

	s.setPresets(labels)
	return nil
}

// BeginAdd appends a placeholder event stamped with clock and date, or the
// current time when either is empty.
func (s *TimelineService) BeginAdd(title, clock, date string) (domain.Event, error) {
	if clock == "" || date == "" {
		now := s.opts.Now()
		clock, date = domain.FormatClock(now), domain.FormatDate(now)
	}
	ev, err := domain.NewPendingEvent(title, clock, date)
	if err != nil {
		return domain.Event{}, err
	}

	s.mu.Lock()
	if s.date == date {
		s.items = append(s.items, ev)
	}
	s.mu.Unlock()
	return ev, nil
}

// ConfirmAdd sends a placeholder to the server. On success the placeholder
// takes the server id and payload; on failure it is removed.
func (s *TimelineService) ConfirmAdd(ctx context.Context, pending domain.Event) (domain.Event, error) {
	payload, err := s.api.CreateEvent(ctx, pending.Title, pending.Time)
	if err != nil {
		s.removeEvent(pending.ID)
		s.logger.Error("create event failed", zap.String("title", pending.Title), zap.Error(err))
		s.notifier.Toast(ports.LevelError, failureText(err, msgSaveFailed))
		return domain.Event{}, fmt.Errorf("failed to create event: %w", err)
	}

	confirmed := pending
	if err := confirmed.Confirm(payload); err != nil {
		s.removeEvent(pending.ID)
		s.notifier.Toast(ports.LevelError, msgSaveFailed)
		return domain.Event{}, fmt.Errorf("failed to create event: %w", err)
	}

	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == pending.ID {
			s.items[i] = confirmed
			break
		}
	}
	date, items := s.date, append([]domain.Event(nil), s.items...)
	s.mu.Unlock()

	if date == pending.Date {
		s.saveEvents(ctx, date, items)
	} else {
		s.appendCached(ctx, confirmed)
	}
	s.notifier.Toast(ports.LevelSuccess, msgSaved)
	return confirmed, nil
}

// Add creates an event optimistically in one call.
func (s *TimelineService) Add(ctx context.Context, title, clock string) (domain.Event, error) {
	if strings.TrimSpace(title) == "" {
		s.notifier.Toast(ports.LevelError, msgEmptyTitle)
		return domain.Event{}, domain.ErrEmptyTitle
	}
	date := ""
	if clock != "" {
		if err := domain.ValidateClock(clock); err != nil {
			return domain.Event{}, err
		}
		// The server always files new events under its own today.
		date = s.opts.today()
	}
	pending, err := s.BeginAdd(title, clock, date)
	if err != nil {
		return domain.Event{}, err
	}
	return s.ConfirmAdd(ctx, pending)
}

// QuickAdd creates an event titled after the preset at index.
func (s *TimelineService) QuickAdd(ctx context.Context, index int) (domain.Event, error) {
	presets := s.Presets()
	if index < 0 || index >= len(presets) || strings.TrimSpace(presets[index]) == "" {
		s.notifier.Toast(ports.LevelError, msgEmptyPreset)
		return domain.Event{}, domain.ErrEmptyPreset
	}
	return s.Add(ctx, presets[index], "")
}

// Update applies a partial edit. The list and the cache change only after
// the server accepted it, and todos are refetched since edits can
// complete or reopen them.
func (s *TimelineService) Update(ctx context.Context, id string, patch domain.EventPatch) (domain.Event, error) {
	if patch.IsEmpty() {
		return domain.Event{}, domain.ErrEmptyPatch
	}
	if err := patch.Validate(); err != nil {
		return domain.Event{}, err
	}

	payload, err := s.api.UpdateEvent(ctx, id, patch)
	if err != nil {
		s.logger.Error("update event failed", zap.String("id", id), zap.Error(err))
		s.notifier.Toast(ports.LevelError, failureText(err, msgSaveFailed))
		return domain.Event{}, fmt.Errorf("failed to update event: %w", err)
	}

	var updated domain.Event
	found := false

	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Merge(payload)
			updated = s.items[i]
			found = true
			break
		}
	}
	date, items := s.date, append([]domain.Event(nil), s.items...)
	s.mu.Unlock()

	if !found {
		updated, err = domain.EventFromPayload(payload)
		if err != nil {
			updated = domain.Event{ID: id}
			updated.Merge(payload)
		}
	}

	s.saveEvents(ctx, date, items)
	_ = s.PrefetchTodos(ctx, true)
	s.notifier.Toast(ports.LevelSuccess, msgSaved)
	return updated, nil
}

// Delete removes an event once the server confirms (404 counts as done),
// reopens the cached todos that the event had completed, and refetches
// todos.
func (s *TimelineService) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteEvent(ctx, id); err != nil {
		s.logger.Error("delete event failed", zap.String("id", id), zap.Error(err))
		s.notifier.Toast(ports.LevelError, failureText(err, msgDeleteFailed))
		return fmt.Errorf("failed to delete event: %w", err)
	}

	s.removeEvent(id)

	s.mu.Lock()
	date, items := s.date, append([]domain.Event(nil), s.items...)
	s.mu.Unlock()
	s.saveEvents(ctx, date, items)

	if todos, _, ok := s.todos.Cached(ctx, domain.TodoCacheKey); ok {
		for i := range todos {
			if todos[i].EventID != nil && *todos[i].EventID == id {
				todos[i].UnlinkEvent()
			}
		}
		s.todos.Save(ctx, domain.TodoCacheKey, todos)
	}

	_ = s.PrefetchTodos(ctx, true)
	s.notifier.Toast(ports.LevelSuccess, msgDeleted)
	return nil
}

// PrefetchTodos refreshes the cached full todo list in the background of
// timeline work. Failures are only logged.
func (s *TimelineService) PrefetchTodos(ctx context.Context, force bool) error {
	if _, ts, ok := s.todos.Cached(ctx, domain.TodoCacheKey); ok && !s.todos.Stale(ts, ok, force) {
		return nil
	}
	_, _, err := s.todos.Refresh(ctx, domain.TodoCacheKey, func(ctx context.Context) ([]domain.Todo, error) {
		page, err := s.api.ListTodos(ctx, domain.TabAll)
		if err != nil {
			return nil, err
		}
		return page.Items, nil
	})
	if err != nil {
		s.logger.Debug("todo prefetch failed", zap.Error(err))
		return fmt.Errorf("failed to prefetch todos: %w", err)
	}
	return nil
}

// saveEvents mirrors the list of date into the cache, without placeholders.
func (s *TimelineService) saveEvents(ctx context.Context, date string, items []domain.Event) {
	items = slices.DeleteFunc(items, func(e domain.Event) bool { return e.IsPending() })
	s.events.Save(ctx, domain.EventCacheKey(date), items)
}

// appendCached adds ev to the cached day it was filed under, so a date
// that is not on screen does not hide it until the TTL runs out.
func (s *TimelineService) appendCached(ctx context.Context, ev domain.Event) {
	key := domain.EventCacheKey(ev.Date)
	cached, _, ok := s.events.Cached(ctx, key)
	if !ok {
		return
	}
	s.saveEvents(ctx, ev.Date, append(cached, ev))
}

func (s *TimelineService) removeEvent(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.items[:0:0]
	for _, e := range s.items {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	s.items = kept
}

func (s *TimelineService) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *TimelineService) setPresets(labels []string) {
	s.mu.Lock()
	s.presets = labels
	s.mu.Unlock()
}
