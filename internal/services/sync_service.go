package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xvierd/kage-cli/internal/domain"
	"github.com/xvierd/kage-cli/internal/ports"
)

// SyncReport summarises one sync run.
type SyncReport struct {
	Date       string        `json:"date"`
	Events     int           `json:"events"`
	EventTypes int           `json:"event_types"`
	Todos      int           `json:"todos"`
	Took       time.Duration `json:"took"`
}

// SyncService refreshes every cache entry the views read on start.
type SyncService struct {
	api    ports.LifeAPI
	events *Loader[domain.Event]
	types  *Loader[string]
	todos  *Loader[domain.Todo]
	now    func() time.Time
	logger *zap.Logger
}

// NewSyncService creates a sync service writing into cache.
func NewSyncService(api ports.LifeAPI, cache ports.CacheStore, opts Options) *SyncService {
	opts = opts.withDefaults()
	return &SyncService{
		api:    api,
		events: NewLoader[domain.Event](cache, opts.TTL, opts.Now, opts.Logger),
		types:  NewLoader[string](cache, opts.EventTypeTTL, opts.Now, opts.Logger),
		todos:  NewLoader[domain.Todo](cache, opts.TTL, opts.Now, opts.Logger),
		now:    opts.Now,
		logger: opts.Logger,
	}
}

// Sync fetches the events of date, the event types and the full todo list
// concurrently. The first failure cancels the others; whatever finished
// before that stays cached.
func (s *SyncService) Sync(ctx context.Context, date string) (*SyncReport, error) {
	if err := domain.ValidateDate(date); err != nil {
		return nil, err
	}

	start := s.now()
	report := &SyncReport{Date: date}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		items, _, err := s.events.Refresh(gctx, domain.EventCacheKey(date), func(ctx context.Context) ([]domain.Event, error) {
			return s.api.ListEvents(ctx, date)
		})
		if err != nil {
			return fmt.Errorf("events: %w", err)
		}
		report.Events = len(items)
		return nil
	})

	g.Go(func() error {
		labels, _, err := s.types.Refresh(gctx, domain.EventTypeCacheKey, func(ctx context.Context) ([]string, error) {
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
			return fmt.Errorf("event types: %w", err)
		}
		report.EventTypes = len(labels)
		return nil
	})

	g.Go(func() error {
		items, _, err := s.todos.Refresh(gctx, domain.TodoCacheKey, func(ctx context.Context) ([]domain.Todo, error) {
			page, err := s.api.ListTodos(ctx, domain.TabAll)
			if err != nil {
				return nil, err
			}
			return page.Items, nil
		})
		if err != nil {
			return fmt.Errorf("todos: %w", err)
		}
		report.Todos = len(items)
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("sync failed", zap.String("date", date), zap.Error(err))
		return nil, fmt.Errorf("sync failed: %w", err)
	}

	report.Took = s.now().Sub(start)
	s.logger.Info("sync finished", zap.String("date", date), zap.Int("events", report.Events), zap.Int("todos", report.Todos))
	return report, nil
}
