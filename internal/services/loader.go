// Package services implements the application layer (use cases)
// following hexagonal architecture principles.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/xvierd/kage-cli/internal/domain"
	"github.com/xvierd/kage-cli/internal/ports"
)

// Default cache lifetimes.
const (
	DefaultTTL          = 2 * time.Minute
	DefaultEventTypeTTL = 24 * time.Hour
)

// FetchFunc loads a fresh list from the network.
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// LoadResult describes what a Load call ended up showing.
type LoadResult[T any] struct {
	Items     []T
	Timestamp time.Time
	FromCache bool
	Fetched   bool
	Err       error
}

// Loader reads lists through the local cache: cached items are returned
// right away and a fetch only happens once the entry is older than the TTL.
// A nil cache store disables persistence. Concurrent refreshes of the same
// key share one network call.
type Loader[T any] struct {
	cache  ports.CacheStore
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
	sf     singleflight.Group
}

type refreshed[T any] struct {
	items []T
	ts    time.Time
}

// NewLoader creates a loader with the given TTL.
func NewLoader[T any](cache ports.CacheStore, ttl time.Duration, now func() time.Time, logger *zap.Logger) *Loader[T] {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader[T]{cache: cache, ttl: ttl, now: now, logger: logger}
}

// TTL returns the configured lifetime.
func (l *Loader[T]) TTL() time.Duration {
	return l.ttl
}

// Cached returns the items persisted under key. Any read or decode failure
// is reported as a miss.
func (l *Loader[T]) Cached(ctx context.Context, key string) ([]T, time.Time, bool) {
	if l.cache == nil {
		return nil, time.Time{}, false
	}
	entry, err := l.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			l.logger.Debug("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, time.Time{}, false
	}
	var items []T
	if err := json.Unmarshal(entry.Items, &items); err != nil {
		l.logger.Debug("cache decode failed", zap.String("key", key), zap.Error(err))
		return nil, time.Time{}, false
	}
	if items == nil {
		items = []T{}
	}
	return items, entry.Timestamp, true
}

// Stale reports whether a fetch is needed for an entry written at ts.
func (l *Loader[T]) Stale(ts time.Time, ok, force bool) bool {
	if force || !ok {
		return true
	}
	return l.now().Sub(ts) >= l.ttl
}

// Save writes items under key and returns the timestamp used. Failures are
// logged and otherwise ignored.
func (l *Loader[T]) Save(ctx context.Context, key string, items []T) time.Time {
	ts := l.now()
	if l.cache == nil {
		return ts
	}
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		l.logger.Debug("cache encode failed", zap.String("key", key), zap.Error(err))
		return ts
	}
	if err := l.cache.Put(ctx, domain.CacheEntry{Key: key, Timestamp: ts, Items: data}); err != nil {
		l.logger.Debug("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return ts
}

// Refresh fetches and, on success, persists the result.
func (l *Loader[T]) Refresh(ctx context.Context, key string, fetch FetchFunc[T]) ([]T, time.Time, error) {
	v, err, shared := l.sf.Do(key, func() (any, error) {
		items, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []T{}
		}
		return refreshed[T]{items: items, ts: l.Save(ctx, key, items)}, nil
	})
	if err != nil {
		return nil, time.Time{}, err
	}
	r := v.(refreshed[T])
	if shared {
		return slices.Clone(r.items), r.ts, nil
	}
	return r.items, r.ts, nil
}

// Load runs the whole cache-then-fetch flow. onCached, when set, receives
// the cached items before any network call. On fetch failure the cached
// items (if any) stay in the result along with the error.
func (l *Loader[T]) Load(ctx context.Context, key string, force bool, fetch FetchFunc[T], onCached func([]T)) LoadResult[T] {
	var res LoadResult[T]

	items, ts, ok := l.Cached(ctx, key)
	if ok {
		res.Items, res.Timestamp, res.FromCache = items, ts, true
		if onCached != nil {
			onCached(items)
		}
	}

	if !l.Stale(ts, ok, force) {
		return res
	}

	fresh, freshTS, err := l.Refresh(ctx, key, fetch)
	if err != nil {
		res.Err = err
		return res
	}

	res.Items, res.Timestamp = fresh, freshTS
	res.FromCache, res.Fetched = false, true
	return res
}
