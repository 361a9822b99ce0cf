package domain

import (
	"encoding/json"
	"time"
)

// Cache keys used for the local mirror.
const (
	EventCachePrefix  = "cached_events"
	TodoCacheKey      = "cached_todos"
	EventTypeCacheKey = "cached_event_types"
)

// EventCacheKey returns the per-date cache key for timeline events.
func EventCacheKey(date string) string {
	return EventCachePrefix + "_" + date
}

// CacheEntry is a persisted snapshot of a list.
type CacheEntry struct {
	Key       string
	Timestamp time.Time
	Items     json.RawMessage
}

// Age returns how old the entry is at now.
func (e CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.Timestamp)
}
