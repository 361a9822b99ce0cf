// Package domain contains the core entities of kage: timeline events,
// todos and the cache entries that mirror them locally. Everything here is
// independent of the HTTP API, the storage engine and the terminal UI.
package domain

import "errors"

// Common domain errors.
var (
	ErrEmptyTitle      = errors.New("title cannot be empty")
	ErrEmptyPreset     = errors.New("preset is empty")
	ErrInvalidTime     = errors.New("time must be HH:MM")
	ErrInvalidDate     = errors.New("date must be YYYY-MM-DD")
	ErrInvalidPriority = errors.New("priority must be 1, 2 or 3")
	ErrInvalidTab      = errors.New("unknown todo tab")
	ErrEventNotFound   = errors.New("event not found")
	ErrTodoNotFound    = errors.New("todo not found")
	ErrAmbiguousTodo   = errors.New("title matches more than one todo")
	ErrEmptyPatch      = errors.New("nothing to update")
	ErrCacheMiss       = errors.New("cache entry not found")
	ErrMalformed       = errors.New("malformed payload")
	ErrPending         = errors.New("item is not saved yet")
)
