// Package ports defines the interfaces (driven and driving ports)
// for kage following hexagonal architecture principles.
// These interfaces define the contracts between the domain layer and
// external infrastructure.
package ports

import (
	"context"

	"github.com/xvierd/kage-cli/internal/domain"
)

// CacheStore persists list snapshots keyed by cache key.
// This is a driven port (implemented by adapters).
type CacheStore interface {
	// Get returns the entry for key, or domain.ErrCacheMiss.
	Get(ctx context.Context, key string) (*domain.CacheEntry, error)

	// Put stores or replaces an entry.
	Put(ctx context.Context, entry domain.CacheEntry) error

	// Delete removes one entry. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns the entries whose key starts with prefix, newest first.
	List(ctx context.Context, prefix string) ([]domain.CacheEntry, error)

	// Clear removes every entry and returns how many were dropped.
	Clear(ctx context.Context) (int, error)

	// Close closes the storage connection.
	Close() error

	// Migrate runs database migrations.
	Migrate() error
}
