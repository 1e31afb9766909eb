package cache

import (
	"context"
	"encoding/json"
)

// Fetcher loads the current value of a key from its source of truth.
type Fetcher func(ctx context.Context) (json.RawMessage, error)

// Cache is a keyed query cache. Values are only ever written by fetchers.
type Cache interface {
	// Register binds a fetcher to key, replacing any previous one.
	Register(key string, f Fetcher)
	// Get returns the cached value, fetching it when missing or stale. A
	// stale value is returned if the refetch fails.
	Get(ctx context.Context, key string) (json.RawMessage, error)
	// Invalidate marks key stale and refetches it. On failure the stale
	// value is kept and the error returned.
	Invalidate(ctx context.Context, key string) error
	Stats() Stats
}

// Store persists entries for a Cache.
type Store interface {
	Load(ctx context.Context, key string) (Entry, bool, error)
	Save(ctx context.Context, key string, e Entry) error
	Delete(ctx context.Context, key string) error
}
