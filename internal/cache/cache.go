package cache

import (
	"context"
	"encoding/json"
	"fmt"
)

func (c *implCache) Register(key string, f Fetcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetchers[key] = f
}

func (c *implCache) fetcher(key string) (Fetcher, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.fetchers[key]
	return f, ok
}

func (c *implCache) generation(key string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[key]
}

func (c *implCache) fresh(e Entry) bool {
	if e.Stale {
		return false
	}
	return c.cfg.TTL <= 0 || c.now().Sub(e.FetchedAt) < c.cfg.TTL
}

func (c *implCache) Get(ctx context.Context, key string) (json.RawMessage, error) {
	e, ok, err := c.store.Load(ctx, key)
	if err != nil {
		c.logger.Warnf(ctx, "cache: load %s: %v", key, err)
		ok = false
	}
	if ok && c.fresh(e) {
		c.hits.Add(1)
		return e.Value, nil
	}
	c.misses.Add(1)

	v, err := c.refresh(ctx, key)
	if err == nil {
		return v, nil
	}
	if ok && e.Value != nil {
		c.staleServed.Add(1)
		c.logger.Warnf(ctx, "cache: serving stale %s: %v", key, err)
		return e.Value, nil
	}
	return nil, err
}

func (c *implCache) Invalidate(ctx context.Context, key string) error {
	c.invalidations.Add(1)

	c.mu.Lock()
	_, ok := c.fetchers[key]
	c.gens[key]++
	c.mu.Unlock()
	if !ok {
		return c.store.Delete(ctx, key)
	}
	// a fetch already in flight read the source before this call
	c.group.Forget(key)

	e, ok, err := c.store.Load(ctx, key)
	if err == nil && ok && !e.Stale {
		e.Stale = true
		if err := c.store.Save(ctx, key, e); err != nil {
			c.logger.Warnf(ctx, "cache: mark %s stale: %v", key, err)
		}
	}

	if _, err := c.refresh(ctx, key); err != nil {
		return fmt.Errorf("invalidate %s: %w", key, err)
	}
	return nil
}

// refresh runs the key's fetcher, collapsing concurrent calls for one key. A
// fetch that outlived an Invalidate of its key returns its value but does not
// store it.
func (c *implCache) refresh(ctx context.Context, key string) (json.RawMessage, error) {
	f, ok := c.fetcher(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		gen := c.generation(key)
		c.fetches.Add(1)
		value, err := f(ctx)
		if err != nil {
			c.fetchErrors.Add(1)
			return nil, err
		}
		if c.generation(key) != gen {
			c.logger.Debugf(ctx, "cache: dropping outdated fetch of %s", key)
			return value, nil
		}
		if err := c.store.Save(ctx, key, Entry{Value: value, FetchedAt: c.now()}); err != nil {
			c.logger.Warnf(ctx, "cache: save %s: %v", key, err)
		}
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(json.RawMessage), nil
}

func (c *implCache) Stats() Stats {
	return Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Fetches:       c.fetches.Load(),
		FetchErrors:   c.fetchErrors.Load(),
		Invalidations: c.invalidations.Load(),
		StaleServed:   c.staleServed.Load(),
	}
}
