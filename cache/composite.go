package cache

import (
	"context"
	"time"
)

type compositeCache struct {
	caches []Backend
}

var _ Backend = (*compositeCache)(nil)

// NewComposite returns a Backend that chains multiple backends together.
// Get checks backends in order and returns the first hit.
// GetMany asks each backend only for the keys still missing.
// Set and Delete apply to all backends.
// At least one backend must be provided; panics if empty.
func NewComposite(caches ...Backend) Backend {
	if len(caches) == 0 {
		panic("cache: NewComposite requires at least one backend")
	}
	return &compositeCache{caches: caches}
}

func (c *compositeCache) Get(ctx context.Context, key string) (bool, any, error) {
	for _, cache := range c.caches {
		found, val, err := cache.Get(ctx, key)
		if err != nil {
			return false, nil, err
		}
		if found {
			return true, val, nil
		}
	}
	return false, nil, nil
}

func (c *compositeCache) GetMany(ctx context.Context, keys []string) (map[string]any, error) {
	result := make(map[string]any, len(keys))
	missing := keys
	for _, cache := range c.caches {
		if len(missing) == 0 {
			break
		}
		vals, err := cache.GetMany(ctx, missing)
		if err != nil {
			return nil, err
		}
		next := missing[:0:0]
		for _, key := range missing {
			if val, ok := vals[key]; ok {
				result[key] = val
			} else {
				next = append(next, key)
			}
		}
		missing = next
	}
	return result, nil
}

func (c *compositeCache) Has(ctx context.Context, key string) (bool, error) {
	for _, cache := range c.caches {
		found, err := cache.Has(ctx, key)
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

func (c *compositeCache) Set(ctx context.Context, key string, val any, expires time.Duration) error {
	var firstErr error
	for _, cache := range c.caches {
		if err := cache.Set(ctx, key, val, expires); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *compositeCache) Delete(ctx context.Context, key string) (bool, error) {
	anyFound := false
	for _, cache := range c.caches {
		found, err := cache.Delete(ctx, key)
		if err != nil {
			return anyFound, err
		}
		if found {
			anyFound = true
		}
	}
	return anyFound, nil
}

func (c *compositeCache) Close() error {
	var firstErr error
	for _, cache := range c.caches {
		if err := cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
