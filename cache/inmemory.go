package cache

import (
	"context"
	"sync"
	"time"
)

type value struct {
	object  any
	expires time.Time
}

type inMemoryCache struct {
	ctx       context.Context
	cancel    context.CancelFunc
	cache     map[string]*value
	mutex     sync.Mutex
	waitGroup sync.WaitGroup
	once      sync.Once
	cfg       config
}

var _ Backend = (*inMemoryCache)(nil)

// lookup must be called with the mutex held.
func (c *inMemoryCache) lookup(key string, now time.Time) (*value, bool) {
	val, ok := c.cache[key]
	if !ok {
		return nil, false
	}
	if val.expires.Before(now) {
		delete(c.cache, key)
		return nil, false
	}
	return val, true
}

func (c *inMemoryCache) Get(_ context.Context, key string) (bool, any, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	val, ok := c.lookup(key, time.Now())
	if !ok {
		return false, nil, nil
	}
	return true, val.object, nil
}

func (c *inMemoryCache) GetMany(_ context.Context, keys []string) (map[string]any, error) {
	now := time.Now()
	result := make(map[string]any, len(keys))
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for _, key := range keys {
		if val, ok := c.lookup(key, now); ok {
			result[key] = val.object
		}
	}
	return result, nil
}

func (c *inMemoryCache) Has(_ context.Context, key string) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	_, ok := c.lookup(key, time.Now())
	return ok, nil
}

func (c *inMemoryCache) Set(_ context.Context, key string, val any, expires time.Duration) error {
	if err := c.cfg.checkSize(val); err != nil {
		return err
	}
	if expires <= 0 {
		expires = c.cfg.defaultExpires
	}
	c.mutex.Lock()
	c.cache[key] = &value{val, time.Now().Add(expires)}
	c.mutex.Unlock()
	return nil
}

func (c *inMemoryCache) Delete(_ context.Context, key string) (bool, error) {
	c.mutex.Lock()
	_, ok := c.cache[key]
	if ok {
		delete(c.cache, key)
	}
	c.mutex.Unlock()
	return ok, nil
}

func (c *inMemoryCache) Close() error {
	c.once.Do(func() {
		c.cancel()
		c.waitGroup.Wait()
	})
	return nil
}

func (c *inMemoryCache) run() {
	defer c.waitGroup.Done()
	ticker := time.NewTicker(c.cfg.expiryCheck)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			c.mutex.Lock()
			for key, val := range c.cache {
				if val.expires.Before(now) {
					delete(c.cache, key)
				}
			}
			c.mutex.Unlock()
		}
	}
}

// NewInMemory returns a new in-memory Backend. Values are stored as-is.
func NewInMemory(parent context.Context, opts ...Option) Backend {
	cfg := applyOptions(opts)
	if cfg.expiryCheck <= 0 {
		cfg.expiryCheck = time.Minute
	}
	ctx, cancel := context.WithCancel(parent)
	c := &inMemoryCache{
		ctx:    ctx,
		cancel: cancel,
		cache:  make(map[string]*value),
		cfg:    cfg,
	}
	c.waitGroup.Add(1)
	go c.run()
	return c
}
