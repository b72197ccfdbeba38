package cache

import (
	"context"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/cockroachdb/errors"
)

// memcachedRelativeLimit is the largest expiration memcached treats as
// relative; anything above is read as an absolute Unix timestamp.
const memcachedRelativeLimit = 30 * 24 * time.Hour

type memcachedCache struct {
	client *memcache.Client
	cfg    config
}

var _ Backend = (*memcachedCache)(nil)

// NewMemcached returns a new Backend backed by memcached. Values are stored
// as msgpack items. The query timeout is applied as the client's I/O timeout.
// The caller owns the client lifecycle.
func NewMemcached(client *memcache.Client, opts ...Option) Backend {
	cfg := applyOptions(opts)
	client.Timeout = cfg.queryTimeout
	return &memcachedCache{client: client, cfg: cfg}
}

func (c *memcachedCache) prefixKey(key string) string {
	if c.cfg.prefix == "" {
		return key
	}
	return c.cfg.prefix + ":" + key
}

func memcachedError(err error, op string) error {
	switch {
	case errors.Is(err, memcache.ErrMalformedKey):
		return errors.Mark(errors.Wrapf(err, "cache: memcached %s", op), ErrKeyTooLong)
	case strings.Contains(err.Error(), "too large"):
		return errors.Mark(errors.Wrapf(err, "cache: memcached %s", op), ErrValueTooLarge)
	default:
		return errors.Wrapf(err, "cache: memcached %s", op)
	}
}

func memcachedExpiration(expires time.Duration) int32 {
	if expires > memcachedRelativeLimit {
		return int32(time.Now().Add(expires).Unix())
	}
	secs := int32(expires / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

func (c *memcachedCache) Get(ctx context.Context, key string) (bool, any, error) {
	if err := ctx.Err(); err != nil {
		return false, nil, err
	}
	item, err := c.client.Get(c.prefixKey(key))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, memcachedError(err, "get")
	}
	return true, Raw(item.Value), nil
}

func (c *memcachedCache) GetMany(ctx context.Context, keys []string) (map[string]any, error) {
	result := make(map[string]any, len(keys))
	if len(keys) == 0 {
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefixed := make([]string, len(keys))
	lookup := make(map[string]string, len(keys))
	for i, key := range keys {
		prefixed[i] = c.prefixKey(key)
		lookup[prefixed[i]] = key
	}
	items, err := c.client.GetMulti(prefixed)
	if err != nil {
		return nil, memcachedError(err, "get multi")
	}
	for k, item := range items {
		result[lookup[k]] = Raw(item.Value)
	}
	return result, nil
}

func (c *memcachedCache) Has(ctx context.Context, key string) (bool, error) {
	found, _, err := c.Get(ctx, key)
	return found, err
}

func (c *memcachedCache) Set(ctx context.Context, key string, val any, expires time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if expires <= 0 {
		expires = c.cfg.defaultExpires
	}
	data, err := encode(val)
	if err != nil {
		return err
	}
	if err := c.cfg.checkSize(data); err != nil {
		return err
	}
	err = c.client.Set(&memcache.Item{
		Key:        c.prefixKey(key),
		Value:      data,
		Expiration: memcachedExpiration(expires),
	})
	if err != nil {
		return memcachedError(err, "set")
	}
	return nil
}

func (c *memcachedCache) Delete(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	err := c.client.Delete(c.prefixKey(key))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, memcachedError(err, "delete")
	}
	return true, nil
}

// Close is a no-op; the caller owns the memcache client lifecycle.
func (c *memcachedCache) Close() error {
	return nil
}
