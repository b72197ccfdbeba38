package cache

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

type redisCache struct {
	client redis.UniversalClient
	cfg    config
}

var _ Backend = (*redisCache)(nil)

// NewRedis returns a new Backend backed by Redis. Values are stored as
// msgpack strings with native Redis TTLs.
// The caller owns the client lifecycle; Close does not close the client.
func NewRedis(client redis.UniversalClient, opts ...Option) Backend {
	return &redisCache{
		client: client,
		cfg:    applyOptions(opts),
	}
}

func (c *redisCache) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, c.cfg.queryTimeout)
}

func (c *redisCache) prefixKey(key string) string {
	if c.cfg.prefix == "" {
		return key
	}
	return c.cfg.prefix + ":" + key
}

func (c *redisCache) Get(ctx context.Context, key string) (bool, any, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	data, err := c.client.Get(qctx, c.prefixKey(key)).Bytes()
	if err == redis.Nil {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, errors.Wrap(err, "cache: redis get")
	}
	return true, Raw(data), nil
}

func (c *redisCache) GetMany(ctx context.Context, keys []string) (map[string]any, error) {
	result := make(map[string]any, len(keys))
	if len(keys) == 0 {
		return result, nil
	}
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = c.prefixKey(key)
	}
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	vals, err := c.client.MGet(qctx, prefixed...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "cache: redis mget")
	}
	for i, v := range vals {
		if s, ok := v.(string); ok {
			result[keys[i]] = Raw(s)
		}
	}
	return result, nil
}

func (c *redisCache) Has(ctx context.Context, key string) (bool, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	n, err := c.client.Exists(qctx, c.prefixKey(key)).Result()
	if err != nil {
		return false, errors.Wrap(err, "cache: redis exists")
	}
	return n > 0, nil
}

func (c *redisCache) Set(ctx context.Context, key string, val any, expires time.Duration) error {
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
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	if err := c.client.Set(qctx, c.prefixKey(key), []byte(data), expires).Err(); err != nil {
		return errors.Wrap(err, "cache: redis set")
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, key string) (bool, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	n, err := c.client.Del(qctx, c.prefixKey(key)).Result()
	if err != nil {
		return false, errors.Wrap(err, "cache: redis del")
	}
	return n > 0, nil
}

// Close is a no-op; the caller owns the redis client lifecycle.
func (c *redisCache) Close() error {
	return nil
}
