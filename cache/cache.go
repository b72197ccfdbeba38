package cache

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// Backend is the key-value capability the memoizer runs on. Every method
// is atomic for its own key only; there are no cross-key transactions.
type Backend interface {
	// Get retrieves a value. found is false when the key is absent or expired.
	Get(ctx context.Context, key string) (found bool, val any, err error)
	// GetMany retrieves several values in one round trip where the backend
	// allows it. Absent keys are omitted from the result.
	GetMany(ctx context.Context, keys []string) (map[string]any, error)
	// Has reports whether key is present.
	Has(ctx context.Context, key string) (bool, error)
	// Set stores a value with a TTL. If expires <= 0, the backend's configured
	// default TTL is used.
	Set(ctx context.Context, key string, val any, expires time.Duration) error
	// Delete removes a key, reporting whether it was present.
	Delete(ctx context.Context, key string) (bool, error)
	// Close shuts down the backend.
	Close() error
}

// Raw is a msgpack-encoded value as returned by serializing backends
// (Redis, Memcached, SQLite). In-memory backends return values as stored.
type Raw []byte

var (
	// ErrValueTooLarge is returned by Set when a value exceeds the backend's
	// per-value size limit.
	ErrValueTooLarge = errors.New("cache: value too large")
	// ErrKeyTooLong is returned when a key exceeds the backend's key limit.
	ErrKeyTooLong = errors.New("cache: key too long")
)

// As converts a value returned by a Backend into T. Live values are type
// asserted; Raw values are deserialized with msgpack. A stored nil converts
// to the zero value of T.
func As[T any](val any) (T, error) {
	var zero T
	if val == nil {
		return zero, nil
	}
	if raw, ok := val.(Raw); ok {
		var result T
		if err := msgpack.Unmarshal(raw, &result); err != nil {
			return zero, errors.Wrap(err, "cache: failed to unmarshal value")
		}
		return result, nil
	}
	if typed, ok := val.(T); ok {
		return typed, nil
	}
	return zero, errors.Newf("cache: cannot convert value of type %T to %T", val, zero)
}

// Get retrieves a typed value from a Backend.
func Get[T any](ctx context.Context, b Backend, key string) (bool, T, error) {
	var zero T
	found, val, err := b.Get(ctx, key)
	if !found || err != nil {
		return false, zero, err
	}
	typed, err := As[T](val)
	if err != nil {
		return false, zero, err
	}
	return true, typed, nil
}

func encode(val any) (Raw, error) {
	data, err := msgpack.Marshal(val)
	if err != nil {
		return nil, errors.Wrap(err, "cache: failed to marshal value")
	}
	return data, nil
}

// DefaultExpires is the TTL used when Set is called with expires <= 0.
const DefaultExpires = 5 * time.Minute

// DefaultQueryTimeout is the per-operation timeout for cache backends that
// perform I/O (SQLite, Redis, Memcached). Prevents indefinite hangs on slow or
// unresponsive storage.
const DefaultQueryTimeout = 5 * time.Second

// config holds the resolved configuration for a cache implementation.
type config struct {
	defaultExpires time.Duration
	queryTimeout   time.Duration
	expiryCheck    time.Duration
	prefix         string
	maxValueSize   int
}

// Option configures a Backend implementation.
type Option func(*config)

func defaultConfig() config {
	return config{
		defaultExpires: DefaultExpires,
		queryTimeout:   DefaultQueryTimeout,
		expiryCheck:    time.Minute,
	}
}

func applyOptions(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithExpires sets the default TTL for cached values. This is used when
// Set is called with expires <= 0. Defaults to DefaultExpires (5 minutes).
func WithExpires(d time.Duration) Option {
	return func(c *config) { c.defaultExpires = d }
}

// WithQueryTimeout sets the per-operation timeout for I/O-backed caches.
// Defaults to DefaultQueryTimeout (5 seconds).
func WithQueryTimeout(d time.Duration) Option {
	return func(c *config) { c.queryTimeout = d }
}

// WithExpiryCheck sets the interval for background expired entry cleanup.
// Applies to InMemory and SQLite backends. Defaults to 1 minute.
func WithExpiryCheck(d time.Duration) Option {
	return func(c *config) { c.expiryCheck = d }
}

// WithPrefix sets the key prefix for namespacing cache keys.
// Applies to the Redis and Memcached backends. Defaults to empty (no prefix).
// The prefix and a ":" separator are prepended to every key, so callers
// bounding key length for Memcached's 250 byte limit must leave room for
// them.
func WithPrefix(p string) Option {
	return func(c *config) { c.prefix = p }
}

// WithMaxValueSize makes Set reject values whose msgpack encoding exceeds n
// bytes with ErrValueTooLarge, the way memcached rejects items over its slab
// size. Zero disables the check.
func WithMaxValueSize(n int) Option {
	return func(c *config) { c.maxValueSize = n }
}

func (c config) checkSize(val any) error {
	if c.maxValueSize <= 0 {
		return nil
	}
	var size int
	switch v := val.(type) {
	case Raw:
		size = len(v)
	default:
		data, err := encode(val)
		if err != nil {
			return err
		}
		size = len(data)
	}
	if size > c.maxValueSize {
		return errors.Wrapf(ErrValueTooLarge, "%d bytes exceeds limit of %d", size, c.maxValueSize)
	}
	return nil
}
