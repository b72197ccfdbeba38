package memoize

import (
	"time"

	"github.com/agentuity/go-memoize/chunk"
	"github.com/agentuity/go-memoize/keys"
	"github.com/agentuity/go-memoize/logger"
)

// DefaultExpiration is how long memoized values live when neither the call
// nor the Config says otherwise.
const DefaultExpiration = 30 * 24 * time.Hour

// Config is the deployment-level configuration of a Memoizer. Zero fields
// take their defaults.
type Config struct {
	// MaxKeyLength bounds every backend key. Defaults to keys.DefaultMaxLength.
	MaxKeyLength int
	// ChunkSize is the largest chunk written for large values, and the
	// threshold of the oversize warning for small ones. Defaults to
	// chunk.DefaultSize.
	ChunkSize int
	// DefaultExpiration applies to calls without WithExpiration.
	DefaultExpiration time.Duration
	// Namespace prefixes every key. Resolution failures fall back to the
	// bare key.
	Namespace keys.Resolver
	// SingleFlight makes concurrent misses on the same key share one
	// compute call instead of each computing and writing. The shared call
	// runs with the context of the caller that started it. If that context
	// ends, the other callers get its cancellation error only when their own
	// context has ended too; otherwise they compute again with their own.
	SingleFlight bool
	// MeasureSerializedSize makes the oversize warning on the small-value
	// path measure the msgpack encoding instead of the value's length.
	MeasureSerializedSize bool
}

// DefaultConfig returns a Config with every default filled in.
func DefaultConfig() Config {
	return Config{
		MaxKeyLength:      keys.DefaultMaxLength,
		ChunkSize:         chunk.DefaultSize,
		DefaultExpiration: DefaultExpiration,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxKeyLength <= 0 {
		c.MaxKeyLength = def.MaxKeyLength
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = def.ChunkSize
	}
	if c.DefaultExpiration <= 0 {
		c.DefaultExpiration = def.DefaultExpiration
	}
	return c
}

// Option configures the collaborators of a Memoizer.
type Option func(*Memoizer)

// WithLogger sets the logger. Defaults to a console logger whose level
// comes from MEMOIZE_LOG_LEVEL.
func WithLogger(l logger.Logger) Option {
	return func(m *Memoizer) { m.logger = l }
}

// WithMetrics records hits, misses and failures into metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Memoizer) { m.metrics = metrics }
}

type callOptions struct {
	expiration time.Duration
	force      bool
	large      bool
	compress   bool
}

func (c callOptions) path() string {
	if c.large {
		return pathLarge
	}
	return pathSmall
}

// CallOption configures a single Memoize or Lookup call.
type CallOption func(*callOptions)

// WithExpiration sets the TTL of values stored by this call.
func WithExpiration(d time.Duration) CallOption {
	return func(c *callOptions) { c.expiration = d }
}

// ForceOverwrite always computes and stores, ignoring any cached value.
func ForceOverwrite() CallOption {
	return func(c *callOptions) { c.force = true }
}

// Large stores the value through the chunked path, for values that may
// exceed the backend's value size limit.
func Large() CallOption {
	return func(c *callOptions) { c.large = true }
}

// WithCompression toggles zlib compression of large values. On by default.
// Reads must use the same setting as the write that produced the value.
func WithCompression(enabled bool) CallOption {
	return func(c *callOptions) { c.compress = enabled }
}
