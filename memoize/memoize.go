package memoize

import (
	"context"

	"github.com/agentuity/go-memoize/cache"
	"github.com/agentuity/go-memoize/keys"
	"github.com/agentuity/go-memoize/logger"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const (
	pathSmall = "small"
	pathLarge = "large"
)

// Memoizer caches the results of expensive computations in a Backend.
// It is safe for concurrent use.
type Memoizer struct {
	backend cache.Backend
	keys    *keys.Normalizer
	cfg     Config
	logger  logger.Logger
	metrics *Metrics
	group   *singleflight.Group
}

// New returns a Memoizer storing into backend.
func New(backend cache.Backend, cfg Config, opts ...Option) *Memoizer {
	cfg = cfg.withDefaults()
	m := &Memoizer{
		backend: backend,
		keys:    keys.NewNormalizer(cfg.MaxKeyLength, cfg.Namespace),
		cfg:     cfg,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logger.NewConsoleLogger()
	}
	m.logger = m.logger.WithPrefix("[memoize]")
	if cfg.SingleFlight {
		m.group = &singleflight.Group{}
	}
	return m
}

// Config returns the effective configuration.
func (m *Memoizer) Config() Config {
	return m.cfg
}

// NormalizeKey returns the literal backend key used for key.
func (m *Memoizer) NormalizeKey(ctx context.Context, key string) string {
	return m.keys.Normalize(ctx, key)
}

// Invalidate removes the cached value for key. For a large value only the
// chunk index is removed, which is enough to make it a miss; the chunks
// expire on their own.
func (m *Memoizer) Invalidate(ctx context.Context, key string) (bool, error) {
	return m.backend.Delete(ctx, m.NormalizeKey(ctx, key))
}

func (m *Memoizer) callOptions(opts []CallOption) callOptions {
	c := callOptions{compress: true}
	for _, opt := range opts {
		opt(&c)
	}
	if c.expiration <= 0 {
		c.expiration = m.cfg.DefaultExpiration
	}
	return c
}

// Memoize returns the cached value for key, or calls compute and caches its
// result. Cache failures of any kind (unreachable backend, evicted chunks,
// undecodable data, rejected writes) degrade to calling compute; the only
// error Memoize returns is the one compute returned, unchanged.
func Memoize[T any](ctx context.Context, m *Memoizer, key string, compute func(context.Context) (T, error), opts ...CallOption) (T, error) {
	call := m.callOptions(opts)
	nkey := m.NormalizeKey(ctx, key)

	ctx, span := tracer.Start(ctx, "memoize.Memoize", trace.WithAttributes(
		attribute.String("memoize.key", nkey),
		attribute.Bool("memoize.large", call.large),
		attribute.Bool("memoize.force", call.force),
	))
	defer span.End()

	if !call.force {
		if val, ok := lookup[T](ctx, m, nkey, call); ok {
			span.SetAttributes(attribute.Bool("memoize.hit", true))
			return val, nil
		}
	}
	span.SetAttributes(attribute.Bool("memoize.hit", false))

	run := func(ctx context.Context) (T, error) {
		val, err := compute(ctx)
		if err != nil {
			return val, err
		}
		if call.large {
			m.storeLarge(ctx, nkey, val, call)
		} else {
			m.storeSmall(ctx, nkey, val, call)
		}
		return val, nil
	}

	var (
		val T
		err error
	)
	if m.group != nil {
		val, err = shared(m.group, nkey+"|"+call.path(), func() (T, error) { return run(ctx) })
		if err != nil && ctx.Err() == nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			// the shared call ran under another caller's context, which ended
			m.logger.Debug("Shared computation for key %s was cancelled, computing again: %s", nkey, err)
			val, err = run(ctx)
		}
	} else {
		val, err = run(ctx)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return val, err
}

// shared runs fn once per key across concurrent callers. A caller whose
// type does not match the shared result computes on its own.
func shared[T any](group *singleflight.Group, key string, fn func() (T, error)) (T, error) {
	res, err, _ := group.Do(key, func() (interface{}, error) {
		return fn()
	})
	var zero T
	if err != nil {
		if typed, ok := res.(T); ok {
			zero = typed
		}
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	if typed, ok := res.(T); ok {
		return typed, nil
	}
	return fn()
}

// Lookup returns the cached value for key without ever computing it. The
// options must match those of the call that stored the value. Any cache
// failure is reported as a miss.
func Lookup[T any](ctx context.Context, m *Memoizer, key string, opts ...CallOption) (T, bool) {
	call := m.callOptions(opts)
	return lookup[T](ctx, m, m.NormalizeKey(ctx, key), call)
}

func lookup[T any](ctx context.Context, m *Memoizer, key string, call callOptions) (T, bool) {
	var (
		val T
		ok  bool
	)
	if call.large {
		val, ok = lookupLarge[T](ctx, m, key, call)
	} else {
		val, ok = lookupSmall[T](ctx, m, key)
	}
	if ok {
		m.metrics.hit(call.path())
	} else {
		m.metrics.miss(call.path())
	}
	return val, ok
}
