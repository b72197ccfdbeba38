package cache

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sony/gobreaker"
)

// BreakerConfig configures NewBreaker.
type BreakerConfig struct {
	Name string
	// MaxRequests is the number of trial requests allowed while half-open.
	MaxRequests uint32
	// Interval is the closed-state window after which failure counts reset.
	Interval time.Duration
	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OnStateChange is called on every transition, if set.
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultBreakerConfig returns a BreakerConfig suited to a cache backend.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:                name,
		MaxRequests:         1,
		Interval:            30 * time.Second,
		Timeout:             10 * time.Second,
		ConsecutiveFailures: 5,
	}
}

type breakerCache struct {
	next Backend
	cb   *gobreaker.CircuitBreaker
}

var _ Backend = (*breakerCache)(nil)

// NewBreaker wraps next so that a failing backend is skipped quickly instead
// of costing a timeout per call. While open, every operation returns
// gobreaker.ErrOpenState. Misses and oversized values are not failures.
func NewBreaker(next Backend, cfg BreakerConfig) Backend {
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 1
	}
	return &breakerCache{
		next: next,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        cfg.Name,
			MaxRequests: cfg.MaxRequests,
			Interval:    cfg.Interval,
			Timeout:     cfg.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			OnStateChange: cfg.OnStateChange,
			IsSuccessful: func(err error) bool {
				return err == nil ||
					errors.Is(err, ErrValueTooLarge) ||
					errors.Is(err, ErrKeyTooLong) ||
					errors.Is(err, context.Canceled)
			},
		}),
	}
}

// State reports the breaker state of a Backend returned by NewBreaker.
func State(b Backend) (gobreaker.State, bool) {
	if bc, ok := b.(*breakerCache); ok {
		return bc.cb.State(), true
	}
	return gobreaker.StateClosed, false
}

type getResult struct {
	found bool
	val   any
}

func (c *breakerCache) Get(ctx context.Context, key string) (bool, any, error) {
	res, err := c.cb.Execute(func() (interface{}, error) {
		found, val, err := c.next.Get(ctx, key)
		return getResult{found, val}, err
	})
	if err != nil {
		return false, nil, err
	}
	r := res.(getResult)
	return r.found, r.val, nil
}

func (c *breakerCache) GetMany(ctx context.Context, keys []string) (map[string]any, error) {
	res, err := c.cb.Execute(func() (interface{}, error) {
		return c.next.GetMany(ctx, keys)
	})
	if err != nil {
		return nil, err
	}
	return res.(map[string]any), nil
}

func (c *breakerCache) Has(ctx context.Context, key string) (bool, error) {
	res, err := c.cb.Execute(func() (interface{}, error) {
		return c.next.Has(ctx, key)
	})
	if err != nil {
		return false, err
	}
	return res.(bool), nil
}

func (c *breakerCache) Set(ctx context.Context, key string, val any, expires time.Duration) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.next.Set(ctx, key, val, expires)
	})
	return err
}

func (c *breakerCache) Delete(ctx context.Context, key string) (bool, error) {
	res, err := c.cb.Execute(func() (interface{}, error) {
		return c.next.Delete(ctx, key)
	})
	if err != nil {
		return false, err
	}
	return res.(bool), nil
}

func (c *breakerCache) Close() error {
	return c.next.Close()
}
