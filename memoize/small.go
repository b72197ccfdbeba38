package memoize

import (
	"context"
	"reflect"

	"github.com/agentuity/go-memoize/cache"
	"github.com/vmihailenco/msgpack/v5"
)

func lookupSmall[T any](ctx context.Context, m *Memoizer, key string) (T, bool) {
	var zero T
	found, raw, err := m.backend.Get(ctx, key)
	if err != nil {
		m.logger.Warn("Failed to read cache for key %s: %s", key, err)
		m.metrics.fetchFailure(reasonBackend)
		return zero, false
	}
	if !found {
		m.logger.Debug("Cache miss for key %s.", key)
		return zero, false
	}
	val, err := cache.As[T](raw)
	if err != nil {
		m.logger.Warn("Failed to decode cached data for key %s: %s", key, err)
		m.metrics.fetchFailure(reasonDecode)
		return zero, false
	}
	return val, true
}

func (m *Memoizer) storeSmall(ctx context.Context, key string, value any, call callOptions) {
	if size, ok := m.sizeOf(value); ok && size >= m.cfg.ChunkSize {
		m.logger.Warn("Cache data for key %s (length %d) may be too big for the cache.", key, size)
	}
	if err := m.backend.Set(ctx, key, value, call.expiration); err != nil {
		m.logger.Debug("Failed to store cache data for key %s: %s", key, err)
		m.metrics.storeFailure(pathSmall)
	}
}

// sizeOf estimates the stored size of value. Without MeasureSerializedSize
// only values with a length (strings, slices, arrays, maps) are measured.
func (m *Memoizer) sizeOf(value any) (int, bool) {
	if m.cfg.MeasureSerializedSize {
		data, err := msgpack.Marshal(value)
		if err != nil {
			return 0, false
		}
		return len(data), true
	}
	if value == nil {
		return 0, false
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), true
	default:
		return 0, false
	}
}
