package memoize

import (
	"context"

	"github.com/agentuity/go-memoize/cache"
	"github.com/agentuity/go-memoize/chunk"
	"github.com/cockroachdb/errors"
)

var (
	// ErrMissingChunk means the index or one of the chunks of a large value
	// is no longer in the backend, usually because it was evicted.
	ErrMissingChunk = errors.New("memoize: missing chunk")
	// ErrMalformedIndex means the record under a large value's key is not a
	// positive chunk count.
	ErrMalformedIndex = errors.New("memoize: malformed chunk index")
)

const (
	reasonMissingChunk = "missing_chunk"
	reasonDecode       = "decode"
	reasonIndex        = "index"
	reasonBackend      = "backend"
)

func fetchReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingChunk):
		return reasonMissingChunk
	case errors.Is(err, chunk.ErrCorrupt):
		return reasonDecode
	case errors.Is(err, ErrMalformedIndex):
		return reasonIndex
	default:
		return reasonBackend
	}
}

func lookupLarge[T any](ctx context.Context, m *Memoizer, key string, call callOptions) (T, bool) {
	var zero T
	found, err := m.backend.Has(ctx, key)
	if err != nil {
		m.logger.Warn("Failed to check cache for key %s: %s", key, err)
		m.metrics.fetchFailure(reasonBackend)
		return zero, false
	}
	if !found {
		m.logger.Debug("Cache miss for key %s.", key)
		return zero, false
	}
	val, err := fetchLarge[T](ctx, m, key, call.compress)
	if err != nil {
		if errors.Is(err, ErrMissingChunk) {
			m.logger.Debug("Cache miss for key %s: %s", key, err)
		} else {
			m.logger.Warn("Failed to fetch large data from cache for key %s: %s", key, err)
		}
		m.metrics.fetchFailure(fetchReason(err))
		return zero, false
	}
	return val, true
}

// fetchLarge reads the chunk index under key, then every chunk, and decodes
// the joined stream into T.
func fetchLarge[T any](ctx context.Context, m *Memoizer, key string, compressed bool) (T, error) {
	var zero T
	found, raw, err := m.backend.Get(ctx, key)
	if err != nil {
		return zero, errors.Wrap(err, "read chunk index")
	}
	if !found {
		return zero, errors.Wrapf(ErrMissingChunk, "index %s", key)
	}
	count, err := cache.As[int](raw)
	if err != nil {
		return zero, errors.Mark(errors.Wrapf(err, "index %s", key), ErrMalformedIndex)
	}
	if count <= 0 {
		return zero, errors.Wrapf(ErrMalformedIndex, "index %s holds %d", key, count)
	}

	chunkKeys := chunk.ChunkKeys(key, count)
	vals, err := m.backend.GetMany(ctx, chunkKeys)
	if err != nil {
		return zero, errors.Wrap(err, "read chunks")
	}
	chunks := make([][]byte, count)
	for i, k := range chunkKeys {
		v, ok := vals[k]
		if !ok {
			return zero, errors.Wrapf(ErrMissingChunk, "chunk %d of %d", i, count)
		}
		rec, err := cache.As[chunk.Record](v)
		if err != nil {
			return zero, errors.Mark(errors.Wrapf(err, "chunk %d of %d", i, count), chunk.ErrCorrupt)
		}
		chunks[i] = rec.Data
	}
	return chunk.DecodeValue[T](chunks, compressed)
}

// storeLarge writes every chunk and then the index. The index goes last so
// a reader never sees a count whose chunks were not all written; a failed
// chunk write skips it entirely.
func (m *Memoizer) storeLarge(ctx context.Context, key string, value any, call callOptions) {
	chunks, err := chunk.Encode(value, call.compress, m.cfg.ChunkSize)
	if err != nil {
		m.logger.Warn("Failed to encode large data for key %s: %s", key, err)
		m.metrics.storeFailure(pathLarge)
		return
	}
	for i, data := range chunks {
		if err := m.backend.Set(ctx, chunk.ChunkKey(key, i), chunk.Record{Data: data}, call.expiration); err != nil {
			m.logger.Debug("Failed to store chunk %d of %d for key %s: %s", i, len(chunks), key, err)
			m.metrics.storeFailure(pathLarge)
			return
		}
	}
	if err := m.backend.Set(ctx, key, len(chunks), call.expiration); err != nil {
		m.logger.Debug("Failed to store chunk index for key %s: %s", key, err)
		m.metrics.storeFailure(pathLarge)
		return
	}
	m.metrics.chunksWritten(len(chunks))
}
