// Package cache provides the key-value backend capability used by the
// memoizer, with several implementations and typed helpers.
//
// # Backend Interface
//
// The [Backend] interface defines six operations: [Backend.Get],
// [Backend.GetMany], [Backend.Has], [Backend.Set], [Backend.Delete] and
// [Backend.Close]. Each call is atomic for its own key only. Callers that
// store one logical value under several keys (the chunked large-value
// protocol) must order their writes so that a partial result is detectable.
//
// Every method returns an explicit error. Nothing here swallows failures;
// deciding which failures are survivable is the caller's job.
//
// # Implementations
//
//   - [NewInMemory]: In-process map guarded by a mutex. Values are stored
//     as-is (no copying, no serialization). Expired entries are removed by a
//     background goroutine at a configurable interval.
//
//   - [NewMemcached]: Backed by memcached using
//     [github.com/bradfitz/gomemcache/memcache]. This is the backend the
//     chunking protocol is sized for: 250 byte keys and a 1 MiB item limit.
//     Expirations longer than 30 days are converted to absolute timestamps
//     as memcached requires.
//
//   - [NewRedis]: Backed by Redis using [github.com/redis/go-redis/v9].
//     Values are msgpack strings with native TTLs; GetMany is a single MGET.
//     An optional key prefix namespaces several caches on one instance.
//
//   - [NewSQLite]: Backed by SQLite using [modernc.org/sqlite] (pure Go).
//     Values are msgpack BLOBs; GetMany is a single IN query.
//
//   - [NewComposite]: Chains backends in order. Reads return the first hit;
//     GetMany asks later tiers only for keys earlier tiers lacked. Writes go
//     to every tier.
//
//   - [NewBreaker]: Wraps any backend in a circuit breaker
//     ([github.com/sony/gobreaker]) so an unreachable server costs one fast
//     error instead of one timeout per call.
//
// [Open] builds any of the above from a URL such as "memcache://host:11211"
// or "redis://localhost:6379/0".
//
// # Values
//
// Serializing backends return [Raw] msgpack bytes; the in-memory backend
// returns the stored value itself. [As] and [Get] hide the difference:
//
//	found, user, err := cache.Get[User](ctx, b, "user:123")
//
// # Size Limits
//
// [WithMaxValueSize] makes Set fail with [ErrValueTooLarge] for oversized
// values, emulating memcached's item ceiling on backends that have none.
//
// # Timeouts
//
// I/O-backed implementations apply a per-operation timeout
// ([DefaultQueryTimeout], 5 seconds) derived from the caller's context.
package cache
