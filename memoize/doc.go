// Package memoize caches the results of expensive computations in a
// size-limited key-value cache.
//
// Small values are stored under a single key. Values that may exceed the
// backend's value size limit are stored with Large: serialized, optionally
// compressed and split into chunks, with an index record holding the chunk
// count written last.
//
//	m := memoize.New(backend, memoize.Config{Namespace: keys.Site("example.com", "/")})
//	page, err := memoize.Memoize(ctx, m, "page:/about", render)
//
// The cache is an optimization only. Any cache failure falls back to calling
// the compute function, and the only error returned is the one it returned.
package memoize
