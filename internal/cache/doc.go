// Package cache provides the embedding cache: a bounded, memoizing
// layer in front of the external embedding capability so identical
// texts are never fetched twice while an entry is resident.
//
// Two vector stores are available: an in-memory FIFO store with
// insertion-order eviction (the default) and a Redis-backed store for
// deployments that share a cache across processes. The CachingEmbedder
// decorator collapses concurrent misses for the same key with
// singleflight, so a burst of identical lookups issues one upstream
// call.
//
// This package is internal and should not be imported by external projects.
package cache
