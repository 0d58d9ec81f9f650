// Package cache provides the shared TTL-bounded key-value store fronting the
// durable persistence service, plus the conditional primitives the lease lock
// is built on.
//
// Two implementations exist: a Redis-backed store for shared deployments and
// an in-process store used when no Redis address is configured and by tests.
// The cache is never authoritative; every entry can be rebuilt from the
// durable store.
package cache
