// Package statestore combines the TTL-bounded cache and the durable HTTP
// store into one persistence surface for orchestration state, named document
// slots, and the broadcast event replay log.
//
// Reads hit the cache first and rehydrate it from the durable store on a miss
// (write-through). Writes go to the cache first and fail fast before touching
// the durable store, so a cache failure never leaves a half-committed pair.
// Absence of state is a nil result, not an error: a work item that has never
// been saved is simply not yet initialized.
package statestore
