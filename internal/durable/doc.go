// Package durable is the thin HTTP client for the authoritative persistence
// service backing the cache.
//
// The wire protocol is small: POST /state/{work_id} replaces named fields,
// GET /state/{work_id}?fields= fetches them, POST /clear/{work_id} removes
// them. A 404 means "not yet initialized" and is returned as a nil map, never
// as an error; an unreachable service is tagged services.ErrUnavailable so
// callers can fail the operation in progress without corrupting the cache.
package durable
