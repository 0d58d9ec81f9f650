// Package lock provides per-work-item mutual exclusion backed by the shared
// cache. A lease is an expiring key holding a random token: acquisition is a
// set-if-absent, extension and release are token-guarded so a holder whose
// lease expired cannot stomp a successor. Leases auto-extend while held and
// signal loss through Done.
package lock
