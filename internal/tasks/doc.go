// Package tasks persists the dispatch queue in SQLite. The orchestrator
// enqueues one task per worker-dispatched stage and hands the opaque task
// handle back to the state machine; workers claim pending tasks, heartbeat
// while executing, and record success or failure. Stale started tasks whose
// heartbeat lapses are reclaimed to pending so an interrupted worker never
// strands a work item.
package tasks
