// Package worker runs the task-processing loops. Each worker claims the
// oldest pending task, resolves its stage handler, heartbeats the task while
// the handler executes, and reports the outcome back through the
// orchestrator. A successful stage chains straight into an Advance so the
// successor is dispatched without waiting for an external trigger.
package worker
