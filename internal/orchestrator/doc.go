// Package orchestrator ties the state machine, task queue, lock, and
// broadcaster together. Every entry point serializes on the work item's lock,
// asks the state machine where processing stands, and then dispatches stage
// work or records its outcome. External triggers funnel through Advance;
// workers report through CompleteStage and FailStage.
package orchestrator
