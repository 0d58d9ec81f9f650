// Package pipeline defines the drafting pipeline data model: the ordered stage
// table, per-stage status, orchestration state snapshots, and the broadcast
// event envelope.
//
// State and event histories are append-only; the last history element is the
// authoritative current value. Treat this package as the single source of
// truth for stage semantics; new stages are added to the stage table here and
// nowhere else.
package pipeline
