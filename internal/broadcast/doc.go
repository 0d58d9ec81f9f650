// Package broadcast publishes state-change events on per-work-item channels
// and records them in a replayable history.
//
// Live delivery is fire-and-forget: zero or more subscribers may be listening
// and a publish failure only warns. The replay history, persisted through the
// statestore, is the durable record of what has happened; reconnecting
// observers reconstruct the full sequence from it. The transport is abstracted
// behind Publisher so Redis pub/sub and the in-process hub are interchangeable.
package broadcast
