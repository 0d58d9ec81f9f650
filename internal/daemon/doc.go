// Package daemon coordinates the background services and enforces
// single-instance execution through a file lock. It owns the worker runner's
// lifecycle and exposes the operations the CLI needs: submitting uploads,
// reporting stage outcomes, and inspecting state.
package daemon
