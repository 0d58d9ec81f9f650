package main

import (
	"log/slog"

	"quill/internal/stage/drafting"
	"quill/internal/statestore"
	"quill/internal/worker"
)

// registerStages wires the drafting stage handlers into the runner.
func registerStages(runner *worker.Runner, store *statestore.Store, logger *slog.Logger) {
	runner.Register(drafting.NewStructurer(store, logger))
	runner.Register(drafting.NewPlanner(store, logger))
	runner.Register(drafting.NewWriter(store, logger))
}
