package statemachine

import (
	"context"
	"fmt"
	"log/slog"

	"quill/internal/logging"
	"quill/internal/pipeline"
	"quill/internal/services"
	"quill/internal/statestore"
)

// ActionKind names the outcome of an init-or-restore decision.
type ActionKind string

const (
	// ActionInit means the work item had no recorded state and a fresh one
	// was created at the first stage.
	ActionInit ActionKind = "INIT"
	// ActionRestore means recorded state exists and processing should resume
	// at the decision's StageToRun.
	ActionRestore ActionKind = "RESTORE"
	// ActionFinished means the terminal stage already completed; there is
	// nothing left to run.
	ActionFinished ActionKind = "FINISHED"
)

// Decision is the result of InitOrRestore: the current state snapshot, which
// stage should run next, and how the decision was reached.
type Decision struct {
	State      pipeline.State
	StageToRun pipeline.Stage
	Action     ActionKind
}

// Manager owns stage-transition semantics on top of the state store.
type Manager struct {
	store  *statestore.Store
	logger *slog.Logger
}

// New builds a Manager.
func New(store *statestore.Store, logger *slog.Logger) *Manager {
	return &Manager{
		store:  store,
		logger: logging.NewComponentLogger(logger, "statemachine"),
	}
}

// InitOrRestore inspects the recorded state for a work item and decides where
// processing should go. A work item with no state is initialized at the first
// stage and the fresh snapshot is persisted before returning. Callers must
// hold the work item's lock.
func (m *Manager) InitOrRestore(ctx context.Context, workID string) (Decision, error) {
	current, _, err := m.store.GetState(ctx, workID)
	if err != nil {
		return Decision{}, fmt.Errorf("load state: %w", err)
	}

	if current == nil {
		state := pipeline.NewState(0, pipeline.FirstStage(), pipeline.StatusNotStarted, "")
		if err := m.store.SaveState(ctx, workID, state); err != nil {
			return Decision{}, fmt.Errorf("persist initial state: %w", err)
		}
		m.logger.Info("initialized work item",
			logging.String(logging.FieldWorkID, workID),
			logging.String(logging.FieldStage, string(state.ActiveStage)),
		)
		return Decision{State: state, StageToRun: state.ActiveStage, Action: ActionInit}, nil
	}

	if current.Finished() {
		return Decision{State: *current, Action: ActionFinished}, nil
	}

	stageToRun := current.ActiveStage
	if current.StageStatus == pipeline.StatusCompleted {
		next, ok := current.ActiveStage.Successor()
		if !ok {
			// Completed but not Finished and no successor: the stage table
			// and the recorded state disagree.
			return Decision{}, services.Wrap(services.ErrValidation, "statemachine", "init_or_restore",
				fmt.Sprintf("stage %s completed with no successor for work item %s", current.ActiveStage, workID), nil)
		}
		stageToRun = next
	}

	m.logger.Info("restoring work item",
		logging.String(logging.FieldWorkID, workID),
		logging.String(logging.FieldStage, string(stageToRun)),
		logging.String("stage_status", string(current.StageStatus)),
	)
	return Decision{State: *current, StageToRun: stageToRun, Action: ActionRestore}, nil
}

// UpdateState appends a new snapshot for an existing work item. The stage
// change from the current snapshot is validated against the transition table;
// updating a work item that was never initialized is an error. Callers must
// hold the work item's lock.
func (m *Manager) UpdateState(ctx context.Context, workID string, progress int, stage pipeline.Stage, status pipeline.Status, taskHandle string) (pipeline.State, error) {
	current, _, err := m.store.GetState(ctx, workID)
	if err != nil {
		return pipeline.State{}, fmt.Errorf("load state: %w", err)
	}
	if current == nil {
		return pipeline.State{}, services.Wrap(services.ErrNotFound, "statemachine", "update_state",
			fmt.Sprintf("work item %s has no recorded state", workID), nil)
	}

	if stage == "" {
		stage = current.ActiveStage
	}
	if stage != current.ActiveStage {
		if err := m.ValidateTransition(current.ActiveStage, stage); err != nil {
			return pipeline.State{}, err
		}
	}

	state := pipeline.NewState(progress, stage, status, taskHandle)
	state.CreatedAt = current.CreatedAt
	if err := m.store.SaveState(ctx, workID, state); err != nil {
		return pipeline.State{}, fmt.Errorf("persist state: %w", err)
	}
	return state, nil
}

// ValidateTransition rejects any stage change that is not the configured
// successor of the source stage.
func (m *Manager) ValidateTransition(from, to pipeline.Stage) error {
	if pipeline.ValidTransition(from, to) {
		return nil
	}
	return services.Wrap(services.ErrValidation, "statemachine", "validate_transition",
		fmt.Sprintf("illegal stage transition %s -> %s", from, to), nil)
}
