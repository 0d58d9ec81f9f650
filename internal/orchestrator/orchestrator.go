package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"quill/internal/broadcast"
	"quill/internal/lock"
	"quill/internal/logging"
	"quill/internal/pipeline"
	"quill/internal/services"
	"quill/internal/statemachine"
	"quill/internal/statestore"
)

// Dispatcher enqueues named stage tasks and returns their opaque handles.
// The SQLite task store is the production implementation.
type Dispatcher interface {
	Dispatch(ctx context.Context, name, workID string) (string, error)
}

// Result describes what an Advance call did with a work item.
type Result struct {
	Action     statemachine.ActionKind
	Stage      pipeline.Stage
	TaskHandle string
	State      pipeline.State
}

// Orchestrator coordinates stage progression for work items.
type Orchestrator struct {
	locks       *lock.Manager
	machine     *statemachine.Manager
	dispatcher  Dispatcher
	broadcaster *broadcast.Broadcaster
	store       *statestore.Store
	logger      *slog.Logger
}

// New builds an Orchestrator.
func New(locks *lock.Manager, machine *statemachine.Manager, dispatcher Dispatcher, broadcaster *broadcast.Broadcaster, store *statestore.Store, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		locks:       locks,
		machine:     machine,
		dispatcher:  dispatcher,
		broadcaster: broadcaster,
		store:       store,
		logger:      logging.NewComponentLogger(logger, "orchestrator"),
	}
}

// Advance moves a work item forward in response to an external trigger. A
// fresh work item is initialized at the first stage; an interrupted one
// resumes where it stood; a finished one is left alone. Worker-dispatched
// stages get a queued task and the state records its handle.
func (o *Orchestrator) Advance(ctx context.Context, workID string) (Result, error) {
	lease, err := o.locks.Acquire(ctx, workID)
	if err != nil {
		return Result{}, fmt.Errorf("advance %s: %w", workID, err)
	}
	defer func() { _ = lease.Release(ctx) }()

	decision, err := o.machine.InitOrRestore(ctx, workID)
	if err != nil {
		return Result{}, fmt.Errorf("advance %s: %w", workID, err)
	}

	if decision.Action == statemachine.ActionFinished {
		o.logger.Info("work item already finished",
			logging.String(logging.FieldWorkID, workID),
		)
		return Result{Action: decision.Action, State: decision.State}, nil
	}

	stage := decision.StageToRun
	decisionMessage := fmt.Sprintf("initializing at %s", stage)
	if decision.Action == statemachine.ActionRestore {
		decisionMessage = fmt.Sprintf("resuming at %s", stage)
	}
	if err := o.broadcaster.PublishStateUpdate(ctx, workID, decision.State, decisionMessage); err != nil {
		o.logger.Warn("decision broadcast failed",
			logging.String(logging.FieldWorkID, workID),
			logging.Error(err),
		)
	}

	var handle string
	if name := stage.TaskName(); name != "" {
		handle, err = o.dispatcher.Dispatch(ctx, name, workID)
		if err != nil {
			return Result{}, fmt.Errorf("dispatch %s for %s: %w", name, workID, err)
		}
	}

	state, err := o.machine.UpdateState(ctx, workID, decision.State.OverallProgress, stage, pipeline.StatusInProgress, handle)
	if err != nil {
		return Result{}, fmt.Errorf("advance %s: %w", workID, err)
	}
	if lease.Lost() {
		return Result{}, o.leaseLost(ctx, workID, stage, "advance")
	}

	if err := o.broadcaster.PublishStateUpdate(ctx, workID, state, ""); err != nil {
		o.logger.Warn("state update broadcast failed",
			logging.String(logging.FieldWorkID, workID),
			logging.Error(err),
		)
	}

	o.logger.Info("advanced work item",
		logging.String(logging.FieldWorkID, workID),
		logging.String(logging.FieldStage, string(stage)),
		logging.String("action", string(decision.Action)),
		logging.String(logging.FieldTaskHandle, handle),
	)
	return Result{Action: decision.Action, Stage: stage, TaskHandle: handle, State: state}, nil
}

// CompleteStage marks the work item's active stage completed and bumps the
// overall progress to the stage checkpoint. It does not start the successor;
// callers chain a subsequent Advance for that.
func (o *Orchestrator) CompleteStage(ctx context.Context, workID string, stage pipeline.Stage) (pipeline.State, error) {
	lease, err := o.locks.Acquire(ctx, workID)
	if err != nil {
		return pipeline.State{}, fmt.Errorf("complete %s: %w", workID, err)
	}
	defer func() { _ = lease.Release(ctx) }()

	if _, err := o.requireActiveStage(ctx, workID, stage, "complete_stage"); err != nil {
		return pipeline.State{}, err
	}

	state, err := o.machine.UpdateState(ctx, workID, stage.Checkpoint(), stage, pipeline.StatusCompleted, "")
	if err != nil {
		return pipeline.State{}, fmt.Errorf("complete %s: %w", workID, err)
	}
	if lease.Lost() {
		return pipeline.State{}, o.leaseLost(ctx, workID, stage, "complete_stage")
	}

	if err := o.broadcaster.PublishStateUpdate(ctx, workID, state, fmt.Sprintf("%s complete", stage)); err != nil {
		o.logger.Warn("completion broadcast failed",
			logging.String(logging.FieldWorkID, workID),
			logging.Error(err),
		)
	}
	return state, nil
}

// FailStage marks the work item's active stage failed and broadcasts an error
// event. Progress is left where it stood so a later Advance resumes the same
// stage.
func (o *Orchestrator) FailStage(ctx context.Context, workID string, stage pipeline.Stage, message string) (pipeline.State, error) {
	lease, err := o.locks.Acquire(ctx, workID)
	if err != nil {
		return pipeline.State{}, fmt.Errorf("fail %s: %w", workID, err)
	}
	defer func() { _ = lease.Release(ctx) }()

	current, err := o.requireActiveStage(ctx, workID, stage, "fail_stage")
	if err != nil {
		return pipeline.State{}, err
	}

	state, err := o.machine.UpdateState(ctx, workID, current.OverallProgress, stage, pipeline.StatusFailed, "")
	if err != nil {
		return pipeline.State{}, fmt.Errorf("fail %s: %w", workID, err)
	}

	if err := o.broadcaster.PublishError(ctx, workID, stage, message); err != nil {
		o.logger.Warn("error broadcast failed",
			logging.String(logging.FieldWorkID, workID),
			logging.Error(err),
		)
	}
	o.logger.Error("stage failed",
		logging.String(logging.FieldWorkID, workID),
		logging.String(logging.FieldStage, string(stage)),
		logging.String("reason", message),
	)
	return state, nil
}

// Status returns the current state without taking the lock; reads go through
// the cache-fronted store.
func (o *Orchestrator) Status(ctx context.Context, workID string) (*pipeline.State, *pipeline.History, error) {
	return o.store.GetState(ctx, workID)
}

// Cleanup removes the work item's recorded slots from cache and durable
// store.
func (o *Orchestrator) Cleanup(ctx context.Context, workID string, slots ...string) (map[string]bool, error) {
	lease, err := o.locks.Acquire(ctx, workID)
	if err != nil {
		return nil, fmt.Errorf("cleanup %s: %w", workID, err)
	}
	defer func() { _ = lease.Release(ctx) }()

	return o.store.Clear(ctx, workID, slots...)
}

func (o *Orchestrator) requireActiveStage(ctx context.Context, workID string, stage pipeline.Stage, op string) (pipeline.State, error) {
	current, _, err := o.store.GetState(ctx, workID)
	if err != nil {
		return pipeline.State{}, fmt.Errorf("%s %s: %w", op, workID, err)
	}
	if current == nil {
		return pipeline.State{}, services.Wrap(services.ErrNotFound, "orchestrator", op,
			fmt.Sprintf("work item %s has no recorded state", workID), nil)
	}
	if current.ActiveStage != stage {
		return pipeline.State{}, services.Wrap(services.ErrValidation, "orchestrator", op,
			fmt.Sprintf("stage %s is not active for %s (active: %s)", stage, workID, current.ActiveStage), nil)
	}
	return *current, nil
}

// leaseLost records a failed stage attempt after the work item's lock expired
// mid-operation. The item must not keep looking live: the stage is marked
// failed, an error event goes out, and the caller gets a transient error so a
// later trigger retries the stage.
func (o *Orchestrator) leaseLost(ctx context.Context, workID string, stage pipeline.Stage, op string) error {
	message := fmt.Sprintf("lock lease expired during %s", op)

	progress := 0
	if current, _, err := o.store.GetState(ctx, workID); err == nil && current != nil {
		progress = current.OverallProgress
	}
	if _, err := o.machine.UpdateState(ctx, workID, progress, stage, pipeline.StatusFailed, ""); err != nil {
		o.logger.Error("failed to record lease loss",
			logging.String(logging.FieldWorkID, workID),
			logging.Error(err),
		)
	}
	if err := o.broadcaster.PublishError(ctx, workID, stage, message); err != nil {
		o.logger.Warn("error broadcast failed",
			logging.String(logging.FieldWorkID, workID),
			logging.Error(err),
		)
	}
	o.logger.Error("lock lease lost",
		logging.String(logging.FieldWorkID, workID),
		logging.String(logging.FieldStage, string(stage)),
		logging.String("operation", op),
	)
	return services.Wrap(services.ErrTransient, "orchestrator", op,
		fmt.Sprintf("%s for %s", message, workID), nil)
}
