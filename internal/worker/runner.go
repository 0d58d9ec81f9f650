package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"quill/internal/config"
	"quill/internal/lock"
	"quill/internal/logging"
	"quill/internal/orchestrator"
	"quill/internal/pipeline"
	"quill/internal/services"
	"quill/internal/stage"
	"quill/internal/tasks"
)

// Runner drives the configured number of worker loops over the task queue.
type Runner struct {
	cfg       *config.Config
	store     *tasks.Store
	orch      *orchestrator.Orchestrator
	heartbeat *HeartbeatMonitor
	logger    *slog.Logger

	handlers map[pipeline.Stage]stage.Handler

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	group   *errgroup.Group

	pollInterval  time.Duration
	retryInterval time.Duration
}

// NewRunner builds a Runner. Handlers are registered separately before Start.
func NewRunner(cfg *config.Config, store *tasks.Store, orch *orchestrator.Orchestrator, logger *slog.Logger) *Runner {
	componentLogger := logging.NewComponentLogger(logger, "worker")
	return &Runner{
		cfg:   cfg,
		store: store,
		orch:  orch,
		heartbeat: NewHeartbeatMonitor(
			store,
			componentLogger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
		logger:        componentLogger,
		handlers:      make(map[pipeline.Stage]stage.Handler),
		pollInterval:  time.Duration(cfg.Workflow.TaskPollInterval) * time.Second,
		retryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
	}
}

// Register adds a stage handler. Registering a second handler for the same
// stage replaces the first.
func (r *Runner) Register(handler stage.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[handler.Stage()] = handler
}

// Start begins background processing.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return errors.New("worker runner already running")
	}
	if len(r.handlers) == 0 {
		return errors.New("no stage handlers registered")
	}

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)
	r.cancel = cancel
	r.group = group
	r.running = true

	workers := r.cfg.Workflow.Workers
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		id := i
		group.Go(func() error {
			r.runLoop(groupCtx, id)
			return nil
		})
	}
	return nil
}

// Stop terminates background processing and waits for completion.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	group := r.group
	r.running = false
	r.cancel = nil
	r.group = nil
	r.mu.Unlock()

	cancel()
	_ = group.Wait()
}

// Health reports the readiness of every registered handler.
func (r *Runner) Health(ctx context.Context) []stage.Health {
	r.mu.Lock()
	handlers := make([]stage.Handler, 0, len(r.handlers))
	for _, s := range pipeline.Stages() {
		if handler, ok := r.handlers[s]; ok {
			handlers = append(handlers, handler)
		}
	}
	r.mu.Unlock()

	results := make([]stage.Health, 0, len(handlers))
	for _, handler := range handlers {
		results = append(results, handler.HealthCheck(ctx))
	}
	return results
}

func (r *Runner) runLoop(ctx context.Context, id int) {
	logger := r.logger.With(logging.Int("worker", id))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := r.heartbeat.ReclaimStale(ctx, logger); err != nil {
			logger.Warn("reclaim stale tasks failed; stuck tasks may remain",
				logging.Error(err),
				logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
				logging.String(logging.FieldErrorHint, "check task database access"),
			)
		}

		task, err := r.store.ClaimNext(ctx)
		if err != nil {
			logger.Error("failed to claim next task",
				logging.Error(err),
				logging.String(logging.FieldEventType, "task_claim_failed"),
				logging.String(logging.FieldErrorHint, "check task database access"),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.retryInterval):
			}
			continue
		}
		if task == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.pollInterval):
			}
			continue
		}

		if err := r.processTask(ctx, logger, task); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

func (r *Runner) processTask(ctx context.Context, logger *slog.Logger, task *tasks.Task) error {
	taskStage, ok := pipeline.StageForTask(task.Name)
	if !ok {
		message := fmt.Sprintf("unknown task name %q", task.Name)
		logger.Error("dropping unroutable task",
			logging.String(logging.FieldTaskHandle, task.Handle),
			logging.String("task_name", task.Name),
		)
		return r.store.MarkFailure(ctx, task.Handle, message)
	}

	r.mu.Lock()
	handler := r.handlers[taskStage]
	r.mu.Unlock()
	if handler == nil {
		message := fmt.Sprintf("no handler registered for stage %s", taskStage)
		if err := r.store.MarkFailure(ctx, task.Handle, message); err != nil {
			return err
		}
		_, err := r.orch.FailStage(ctx, task.WorkID, taskStage, message)
		return err
	}

	taskCtx := services.WithWorkID(ctx, task.WorkID)
	taskCtx = services.WithStage(taskCtx, string(taskStage))
	taskLogger := logging.WithContext(taskCtx, logger)

	taskLogger.Info("executing stage task",
		logging.String(logging.FieldTaskHandle, task.Handle),
	)

	hbCtx, stopHeartbeat := context.WithCancel(taskCtx)
	var wg sync.WaitGroup
	wg.Add(1)
	go r.heartbeat.StartLoop(hbCtx, &wg, task.Handle)

	execErr := handler.Execute(taskCtx, task.WorkID)

	stopHeartbeat()
	wg.Wait()

	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			// Shutdown mid-stage: leave the task started so the stale
			// reclaimer returns it to pending after restart.
			return execErr
		}
		message := services.Details(execErr)
		if err := r.store.MarkFailure(ctx, task.Handle, message); err != nil {
			taskLogger.Error("failed to record task failure", logging.Error(err))
		}
		if _, err := r.orch.FailStage(ctx, task.WorkID, taskStage, message); err != nil {
			taskLogger.Error("failed to record stage failure", logging.Error(err))
		}
		return execErr
	}

	if err := r.store.MarkSuccess(ctx, task.Handle, ""); err != nil {
		taskLogger.Error("failed to record task success", logging.Error(err))
		return err
	}
	if _, err := r.orch.CompleteStage(ctx, task.WorkID, taskStage); err != nil {
		taskLogger.Error("failed to record stage completion", logging.Error(err))
		return err
	}

	// Chain into the successor so the pipeline keeps moving without another
	// external trigger.
	result, err := r.orch.Advance(ctx, task.WorkID)
	if err != nil {
		if errors.Is(err, lock.ErrBusy) {
			// Someone else holds the work item; skip and let their trigger
			// carry it forward.
			taskLogger.Warn("work item busy after completion, skipping advance",
				logging.String(logging.FieldTaskHandle, task.Handle),
			)
			return nil
		}
		taskLogger.Error("failed to advance after completion", logging.Error(err))
		return err
	}
	taskLogger.Info("stage task finished",
		logging.String(logging.FieldTaskHandle, task.Handle),
		logging.String("next_action", string(result.Action)),
	)
	return nil
}
