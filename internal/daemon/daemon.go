package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"quill/internal/config"
	"quill/internal/logging"
	"quill/internal/orchestrator"
	"quill/internal/pipeline"
	"quill/internal/stage/drafting"
	"quill/internal/statestore"
	"quill/internal/tasks"
	"quill/internal/worker"
)

// Daemon coordinates the background processing services and enforces
// single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *statestore.Store
	queue  *tasks.Store
	orch   *orchestrator.Orchestrator
	runner *worker.Runner

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	TaskDBPath   string
	LockFilePath string
	Tasks        tasks.HealthSummary
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *statestore.Store, queue *tasks.Store, orch *orchestrator.Orchestrator, runner *worker.Runner, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || queue == nil || orch == nil || runner == nil {
		return nil, errors.New("daemon requires config, stores, orchestrator, and runner")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "quilld.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		queue:    queue,
		orch:     orch,
		runner:   runner,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start launches the worker runner and acquires the daemon lock.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another quill daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.runner.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("start workers: %w", err)
	}
	d.cancel = cancel

	d.running.Store(true)
	d.logger.Info("quill daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.runner.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("quill daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.queue != nil {
		return d.queue.Close()
	}
	return nil
}

// Submit stores uploaded source material for a work item and advances the
// pipeline, which initializes fresh work items at the uploading stage.
func (d *Daemon) Submit(ctx context.Context, workID, title, body string) (orchestrator.Result, error) {
	if strings.TrimSpace(workID) == "" {
		return orchestrator.Result{}, errors.New("work id is required")
	}
	payload, err := json.Marshal(drafting.RawDocument{Title: title, Body: body})
	if err != nil {
		return orchestrator.Result{}, fmt.Errorf("encode upload: %w", err)
	}
	if err := d.store.SaveDocument(ctx, workID, drafting.DocRaw, payload); err != nil {
		return orchestrator.Result{}, fmt.Errorf("store upload: %w", err)
	}
	result, err := d.orch.Advance(ctx, workID)
	if err != nil {
		return orchestrator.Result{}, err
	}
	d.logger.Info("upload submitted",
		logging.String(logging.FieldWorkID, workID),
		logging.String(logging.FieldStage, string(result.Stage)),
	)
	return result, nil
}

// Advance applies an external trigger to a work item.
func (d *Daemon) Advance(ctx context.Context, workID string) (orchestrator.Result, error) {
	return d.orch.Advance(ctx, workID)
}

// CompleteStage records an externally observed stage completion (the
// uploading stage has no worker task and completes this way).
func (d *Daemon) CompleteStage(ctx context.Context, workID string, stage pipeline.Stage) (pipeline.State, error) {
	return d.orch.CompleteStage(ctx, workID, stage)
}

// FailStage records an externally observed stage failure.
func (d *Daemon) FailStage(ctx context.Context, workID string, stage pipeline.Stage, message string) (pipeline.State, error) {
	return d.orch.FailStage(ctx, workID, stage, message)
}

// WorkItemState returns the current state and history for a work item.
func (d *Daemon) WorkItemState(ctx context.Context, workID string) (*pipeline.State, *pipeline.History, error) {
	return d.orch.Status(ctx, workID)
}

// Cleanup removes a work item's recorded slots.
func (d *Daemon) Cleanup(ctx context.Context, workID string, slots ...string) (map[string]bool, error) {
	return d.orch.Cleanup(ctx, workID, slots...)
}

// ListTasks returns tasks filtered by optional statuses.
func (d *Daemon) ListTasks(ctx context.Context, statuses ...tasks.Status) ([]*tasks.Task, error) {
	return d.queue.List(ctx, statuses...)
}

// ClearTasks removes all queued tasks.
func (d *Daemon) ClearTasks(ctx context.Context) (int64, error) {
	return d.queue.Clear(ctx)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		TaskDBPath:   d.queue.Path(),
		LockFilePath: d.lockPath,
	}
	if health, err := d.queue.Health(ctx); err == nil {
		status.Tasks = health
	}
	return status
}
