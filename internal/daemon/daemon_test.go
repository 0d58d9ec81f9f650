package daemon_test

import (
	"context"
	"testing"
	"time"

	"quill/internal/broadcast"
	"quill/internal/cache"
	"quill/internal/config"
	"quill/internal/daemon"
	"quill/internal/lock"
	"quill/internal/orchestrator"
	"quill/internal/pipeline"
	"quill/internal/stage/drafting"
	"quill/internal/statemachine"
	"quill/internal/statestore"
	"quill/internal/tasks"
	"quill/internal/testsupport"
	"quill/internal/worker"
)

func newDaemon(t *testing.T) (*daemon.Daemon, *statestore.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t, func(c *config.Config) {
		c.Workflow.LockRetries = 2
		c.Workflow.LockRetryBackoffMillis = 10
	})

	queue, err := tasks.Open(cfg)
	if err != nil {
		t.Fatalf("open task store: %v", err)
	}

	kv := cache.NewMemory()
	store := statestore.New(cfg, kv, nil, nil)
	hub := broadcast.NewHub()
	t.Cleanup(func() { _ = hub.Close() })

	orch := orchestrator.New(
		lock.NewManager(cfg, kv, nil),
		statemachine.New(store, nil),
		queue,
		broadcast.New(cfg, hub, store, nil),
		store,
		nil,
	)

	runner := worker.NewRunner(cfg, queue, orch, nil)
	runner.Register(drafting.NewStructurer(store, nil))
	runner.Register(drafting.NewPlanner(store, nil))
	runner.Register(drafting.NewWriter(store, nil))

	d, err := daemon.New(cfg, store, queue, orch, runner, nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d, store
}

func TestSubmitInitializesPipeline(t *testing.T) {
	d, _ := newDaemon(t)
	ctx := context.Background()

	result, err := d.Submit(ctx, "w1", "Field Notes", "Some source material.")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Action != statemachine.ActionInit {
		t.Fatalf("expected INIT, got %s", result.Action)
	}
	if result.Stage != pipeline.StageUploading {
		t.Fatalf("expected uploading, got %s", result.Stage)
	}

	if _, err := d.Submit(ctx, "  ", "x", "y"); err == nil {
		t.Fatal("blank work id must be rejected")
	}
}

func TestEndToEndDraftingRun(t *testing.T) {
	d, store := newDaemon(t)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop()

	body := "Opening remarks.\n\n# background\nContext paragraph.\n\n# approach\nMethod paragraph."
	if _, err := d.Submit(ctx, "w1", "Field Notes", body); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := d.CompleteStage(ctx, "w1", pipeline.StageUploading); err != nil {
		t.Fatalf("complete uploading: %v", err)
	}
	if _, err := d.Advance(ctx, "w1"); err != nil {
		t.Fatalf("advance: %v", err)
	}

	deadline := time.Now().Add(30 * time.Second)
	for {
		current, _, err := d.WorkItemState(ctx, "w1")
		if err != nil {
			t.Fatalf("state: %v", err)
		}
		if current != nil && current.Finished() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("pipeline did not finish; state: %+v", current)
		}
		time.Sleep(100 * time.Millisecond)
	}

	final, err := store.GetDocument(ctx, "w1", drafting.DocFinal)
	if err != nil || final == nil {
		t.Fatalf("final draft missing: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("daemon should report running")
	}
	if status.Tasks.Success != 3 {
		t.Fatalf("expected 3 successful tasks, got %+v", status.Tasks)
	}
}

func TestSingleInstanceLock(t *testing.T) {
	d, _ := newDaemon(t)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop()

	if err := d.Start(ctx); err == nil {
		t.Fatal("second start should fail while running")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	d, _ := newDaemon(t)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	d.Stop()
	d.Stop()
}
