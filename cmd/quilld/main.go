package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"quill/internal/broadcast"
	"quill/internal/cache"
	"quill/internal/config"
	"quill/internal/daemon"
	"quill/internal/durable"
	"quill/internal/lock"
	"quill/internal/logging"
	"quill/internal/orchestrator"
	"quill/internal/statemachine"
	"quill/internal/statestore"
	"quill/internal/tasks"
	"quill/internal/worker"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		LogDir: cfg.Paths.LogDir,
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	kv := cache.New(cfg)
	defer kv.Close()

	store := statestore.New(cfg, kv, durable.NewClient(cfg), logger)
	queue, err := tasks.Open(cfg)
	if err != nil {
		logger.Error("open task store", logging.Error(err))
		return
	}

	publisher := broadcast.NewPublisher(cfg, kv)
	defer publisher.Close()

	orch := orchestrator.New(
		lock.NewManager(cfg, kv, logger),
		statemachine.New(store, logger),
		queue,
		broadcast.New(cfg, publisher, store, logger),
		store,
		logger,
	)

	runner := worker.NewRunner(cfg, queue, orch, logger)
	registerStages(runner, store, logger)

	d, err := daemon.New(cfg, store, queue, orch, runner, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("quilld shutting down")
}
