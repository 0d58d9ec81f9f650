package main

import (
	"strings"
	"sync"

	"quill/internal/broadcast"
	"quill/internal/cache"
	"quill/internal/config"
	"quill/internal/durable"
	"quill/internal/lock"
	"quill/internal/logging"
	"quill/internal/orchestrator"
	"quill/internal/statemachine"
	"quill/internal/statestore"
	"quill/internal/tasks"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// environment bundles the stores and the orchestrator a command operates on.
// Commands run against the shared cache and durable store directly, so they
// observe and mutate the same state the daemon does.
type environment struct {
	cfg   *config.Config
	store *statestore.Store
	queue *tasks.Store
	orch  *orchestrator.Orchestrator
}

func (c *commandContext) withEnvironment(fn func(env *environment) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	kv := cache.New(cfg)
	defer kv.Close()

	queue, err := tasks.Open(cfg)
	if err != nil {
		return err
	}
	defer queue.Close()

	publisher := broadcast.NewPublisher(cfg, kv)
	defer publisher.Close()

	logger := logging.NewNop()
	store := statestore.New(cfg, kv, durable.NewClient(cfg), logger)
	orch := orchestrator.New(
		lock.NewManager(cfg, kv, logger),
		statemachine.New(store, logger),
		queue,
		broadcast.New(cfg, publisher, store, logger),
		store,
		logger,
	)

	return fn(&environment{cfg: cfg, store: store, queue: queue, orch: orch})
}
