package config

import (
	"fmt"
	"net/url"
	"strings"
)

func (c *Config) normalize() {
	c.Paths.DataDir = expandPath(c.Paths.DataDir)
	c.Paths.LogDir = expandPath(c.Paths.LogDir)
	c.Cache.KeyPrefix = strings.TrimSpace(c.Cache.KeyPrefix)
	c.Cache.RedisAddr = strings.TrimSpace(c.Cache.RedisAddr)
	c.DurableStore.BaseURL = strings.TrimRight(strings.TrimSpace(c.DurableStore.BaseURL), "/")
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))

	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = defaultKeyPrefix
	}
	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = defaultCacheTTLSeconds
	}
	if c.DurableStore.RequestTimeout <= 0 {
		c.DurableStore.RequestTimeout = defaultDurableRequestTimeout
	}
	if c.Broadcast.RetryMillis <= 0 {
		c.Broadcast.RetryMillis = defaultBroadcastRetryMillis
	}
	if c.Workflow.TaskPollInterval <= 0 {
		c.Workflow.TaskPollInterval = defaultTaskPollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		c.Workflow.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		c.Workflow.HeartbeatTimeout = defaultHeartbeatTimeout
	}
	if c.Workflow.LockTTLSeconds <= 0 {
		c.Workflow.LockTTLSeconds = defaultLockTTLSeconds
	}
	if c.Workflow.LockRetries < 0 {
		c.Workflow.LockRetries = defaultLockRetries
	}
	if c.Workflow.LockRetryBackoffMillis <= 0 {
		c.Workflow.LockRetryBackoffMillis = defaultLockRetryBackoffMillis
	}
	if c.Workflow.Workers <= 0 {
		c.Workflow.Workers = defaultWorkers
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}

// Validate checks config coherence. It does not touch the filesystem.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return fmt.Errorf("config: paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return fmt.Errorf("config: paths.log_dir must be set")
	}
	if base := c.DurableStore.BaseURL; base != "" {
		parsed, err := url.Parse(base)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("config: durable_store.base_url %q is not a valid URL", base)
		}
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("config: logging.format must be console or json, got %q", c.Logging.Format)
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return fmt.Errorf("config: workflow.heartbeat_timeout must exceed workflow.heartbeat_interval")
	}
	return nil
}
