package config

const (
	defaultDataDir                = "~/.local/share/quill"
	defaultLogDir                 = "~/.local/share/quill/logs"
	defaultKeyPrefix              = "quill"
	defaultCacheTTLSeconds        = 900
	defaultDurableRequestTimeout  = 10
	defaultBroadcastRetryMillis   = 3000
	defaultTaskPollInterval       = 2
	defaultErrorRetryInterval     = 5
	defaultHeartbeatInterval      = 15
	defaultHeartbeatTimeout       = 120
	defaultLockTTLSeconds         = 30
	defaultLockRetries            = 3
	defaultLockRetryBackoffMillis = 200
	defaultWorkers                = 2
	defaultLogLevel               = "info"
	defaultLogFormat              = "console"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Cache: Cache{
			KeyPrefix:  defaultKeyPrefix,
			TTLSeconds: defaultCacheTTLSeconds,
		},
		DurableStore: DurableStore{
			RequestTimeout: defaultDurableRequestTimeout,
		},
		Broadcast: Broadcast{
			RetryMillis: defaultBroadcastRetryMillis,
		},
		Workflow: Workflow{
			TaskPollInterval:       defaultTaskPollInterval,
			ErrorRetryInterval:     defaultErrorRetryInterval,
			HeartbeatInterval:      defaultHeartbeatInterval,
			HeartbeatTimeout:       defaultHeartbeatTimeout,
			LockTTLSeconds:         defaultLockTTLSeconds,
			LockRetries:            defaultLockRetries,
			LockRetryBackoffMillis: defaultLockRetryBackoffMillis,
			Workers:                defaultWorkers,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
