package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"quill/internal/cache"
	"quill/internal/config"
	"quill/internal/logging"
)

// ErrBusy is returned when a work item's lock is held by someone else and the
// configured retries are exhausted.
var ErrBusy = errors.New("work item is locked")

// Manager acquires per-work-item leases.
type Manager struct {
	cache   cache.Cache
	prefix  string
	ttl     time.Duration
	retries int
	backoff time.Duration
	logger  *slog.Logger
}

// NewManager builds a Manager from configuration.
func NewManager(cfg *config.Config, kv cache.Cache, logger *slog.Logger) *Manager {
	return &Manager{
		cache:   kv,
		prefix:  cfg.Cache.KeyPrefix,
		ttl:     time.Duration(cfg.Workflow.LockTTLSeconds) * time.Second,
		retries: cfg.Workflow.LockRetries,
		backoff: time.Duration(cfg.Workflow.LockRetryBackoffMillis) * time.Millisecond,
		logger:  logging.NewComponentLogger(logger, "lock"),
	}
}

func (m *Manager) key(workID string) string {
	return fmt.Sprintf("%s:lock:%s", m.prefix, workID)
}

// Acquire takes the lock for a work item, retrying a bounded number of times
// before giving up with ErrBusy. The returned lease auto-extends until
// released.
func (m *Manager) Acquire(ctx context.Context, workID string) (*Lease, error) {
	key := m.key(workID)
	token := uuid.NewString()

	attempts := m.retries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		ok, err := m.cache.SetNX(ctx, key, token, m.ttl)
		if err != nil {
			return nil, fmt.Errorf("acquire lock %q: %w", key, err)
		}
		if ok {
			lease := &Lease{
				manager: m,
				workID:  workID,
				key:     key,
				token:   token,
				done:    make(chan struct{}),
				stop:    make(chan struct{}),
			}
			go lease.extendLoop()
			return lease, nil
		}
		if attempt == attempts-1 {
			break
		}
		select {
		case <-time.After(m.backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrBusy, workID)
}

// Lease is one held lock. Done is closed if the lease is lost before Release;
// holders of long operations should watch it and abandon their critical
// section.
type Lease struct {
	manager *Manager
	workID  string
	key     string
	token   string

	once sync.Once
	done chan struct{}
	stop chan struct{}
}

// Done is closed when the lease is no longer held, whether by Release or by
// an extension failure.
func (l *Lease) Done() <-chan struct{} {
	return l.done
}

// Lost reports whether the lease expired or was taken over before Release.
func (l *Lease) Lost() bool {
	select {
	case <-l.done:
		select {
		case <-l.stop:
			return false
		default:
			return true
		}
	default:
		return false
	}
}

// Release gives the lock back. Releasing an already lost or released lease is
// a no-op.
func (l *Lease) Release(ctx context.Context) error {
	var err error
	l.once.Do(func() {
		close(l.stop)
		var released bool
		released, err = l.manager.cache.ReleaseIfValue(ctx, l.key, l.token)
		if err == nil && !released {
			l.manager.logger.Warn("lock already expired at release",
				logging.String(logging.FieldWorkID, l.workID),
			)
		}
		close(l.done)
	})
	return err
}

// extendLoop refreshes the lease TTL at a third of its duration until the
// lease is released or an extension fails.
func (l *Lease) extendLoop() {
	interval := l.manager.ttl / 3
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			extended, err := l.manager.cache.ExtendIfValue(ctx, l.key, l.token, l.manager.ttl)
			cancel()
			if err != nil || !extended {
				l.manager.logger.Warn("lock lease lost",
					logging.String(logging.FieldWorkID, l.workID),
					logging.Error(err),
				)
				l.once.Do(func() {
					close(l.done)
				})
				return
			}
		}
	}
}
