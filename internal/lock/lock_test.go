package lock_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quill/internal/cache"
	"quill/internal/config"
	"quill/internal/lock"
	"quill/internal/testsupport"
)

func newManager(t *testing.T) (*lock.Manager, *cache.Memory) {
	t.Helper()
	cfg := testsupport.NewConfig(t, func(c *config.Config) {
		c.Workflow.LockRetries = 2
		c.Workflow.LockRetryBackoffMillis = 1
	})
	kv := cache.NewMemory()
	return lock.NewManager(cfg, kv, nil), kv
}

func TestAcquireAndRelease(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	lease, err := m.Acquire(ctx, "w1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := lease.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}

	// The lock is free again.
	lease, err = m.Acquire(ctx, "w1")
	if err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
	_ = lease.Release(ctx)
}

func TestAcquireHeldLockReturnsBusy(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	lease, err := m.Acquire(ctx, "w1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer lease.Release(ctx)

	if _, err := m.Acquire(ctx, "w1"); !errors.Is(err, lock.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}

func TestIndependentWorkItemsDoNotContend(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	a, err := m.Acquire(ctx, "w1")
	if err != nil {
		t.Fatalf("acquire w1: %v", err)
	}
	defer a.Release(ctx)

	b, err := m.Acquire(ctx, "w2")
	if err != nil {
		t.Fatalf("acquire w2: %v", err)
	}
	_ = b.Release(ctx)
}

func TestReleaseIsIdempotent(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	lease, err := m.Acquire(ctx, "w1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := lease.Release(ctx); err != nil {
		t.Fatalf("first release: %v", err)
	}
	if err := lease.Release(ctx); err != nil {
		t.Fatalf("second release: %v", err)
	}
}

func TestStolenLockIsNotReleasedByOldHolder(t *testing.T) {
	m, kv := newManager(t)
	ctx := context.Background()

	lease, err := m.Acquire(ctx, "w1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// Simulate expiry plus takeover by another holder.
	key := "quill:lock:w1"
	if _, err := kv.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := kv.Set(ctx, key, "someone-else", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := lease.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}

	value, hit, err := kv.Get(ctx, key)
	if err != nil || !hit {
		t.Fatalf("successor's lock vanished: %v %v", hit, err)
	}
	if value != "someone-else" {
		t.Fatalf("unexpected lock value %q", value)
	}
}

func TestDoneClosesAfterRelease(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	lease, err := m.Acquire(ctx, "w1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	select {
	case <-lease.Done():
		t.Fatal("lease reported done while held")
	default:
	}

	if err := lease.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	select {
	case <-lease.Done():
	case <-time.After(time.Second):
		t.Fatal("done not closed after release")
	}
	if lease.Lost() {
		t.Fatal("released lease should not report lost")
	}
}
