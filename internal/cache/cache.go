package cache

import (
	"context"
	"time"

	"quill/internal/config"
)

// Cache is the key-value contract shared by all quill components. Get reports
// presence explicitly so an absent key is never conflated with an error.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete reports whether the key existed. Deleting an absent key is not
	// an error.
	Delete(ctx context.Context, key string) (bool, error)
	// SetNX stores the value only when the key is absent, returning whether
	// the write happened.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// ExtendIfValue refreshes the TTL only while the stored value still
	// matches, returning whether the extension happened.
	ExtendIfValue(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// ReleaseIfValue deletes the key only while the stored value still
	// matches, returning whether the delete happened.
	ReleaseIfValue(ctx context.Context, key, value string) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// New selects a cache implementation from config: Redis when an address is
// configured, otherwise the in-process store.
func New(cfg *config.Config) Cache {
	if cfg != nil && cfg.Cache.RedisAddr != "" {
		return NewRedis(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
	}
	return NewMemory()
}
