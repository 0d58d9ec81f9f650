package broadcast

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"quill/internal/cache"
	"quill/internal/config"
)

// Publisher delivers an opaque payload to every live subscriber of a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Close() error
}

// Channel returns the broadcast channel name for a work item.
func Channel(workID string) string {
	return workID + ":events"
}

// NewPublisher selects a transport from config: Redis pub/sub when the cache
// is Redis-backed (sharing its connection), otherwise the in-process hub.
func NewPublisher(cfg *config.Config, kv cache.Cache) Publisher {
	if r, ok := kv.(*cache.Redis); ok && cfg.Cache.RedisAddr != "" {
		return &redisPublisher{client: r.Client()}
	}
	return NewHub()
}

type redisPublisher struct {
	client *redis.Client
}

func (p *redisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %q: %w", channel, err)
	}
	return nil
}

// Close is a no-op: the connection belongs to the cache.
func (p *redisPublisher) Close() error { return nil }
