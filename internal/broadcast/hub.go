package broadcast

import (
	"context"
	"sync"
)

const subscriberBuffer = 16

// Hub is an in-process Publisher with subscription support. It backs
// single-node deployments and tests; slow subscribers drop messages rather
// than block publishers, matching fire-and-forget delivery.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]map[chan []byte]struct{}
	closed      bool
}

// NewHub builds an empty hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]map[chan []byte]struct{})}
}

func (h *Hub) Publish(_ context.Context, channel string, payload []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	for ch := range h.subscribers[channel] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe registers a listener on a channel. The returned cancel function
// unregisters it and closes the message channel.
func (h *Hub) Subscribe(channel string) (<-chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	subs, ok := h.subscribers[channel]
	if !ok {
		subs = make(map[chan []byte]struct{})
		h.subscribers[channel] = subs
	}
	subs[ch] = struct{}{}

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := subs[ch]; !ok {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(h.subscribers, channel)
		}
	}
	return ch, cancel
}

func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for _, subs := range h.subscribers {
		for ch := range subs {
			close(ch)
		}
	}
	h.subscribers = make(map[string]map[chan []byte]struct{})
	return nil
}
