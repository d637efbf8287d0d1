package redis

import (
	"context"

	"github.com/integration-hub/student-hub/internal/infrastructure/messaging"
)

// PubSubAdapter exposes Cache pub/sub as a messaging.RedisClient.
type PubSubAdapter struct {
	cache *Cache
}

// NewPubSubAdapter creates a new PubSubAdapter.
func NewPubSubAdapter(cache *Cache) *PubSubAdapter {
	return &PubSubAdapter{cache: cache}
}

// Publish implements messaging.RedisClient.
func (a *PubSubAdapter) Publish(ctx context.Context, channel string, message []byte) error {
	return a.cache.Publish(ctx, channel, message)
}

// Subscribe implements messaging.RedisClient.
// The returned channel closes when ctx is cancelled.
func (a *PubSubAdapter) Subscribe(ctx context.Context, channels ...string) (<-chan messaging.RedisMessage, error) {
	ps := a.cache.Subscribe(ctx, channels...)
	// Wait for the subscription confirmation so publishes right after are not lost.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	out := make(chan messaging.RedisMessage)
	go func() {
		defer close(out)
		defer ps.Close()

		in := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- messaging.RedisMessage{Channel: msg.Channel, Payload: msg.Payload}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
